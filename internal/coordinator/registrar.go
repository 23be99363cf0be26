package coordinator

import (
	"context"
	"fmt"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// RegisterErrorCode is the explicit, wire-stable response code register()
// returns — never an exception, per the error-handling policy for layout
// mismatches.
type RegisterErrorCode string

const (
	RegisterSuccess              RegisterErrorCode = "success"
	RegisterErrorNodeNotPermitted RegisterErrorCode = "errorNodeNotPermitted"
)

// unresolvedNetworkLocation is substituted when the topology has no
// opinion on a datanode's rack path (Resolve's ok=false). That outcome is
// allowed by design — it must never be conflated with a topology-add
// failure, which is the only thing the post-insert parent check guards
// against.
const unresolvedNetworkLocation = "/default-rack"

// RegisterResponse is what Registrar.Register hands back to the RPC layer.
type RegisterResponse struct {
	ErrorCode RegisterErrorCode
	Identity  cluster.DatanodeIdentity
	ClusterID string
}

// RegisterRequest carries everything a first-contact or re-registration
// call supplies.
type RegisterRequest struct {
	Identity           cluster.DatanodeIdentity
	Layout             cluster.LayoutVersions
	NodeReport         []cluster.StorageReport
	MetaStorageReports []cluster.StorageReport
}

// Registrar handles first-contact registration and address-change
// detection for already-known datanodes: layout gate first, then
// hostname/IP resolution, then topology and secondary-index
// maintenance.
type Registrar struct {
	table      *NodeTable
	topology   ports.NetworkTopology
	resolver   ports.NodeResolver
	layouts    ports.LayoutVersionManager
	events     EventSink
	clusterID  string
	useHostname bool
	log        *logging.Logger
}

// NewRegistrar wires the collaborators registration needs.
func NewRegistrar(table *NodeTable, topology ports.NetworkTopology, resolver ports.NodeResolver, layouts ports.LayoutVersionManager, events EventSink, clusterID string, useHostname bool, log *logging.Logger) *Registrar {
	return &Registrar{
		table:       table,
		topology:    topology,
		resolver:    resolver,
		layouts:     layouts,
		events:      events,
		clusterID:   clusterID,
		useHostname: useHostname,
		log:         log,
	}
}

// Register runs the full first-contact / re-registration pipeline.
func (r *Registrar) Register(ctx context.Context, req RegisterRequest) RegisterResponse {
	if req.Layout.SoftwareLayoutVersion != r.layouts.SoftwareLayoutVersion() {
		r.log.Warn("rejecting registration, software layout version mismatch",
			"node", req.Identity.UUID, "dn_slv", req.Layout.SoftwareLayoutVersion, "scm_slv", r.layouts.SoftwareLayoutVersion())
		return RegisterResponse{ErrorCode: RegisterErrorNodeNotPermitted, Identity: req.Identity, ClusterID: r.clusterID}
	}

	identity := r.resolveIdentity(req.Identity)

	location, ok := r.topology.Resolve(identity)
	if !ok {
		location = unresolvedNetworkLocation
	}

	existing, err := r.table.Get(identity.UUID)
	if err != nil {
		r.registerNew(ctx, identity, location, req)
	} else {
		r.registerExisting(ctx, existing, identity, location, req)
	}

	return RegisterResponse{ErrorCode: RegisterSuccess, Identity: identity, ClusterID: r.clusterID}
}

// resolveIdentity runs the hostname and IP through the injected
// NodeResolver before any indexing happens. Registrar itself does not
// consult its useHostname field: both strings are kept and indexed, and
// whatever choice is made between them is up to the resolver.
func (r *Registrar) resolveIdentity(identity cluster.DatanodeIdentity) cluster.DatanodeIdentity {
	host, ip := r.resolver.Resolve(identity.HostName, identity.IPAddress)
	identity.HostName = host
	identity.IPAddress = ip
	return identity
}

func (r *Registrar) registerNew(ctx context.Context, identity cluster.DatanodeIdentity, location string, req RegisterRequest) {
	hasParent := r.topology.Add(identity, location)

	record := cluster.NewDatanodeRecord(identity, req.Layout)
	record.NetworkLocation = location
	record.HasParent = hasParent
	record.StorageReports = append([]cluster.StorageReport(nil), req.NodeReport...)
	record.MetaStorageReports = append([]cluster.StorageReport(nil), req.MetaStorageReports...)

	healthy := 0
	for _, sr := range record.StorageReports {
		if sr.Healthy {
			healthy++
		}
	}
	record.HealthyVolumeCount = healthy
	record.MetaVolumeCount = len(record.MetaStorageReports)

	if err := r.table.Add(record); err != nil {
		r.log.Debug("registration raced with a concurrent registration", "node", identity.UUID, "error", err)
		return
	}

	if !record.HasParent {
		panic(fmt.Sprintf("coordinator: invariant violated, no topology parent after insert for %s", identity.UUID))
	}

	r.events.EmitNewNode(ctx, identity.UUID)
}

func (r *Registrar) registerExisting(ctx context.Context, existing *cluster.DatanodeRecord, identity cluster.DatanodeIdentity, location string, req RegisterRequest) {
	if existing.Identity.HostName == identity.HostName && existing.Identity.IPAddress == identity.IPAddress {
		return
	}

	hasParent := r.topology.Add(identity, location)
	if _, _, err := r.table.Update(identity.UUID, identity, location, hasParent); err != nil {
		r.log.Warn("address update failed on registration", "node", identity.UUID, "error", err)
		return
	}
	if err := r.table.ApplyStorageReport(identity.UUID, req.NodeReport, req.MetaStorageReports); err != nil {
		r.log.Warn("node report ingest failed on re-registration", "node", identity.UUID, "error", err)
	}

	r.events.EmitNodeAddressUpdate(ctx, identity.UUID)
}
