// Package cluster defines the shared domain vocabulary for the datanode
// registry: datanode identity, operational and health states, storage
// reports, and the command types the SCM can queue for a datanode. Every
// other package in this module imports cluster for these types instead of
// redefining them.
package cluster

import (
	"fmt"

	"github.com/google/uuid"
)

// OperationalState is the administrator-visible state of a datanode.
type OperationalState string

const (
	OpStateInService          OperationalState = "IN_SERVICE"
	OpStateDecommissioning    OperationalState = "DECOMMISSIONING"
	OpStateDecommissioned     OperationalState = "DECOMMISSIONED"
	OpStateEnteringMaintenance OperationalState = "ENTERING_MAINTENANCE"
	OpStateInMaintenance      OperationalState = "IN_MAINTENANCE"
)

// HealthState is the liveness state derived from heartbeat recency.
type HealthState string

const (
	HealthHealthy         HealthState = "HEALTHY"
	HealthHealthyReadOnly HealthState = "HEALTHY_READONLY"
	HealthStale           HealthState = "STALE"
	HealthDead            HealthState = "DEAD"
)

// StorageType identifies the medium backing a volume.
type StorageType string

const (
	StorageDisk    StorageType = "DISK"
	StorageSSD     StorageType = "SSD"
	StorageArchive StorageType = "ARCHIVE"
	StorageRAMDisk StorageType = "RAM_DISK"
)

// CommandType identifies the kind of command queued for a datanode.
type CommandType string

const (
	CommandSetNodeOperationalState  CommandType = "SetNodeOperationalStateCommand"
	CommandFinalizeNewLayoutVersion CommandType = "FinalizeNewLayoutVersionCommand"
	CommandRefreshVolumeUsage       CommandType = "RefreshVolumeUsageCommand"
)

// FinalizationCheckpoint describes how far the cluster has progressed
// through a layout-version upgrade. Consulted by ReportRouter when deciding
// whether to issue a FinalizeNewLayoutVersionCommand.
type FinalizationCheckpoint int

const (
	FinalizationNotStarted FinalizationCheckpoint = iota
	FinalizationMLVEqualsSLV
	FinalizationComplete
)

// DatanodeIdentity is the immutable UUID plus the current, mutable
// (hostName, ipAddress) pair for a datanode.
type DatanodeIdentity struct {
	UUID      uuid.UUID
	HostName  string
	IPAddress string
}

// String renders the identity for logs as a compact one-liner.
func (d DatanodeIdentity) String() string {
	return fmt.Sprintf("%s(%s/%s)", d.UUID, d.HostName, d.IPAddress)
}

// StorageReport describes the capacity of a single volume as last reported
// by the datanode.
type StorageReport struct {
	StorageType StorageType
	Capacity    int64
	Used        int64
	Remaining   int64
	Healthy     bool
}

// LayoutVersions bundles the software and metadata layout version numbers
// carried on every registration, heartbeat, and layout report.
type LayoutVersions struct {
	SoftwareLayoutVersion int
	MetadataLayoutVersion int
}

// NodeStatus is the derived, always-current snapshot of a record's
// operational and health state, handed out by read paths.
type NodeStatus struct {
	OperationalState      OperationalState
	Health                HealthState
	OpStateExpiryEpochSec int64
}

// Differs reports whether this status's persisted opState/expiry pair
// disagrees with other's. This is the opStateDiffers predicate from
// SCMNodeManager: it only ever compares the operational-state half of the
// status, since health is not part of what the datanode reports about
// itself.
func (s NodeStatus) Differs(other NodeStatus) bool {
	return s.OperationalState != other.OperationalState ||
		s.OpStateExpiryEpochSec != other.OpStateExpiryEpochSec
}

// DatanodeRecord is the SCM's authoritative, in-memory view of one
// datanode. NodeTable owns the only mutable copies; every other package
// receives clones.
type DatanodeRecord struct {
	Identity DatanodeIdentity

	NetworkLocation string
	HasParent       bool

	PersistedOpState      OperationalState
	OpStateExpiryEpochSec int64

	Health              HealthState
	LastHeartbeatMillis int64

	Layout LayoutVersions

	StorageReports     []StorageReport
	MetaStorageReports []StorageReport
	HealthyVolumeCount int
	MetaVolumeCount    int

	CommandCountsFromDN map[CommandType]int32

	ContainerSet map[int64]struct{}
	PipelineSet  map[string]struct{}
}

// NewDatanodeRecord builds a fresh record for first registration. All
// mutable collections are non-nil so callers never have to nil-check.
func NewDatanodeRecord(identity DatanodeIdentity, layout LayoutVersions) *DatanodeRecord {
	return &DatanodeRecord{
		Identity:            identity,
		PersistedOpState:    OpStateInService,
		Health:              HealthHealthy,
		Layout:              layout,
		CommandCountsFromDN: make(map[CommandType]int32),
		ContainerSet:        make(map[int64]struct{}),
		PipelineSet:         make(map[string]struct{}),
	}
}

// Status derives the current NodeStatus from the record.
func (r *DatanodeRecord) Status() NodeStatus {
	return NodeStatus{
		OperationalState:      r.PersistedOpState,
		Health:                r.Health,
		OpStateExpiryEpochSec: r.OpStateExpiryEpochSec,
	}
}

// Clone returns a deep copy of the record so that callers outside
// NodeTable can never observe or cause a half-updated state.
func (r *DatanodeRecord) Clone() *DatanodeRecord {
	if r == nil {
		return nil
	}
	out := *r

	out.StorageReports = append([]StorageReport(nil), r.StorageReports...)
	out.MetaStorageReports = append([]StorageReport(nil), r.MetaStorageReports...)

	out.CommandCountsFromDN = make(map[CommandType]int32, len(r.CommandCountsFromDN))
	for k, v := range r.CommandCountsFromDN {
		out.CommandCountsFromDN[k] = v
	}

	out.ContainerSet = make(map[int64]struct{}, len(r.ContainerSet))
	for k := range r.ContainerSet {
		out.ContainerSet[k] = struct{}{}
	}

	out.PipelineSet = make(map[string]struct{}, len(r.PipelineSet))
	for k := range r.PipelineSet {
		out.PipelineSet[k] = struct{}{}
	}

	return &out
}

// SCMCommand is a single command queued for delivery to a datanode. Term is
// the leader-epoch stamp used to fence stale commands from a deposed
// leader.
type SCMCommand struct {
	Type    CommandType
	Term    int64
	Payload interface{}
}

// SetNodeOperationalStatePayload is the payload for CommandSetNodeOperationalState.
type SetNodeOperationalStatePayload struct {
	OperationalState      OperationalState
	OpStateExpiryEpochSec int64
}

// FinalizeNewLayoutVersionPayload is the payload for CommandFinalizeNewLayoutVersion.
type FinalizeNewLayoutVersionPayload struct {
	SoftwareLayoutVersion int
}
