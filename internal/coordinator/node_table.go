package coordinator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/scmcore/internal/cluster"
)

// NodeTable is the authoritative, in-memory store of every datanode the SCM
// knows about, keyed by UUID, with a secondary address index maintained
// many-to-many (one address can be shared by more than one record during a
// rename race, mirroring dnsToUuidMap in SCMNodeManager).
//
// Concurrency:
//   - mu guards the primary map and the opstate/health indexes together,
//     since registration and updates must keep all three consistent.
//   - addrMu is a dedicated lock for the address index, acquired without
//     nesting under mu's critical section wherever possible, per the
//     "address-index updates use a dedicated intrinsic lock" rule.
//   - every read path returns cluster.DatanodeRecord.Clone() results; no
//     caller ever observes or can mutate the table's own copies.
type NodeTable struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*cluster.DatanodeRecord

	opStateIndex map[cluster.OperationalState]map[uuid.UUID]struct{}
	healthIndex  map[cluster.HealthState]map[uuid.UUID]struct{}

	addrMu sync.RWMutex
	addrIndex map[string]map[uuid.UUID]struct{}
}

// NewNodeTable builds an empty table.
func NewNodeTable() *NodeTable {
	return &NodeTable{
		records:      make(map[uuid.UUID]*cluster.DatanodeRecord),
		opStateIndex: make(map[cluster.OperationalState]map[uuid.UUID]struct{}),
		healthIndex:  make(map[cluster.HealthState]map[uuid.UUID]struct{}),
		addrIndex:    make(map[string]map[uuid.UUID]struct{}),
	}
}

// Add inserts a brand-new record. Returns ErrAlreadyExists if the UUID is
// already present; the table is left untouched in that case.
func (t *NodeTable) Add(record *cluster.DatanodeRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := record.Identity.UUID
	if _, exists := t.records[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}

	stored := record.Clone()
	t.records[id] = stored
	t.indexOpStateLocked(id, stored.PersistedOpState)
	t.indexHealthLocked(id, stored.Health)

	t.indexAddress(id, stored.Identity.HostName)
	t.indexAddress(id, stored.Identity.IPAddress)
	return nil
}

// Get returns a defensive copy of the record for uuid, or ErrNotFound.
func (t *NodeTable) Get(id uuid.UUID) (*cluster.DatanodeRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Clone(), nil
}

// mutate looks the record up and hands it to fn under the write lock, then
// reindexes opstate/health if fn changed them. fn must not retain rec
// beyond the call. Used by every write path in this package so index
// maintenance can never be observed half-done.
func (t *NodeTable) mutate(id uuid.UUID, fn func(rec *cluster.DatanodeRecord)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	prevOp, prevHealth := rec.PersistedOpState, rec.Health
	fn(rec)

	if rec.PersistedOpState != prevOp {
		t.unindexOpStateLocked(id, prevOp)
		t.indexOpStateLocked(id, rec.PersistedOpState)
	}
	if rec.Health != prevHealth {
		t.unindexHealthLocked(id, prevHealth)
		t.indexHealthLocked(id, rec.Health)
	}
	return nil
}

// Update replaces identity/address fields on the stored record, rebuilding
// the address index if either hostName or ipAddress changed. Other fields
// (health, opstate, storage, commands) are left untouched by this path —
// they are mutated by the narrower component-specific methods below.
func (t *NodeTable) Update(id uuid.UUID, newIdentity cluster.DatanodeIdentity, networkLocation string, hasParent bool) (oldIdentity cluster.DatanodeIdentity, changed bool, err error) {
	t.mu.Lock()
	rec, ok := t.records[id]
	if !ok {
		t.mu.Unlock()
		return cluster.DatanodeIdentity{}, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	oldIdentity = rec.Identity
	changed = oldIdentity.HostName != newIdentity.HostName || oldIdentity.IPAddress != newIdentity.IPAddress
	rec.Identity = newIdentity
	rec.NetworkLocation = networkLocation
	rec.HasParent = hasParent
	t.mu.Unlock()

	if changed {
		t.unindexAddress(id, oldIdentity.HostName)
		t.unindexAddress(id, oldIdentity.IPAddress)
		t.indexAddress(id, newIdentity.HostName)
		t.indexAddress(id, newIdentity.IPAddress)
	}
	return oldIdentity, changed, nil
}

// UpdateHeartbeat stamps lastHeartbeatMillis and the layout versions
// reported on a heartbeat. Health transitions are the HealthStateMachine's
// responsibility, not this method's.
func (t *NodeTable) UpdateHeartbeat(id uuid.UUID, nowMillis int64, layout cluster.LayoutVersions) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.LastHeartbeatMillis = nowMillis
		rec.Layout = layout
	})
}

// SetHealth transitions the record's health state. Called only by
// HealthStateMachine: from its periodic scan, and from OnHeartbeatReceived
// for the immediate reset on heartbeat receipt.
func (t *NodeTable) SetHealth(id uuid.UUID, health cluster.HealthState) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.Health = health
	})
}

// SetPersistedOpState overwrites the stored operational state and expiry,
// used on the follower reconciliation path and by explicit
// setNodeOperationalState admin calls.
func (t *NodeTable) SetPersistedOpState(id uuid.UUID, opState cluster.OperationalState, expiryEpochSec int64) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.PersistedOpState = opState
		rec.OpStateExpiryEpochSec = expiryEpochSec
	})
}

// ApplyStorageReport replaces storage/meta-storage reports wholesale and
// recomputes the derived volume counts, per ReportRouter's node-report
// handling.
func (t *NodeTable) ApplyStorageReport(id uuid.UUID, storageReports, metaStorageReports []cluster.StorageReport) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.StorageReports = append([]cluster.StorageReport(nil), storageReports...)
		rec.MetaStorageReports = append([]cluster.StorageReport(nil), metaStorageReports...)

		healthy := 0
		for _, sr := range rec.StorageReports {
			if sr.Healthy {
				healthy++
			}
		}
		rec.HealthyVolumeCount = healthy
		rec.MetaVolumeCount = len(rec.MetaStorageReports)
	})
}

// ApplyLayoutReport updates the record's software/metadata layout versions.
func (t *NodeTable) ApplyLayoutReport(id uuid.UUID, layout cluster.LayoutVersions) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.Layout = layout
	})
}

// SetCommandCounts overwrites the per-type queued-command counts the
// datanode last reported, merged with whatever summary the caller already
// computed.
func (t *NodeTable) SetCommandCounts(id uuid.UUID, counts map[cluster.CommandType]int32) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.CommandCountsFromDN = make(map[cluster.CommandType]int32, len(counts))
		for k, v := range counts {
			rec.CommandCountsFromDN[k] = v
		}
	})
}

// AddContainer, RemoveContainer, SetContainers, AddPipeline and
// RemovePipeline mutate the opaque membership sets; consistency with
// external authoritative stores is the caller's responsibility.

func (t *NodeTable) AddContainer(id uuid.UUID, containerID int64) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.ContainerSet[containerID] = struct{}{}
	})
}

func (t *NodeTable) RemoveContainer(id uuid.UUID, containerID int64) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		delete(rec.ContainerSet, containerID)
	})
}

func (t *NodeTable) SetContainers(id uuid.UUID, containerIDs []int64) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.ContainerSet = make(map[int64]struct{}, len(containerIDs))
		for _, c := range containerIDs {
			rec.ContainerSet[c] = struct{}{}
		}
	})
}

func (t *NodeTable) AddPipeline(id uuid.UUID, pipelineID string) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		rec.PipelineSet[pipelineID] = struct{}{}
	})
}

func (t *NodeTable) RemovePipeline(id uuid.UUID, pipelineID string) error {
	return t.mutate(id, func(rec *cluster.DatanodeRecord) {
		delete(rec.PipelineSet, pipelineID)
	})
}

// ListByStatus returns a snapshot of records matching the given operational
// state and health filters; either may be nil as a wildcard. Callers must
// expect staleness — this is a copy, not a live view.
func (t *NodeTable) ListByStatus(opState *cluster.OperationalState, health *cluster.HealthState) []*cluster.DatanodeRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*cluster.DatanodeRecord, 0, len(t.records))
	for _, rec := range t.records {
		if opState != nil && rec.PersistedOpState != *opState {
			continue
		}
		if health != nil && rec.Health != *health {
			continue
		}
		out = append(out, rec.Clone())
	}
	slices.SortFunc(out, func(a, b *cluster.DatanodeRecord) int {
		return compareUUID(a.Identity.UUID, b.Identity.UUID)
	})
	return out
}

// Count mirrors ListByStatus but only counts; the total may not sum across
// partitions due to snapshot drift between calls, which is not an error.
func (t *NodeTable) Count(opState *cluster.OperationalState, health *cluster.HealthState) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, rec := range t.records {
		if opState != nil && rec.PersistedOpState != *opState {
			continue
		}
		if health != nil && rec.Health != *health {
			continue
		}
		n++
	}
	return n
}

// All returns a snapshot of every record, sorted by UUID for determinism.
func (t *NodeTable) All() []*cluster.DatanodeRecord {
	return t.ListByStatus(nil, nil)
}

// LookupByAddress returns a snapshot of the UUID set indexed under addr.
func (t *NodeTable) LookupByAddress(addr string) map[uuid.UUID]struct{} {
	t.addrMu.RLock()
	defer t.addrMu.RUnlock()

	set, ok := t.addrIndex[addr]
	out := make(map[uuid.UUID]struct{}, len(set))
	if !ok {
		return out
	}
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

func (t *NodeTable) indexAddress(id uuid.UUID, addr string) {
	if addr == "" {
		return
	}
	t.addrMu.Lock()
	defer t.addrMu.Unlock()
	set, ok := t.addrIndex[addr]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.addrIndex[addr] = set
	}
	set[id] = struct{}{}
}

func (t *NodeTable) unindexAddress(id uuid.UUID, addr string) {
	if addr == "" {
		return
	}
	t.addrMu.Lock()
	defer t.addrMu.Unlock()
	set, ok := t.addrIndex[addr]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.addrIndex, addr)
	}
}

func (t *NodeTable) indexOpStateLocked(id uuid.UUID, opState cluster.OperationalState) {
	set, ok := t.opStateIndex[opState]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.opStateIndex[opState] = set
	}
	set[id] = struct{}{}
}

func (t *NodeTable) unindexOpStateLocked(id uuid.UUID, opState cluster.OperationalState) {
	set, ok := t.opStateIndex[opState]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.opStateIndex, opState)
	}
}

func (t *NodeTable) indexHealthLocked(id uuid.UUID, health cluster.HealthState) {
	set, ok := t.healthIndex[health]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.healthIndex[health] = set
	}
	set[id] = struct{}{}
}

func (t *NodeTable) unindexHealthLocked(id uuid.UUID, health cluster.HealthState) {
	set, ok := t.healthIndex[health]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(t.healthIndex, health)
	}
}

func compareUUID(a, b uuid.UUID) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
