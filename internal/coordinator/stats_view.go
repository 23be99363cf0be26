package coordinator

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/ports"
)

// ClusterStat is the aggregate capacity/used/remaining across every record
// counted live, per StatsView.clusterStat().
type ClusterStat struct {
	Capacity  int64
	Used      int64
	Remaining int64
}

// add folds a single storage report into the running total.
func (s *ClusterStat) add(sr cluster.StorageReport) {
	s.Capacity += sr.Capacity
	s.Used += sr.Used
	s.Remaining += sr.Remaining
}

// StatsView is a read-only aggregator over NodeTable; every method here
// takes only the read lock (via NodeTable's own snapshot methods) and
// never mutates anything.
type StatsView struct {
	table                      *NodeTable
	pipelines                  ports.PipelineManager
	pipelinesPerMetadataVolume int
	heavyNodeOverride          int
}

// NewStatsView wires the table and pipeline manager this view reads from,
// plus the two configuration knobs pipelineLimit derives from.
func NewStatsView(table *NodeTable, pipelines ports.PipelineManager, pipelinesPerMetadataVolume, heavyNodeOverride int) *StatsView {
	return &StatsView{
		table:                      table,
		pipelines:                  pipelines,
		pipelinesPerMetadataVolume: pipelinesPerMetadataVolume,
		heavyNodeOverride:          heavyNodeOverride,
	}
}

// live health states counted into cluster-wide usage totals: a dead node
// contributes nothing, since its last-reported capacity is presumed stale
// past usefulness.
var clusterStatHealthStates = map[cluster.HealthState]struct{}{
	cluster.HealthHealthy:         {},
	cluster.HealthHealthyReadOnly: {},
	cluster.HealthStale:           {},
}

// ClusterStat aggregates (capacity, used, remaining) across every record
// whose health is HEALTHY, HEALTHY_READONLY, or STALE.
func (s *StatsView) ClusterStat() ClusterStat {
	var out ClusterStat
	for _, rec := range s.table.All() {
		if _, ok := clusterStatHealthStates[rec.Health]; !ok {
			continue
		}
		for _, sr := range rec.StorageReports {
			out.add(sr)
		}
	}
	return out
}

// UsageStateBucket groups a usage total under one of the three
// operational-state prefixes the management surface segments by:
// in-service-and-alive, maintenance, or decommissioning/decommissioned.
// A dead, in-service node falls into none of them and is skipped.
type UsageStateBucket string

const (
	UsageBucketOnline         UsageStateBucket = "ONLINE"
	UsageBucketMaintenance    UsageStateBucket = "MAINTENANCE"
	UsageBucketDecommissioned UsageStateBucket = "DECOMMISSIONED"
)

// CategoryUsage is the (capacity, used, remaining) rollup for one storage
// category — Disk or SSD — within a single UsageStateBucket.
type CategoryUsage struct {
	Disk ClusterStat
	SSD  ClusterStat
}

// UsageReport is the management surface's aggregated-usage-by-category
// view: Disk/SSD totals segmented by ONLINE/Maintenance/Decommissioned.
type UsageReport map[UsageStateBucket]CategoryUsage

func bucketFor(rec *cluster.DatanodeRecord) (UsageStateBucket, bool) {
	switch rec.PersistedOpState {
	case cluster.OpStateEnteringMaintenance, cluster.OpStateInMaintenance:
		return UsageBucketMaintenance, true
	case cluster.OpStateDecommissioning, cluster.OpStateDecommissioned:
		return UsageBucketDecommissioned, true
	default:
		if rec.Health == cluster.HealthDead {
			return "", false
		}
		return UsageBucketOnline, true
	}
}

// UsageByCategory aggregates capacity/used/remaining per storage category,
// segmented by operational-state bucket. Dead, in-service nodes are
// skipped entirely, matching SCMNodeManager.getNodeInfo's "dead inservice
// node, skip it" rule; every other node lands in exactly one bucket based
// on its persisted operational state, independent of health.
func (s *StatsView) UsageByCategory() UsageReport {
	out := UsageReport{
		UsageBucketOnline:         {},
		UsageBucketMaintenance:    {},
		UsageBucketDecommissioned: {},
	}
	for _, rec := range s.table.All() {
		bucket, ok := bucketFor(rec)
		if !ok {
			continue
		}
		usage := out[bucket]
		for _, sr := range rec.StorageReports {
			switch sr.StorageType {
			case cluster.StorageDisk:
				usage.Disk.add(sr)
			case cluster.StorageSSD:
				usage.SSD.add(sr)
			}
		}
		out[bucket] = usage
	}
	return out
}

// PerNodeStat sums one record's storage reports, or ErrNotFound if absent.
func (s *StatsView) PerNodeStat(id uuid.UUID) (ClusterStat, error) {
	rec, err := s.table.Get(id)
	if err != nil {
		return ClusterStat{}, err
	}
	var out ClusterStat
	for _, sr := range rec.StorageReports {
		out.add(sr)
	}
	return out, nil
}

// MostOrLeastUsed filters to (IN_SERVICE, HEALTHY) records and sorts by
// utilization ratio, ties broken by UUID for determinism.
func (s *StatsView) MostOrLeastUsed(mostUsed bool) []*cluster.DatanodeRecord {
	opState := cluster.OpStateInService
	health := cluster.HealthHealthy
	candidates := s.table.ListByStatus(&opState, &health)

	slices.SortFunc(candidates, func(a, b *cluster.DatanodeRecord) int {
		ra, rb := utilizationRatio(a), utilizationRatio(b)
		switch {
		case ra < rb:
			return boolToOrder(!mostUsed)
		case ra > rb:
			return boolToOrder(mostUsed)
		default:
			return compareUUID(a.Identity.UUID, b.Identity.UUID)
		}
	})
	return candidates
}

func boolToOrder(lowFirst bool) int {
	if lowFirst {
		return -1
	}
	return 1
}

func utilizationRatio(rec *cluster.DatanodeRecord) float64 {
	var capacity, used int64
	for _, sr := range rec.StorageReports {
		capacity += sr.Capacity
		used += sr.Used
	}
	if capacity == 0 {
		return 0
	}
	return float64(used) / float64(capacity)
}

// PipelineLimit returns the heavy-node override when positive; otherwise
// pipelinesPerMetadataVolume * metaVolumeCount when the node has at least
// one healthy volume, else 0.
func (s *StatsView) PipelineLimit(id uuid.UUID) (int, error) {
	rec, err := s.table.Get(id)
	if err != nil {
		return 0, err
	}
	return s.pipelineLimitForRecord(rec), nil
}

func (s *StatsView) pipelineLimitForRecord(rec *cluster.DatanodeRecord) int {
	if s.heavyNodeOverride > 0 {
		return s.heavyNodeOverride
	}
	if rec.HealthyVolumeCount > 0 {
		return s.pipelinesPerMetadataVolume * rec.MetaVolumeCount
	}
	return 0
}

// MinPipelineLimit is the minimum PipelineLimit over the given identities.
// Undefined (returns an error) on an empty list.
func (s *StatsView) MinPipelineLimit(ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, errors.New("coordinator: MinPipelineLimit undefined on empty list")
	}
	min := -1
	for _, id := range ids {
		limit, err := s.PipelineLimit(id)
		if err != nil {
			continue
		}
		if min == -1 || limit < min {
			min = limit
		}
	}
	if min == -1 {
		return 0, errors.New("coordinator: no resolvable nodes in list")
	}
	return min, nil
}

// MinHealthyVolumeNum is the minimum healthy-volume count over the given
// identities; missing datanodes are skipped rather than erroring the whole
// call.
func (s *StatsView) MinHealthyVolumeNum(ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, errors.New("coordinator: MinHealthyVolumeNum undefined on empty list")
	}
	min := -1
	for _, id := range ids {
		rec, err := s.table.Get(id)
		if err != nil {
			continue
		}
		if min == -1 || rec.HealthyVolumeCount < min {
			min = rec.HealthyVolumeCount
		}
	}
	if min == -1 {
		return 0, errors.New("coordinator: no resolvable nodes in list")
	}
	return min, nil
}

// PeerList is the union of every pipeline this datanode belongs to, minus
// the datanode itself. A pipeline ID the PipelineManager no longer knows
// about is skipped silently — PipelineNotFound is not escalated here.
func (s *StatsView) PeerList(id uuid.UUID) ([]uuid.UUID, error) {
	rec, err := s.table.Get(id)
	if err != nil {
		return nil, err
	}

	peers := make(map[uuid.UUID]struct{})
	for pipelineID := range rec.PipelineSet {
		nodes, ok := s.pipelines.PipelineNodes(pipelineID)
		if !ok {
			continue
		}
		for _, n := range nodes {
			if n != id {
				peers[n] = struct{}{}
			}
		}
	}

	out := make([]uuid.UUID, 0, len(peers))
	for n := range peers {
		out = append(out, n)
	}
	slices.SortFunc(out, compareUUID)
	return out, nil
}
