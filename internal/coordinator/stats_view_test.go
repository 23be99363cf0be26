package coordinator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/scmcore/internal/cluster"
)

func addRecordWithUsage(t *testing.T, table *NodeTable, capacity, used int64, health cluster.HealthState, opState cluster.OperationalState) uuid.UUID {
	t.Helper()
	rec := newTestRecord("dn", "10.0.0.1")
	require.NoError(t, table.Add(rec))
	id := rec.Identity.UUID
	require.NoError(t, table.ApplyStorageReport(id, []cluster.StorageReport{
		{Capacity: capacity, Used: used, Remaining: capacity - used, Healthy: true},
	}, nil))
	require.NoError(t, table.SetHealth(id, health))
	require.NoError(t, table.SetPersistedOpState(id, opState, 0))
	return id
}

func TestStatsViewClusterStatFiltersByHealth(t *testing.T) {
	table := NewNodeTable()
	addRecordWithUsage(t, table, 100, 50, cluster.HealthHealthy, cluster.OpStateInService)
	addRecordWithUsage(t, table, 100, 50, cluster.HealthStale, cluster.OpStateInService)
	addRecordWithUsage(t, table, 100, 50, cluster.HealthDead, cluster.OpStateInService)

	stats := NewStatsView(table, fakePipelines{}, 2, 0)
	stat := stats.ClusterStat()

	assert.Equal(t, int64(200), stat.Capacity, "DEAD nodes must be excluded from cluster usage totals")
	assert.Equal(t, int64(100), stat.Used)
}

func TestStatsViewUsageByCategorySegmentsByStateAndSkipsDeadInService(t *testing.T) {
	table := NewNodeTable()

	online := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(online))
	require.NoError(t, table.ApplyStorageReport(online.Identity.UUID, []cluster.StorageReport{
		{StorageType: cluster.StorageDisk, Capacity: 100, Used: 40, Remaining: 60},
		{StorageType: cluster.StorageSSD, Capacity: 50, Used: 10, Remaining: 40},
	}, nil))

	maintenance := newTestRecord("dn2", "10.0.0.2")
	require.NoError(t, table.Add(maintenance))
	require.NoError(t, table.SetPersistedOpState(maintenance.Identity.UUID, cluster.OpStateInMaintenance, 0))
	require.NoError(t, table.ApplyStorageReport(maintenance.Identity.UUID, []cluster.StorageReport{
		{StorageType: cluster.StorageDisk, Capacity: 200, Used: 20, Remaining: 180},
	}, nil))

	decommissioned := newTestRecord("dn3", "10.0.0.3")
	require.NoError(t, table.Add(decommissioned))
	require.NoError(t, table.SetPersistedOpState(decommissioned.Identity.UUID, cluster.OpStateDecommissioning, 0))
	require.NoError(t, table.ApplyStorageReport(decommissioned.Identity.UUID, []cluster.StorageReport{
		{StorageType: cluster.StorageSSD, Capacity: 300, Used: 30, Remaining: 270},
	}, nil))

	deadInService := newTestRecord("dn4", "10.0.0.4")
	require.NoError(t, table.Add(deadInService))
	require.NoError(t, table.SetHealth(deadInService.Identity.UUID, cluster.HealthDead))
	require.NoError(t, table.ApplyStorageReport(deadInService.Identity.UUID, []cluster.StorageReport{
		{StorageType: cluster.StorageDisk, Capacity: 999, Used: 999, Remaining: 0},
	}, nil))

	stats := NewStatsView(table, fakePipelines{}, 2, 0)
	report := stats.UsageByCategory()

	assert.Equal(t, int64(100), report[UsageBucketOnline].Disk.Capacity)
	assert.Equal(t, int64(50), report[UsageBucketOnline].SSD.Capacity)
	assert.Equal(t, int64(200), report[UsageBucketMaintenance].Disk.Capacity)
	assert.Equal(t, int64(300), report[UsageBucketDecommissioned].SSD.Capacity)
	assert.Zero(t, report[UsageBucketMaintenance].SSD.Capacity)
	assert.Zero(t, report[UsageBucketDecommissioned].Disk.Capacity)
}

func TestStatsViewMostOrLeastUsed(t *testing.T) {
	table := NewNodeTable()
	lowUsage := addRecordWithUsage(t, table, 100, 10, cluster.HealthHealthy, cluster.OpStateInService)
	highUsage := addRecordWithUsage(t, table, 100, 90, cluster.HealthHealthy, cluster.OpStateInService)

	stats := NewStatsView(table, fakePipelines{}, 2, 0)

	mostUsed := stats.MostOrLeastUsed(true)
	require.Len(t, mostUsed, 2)
	assert.Equal(t, highUsage, mostUsed[0].Identity.UUID)

	leastUsed := stats.MostOrLeastUsed(false)
	require.Len(t, leastUsed, 2)
	assert.Equal(t, lowUsage, leastUsed[0].Identity.UUID)
}

func TestStatsViewPipelineLimit(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))
	require.NoError(t, table.ApplyStorageReport(rec.Identity.UUID,
		[]cluster.StorageReport{{Healthy: true}},
		[]cluster.StorageReport{{}, {}},
	))

	stats := NewStatsView(table, fakePipelines{}, 3, 0)
	limit, err := stats.PipelineLimit(rec.Identity.UUID)
	require.NoError(t, err)
	assert.Equal(t, 6, limit, "pipelinesPerMetadataVolume * metaVolumeCount")

	withOverride := NewStatsView(table, fakePipelines{}, 3, 10)
	limit, err = withOverride.PipelineLimit(rec.Identity.UUID)
	require.NoError(t, err)
	assert.Equal(t, 10, limit, "a positive heavy-node override always wins")
}

func TestStatsViewMinPipelineLimitEmptyListErrors(t *testing.T) {
	stats := NewStatsView(NewNodeTable(), fakePipelines{}, 2, 0)
	_, err := stats.MinPipelineLimit(nil)
	assert.Error(t, err)
}

func TestStatsViewPeerListExcludesSelfAndUnionsPipelines(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))
	id := rec.Identity.UUID
	peer1, peer2 := uuid.New(), uuid.New()
	require.NoError(t, table.AddPipeline(id, "p1"))
	require.NoError(t, table.AddPipeline(id, "p2"))

	pipelines := fakePipelines{nodes: map[string][]uuid.UUID{
		"p1": {id, peer1},
		"p2": {id, peer2, peer1},
	}}
	stats := NewStatsView(table, pipelines, 2, 0)

	peers, err := stats.PeerList(id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{peer1, peer2}, peers)
}
