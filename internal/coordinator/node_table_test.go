package coordinator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/scmcore/internal/cluster"
)

func newTestRecord(host, ip string) *cluster.DatanodeRecord {
	id := cluster.DatanodeIdentity{UUID: uuid.New(), HostName: host, IPAddress: ip}
	return cluster.NewDatanodeRecord(id, cluster.LayoutVersions{SoftwareLayoutVersion: 3, MetadataLayoutVersion: 3})
}

func TestNodeTableAddAndGet(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")

	require.NoError(t, table.Add(rec))

	got, err := table.Get(rec.Identity.UUID)
	require.NoError(t, err)
	assert.Equal(t, rec.Identity, got.Identity)
	assert.NotSame(t, rec, got, "Get must return a defensive copy")
}

func TestNodeTableAddDuplicateRejected(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))

	err := table.Add(rec)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestNodeTableGetMissing(t *testing.T) {
	table := NewNodeTable()
	_, err := table.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeTableGetReturnsIsolatedCopy(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))

	got, err := table.Get(rec.Identity.UUID)
	require.NoError(t, err)
	got.PersistedOpState = cluster.OpStateDecommissioned

	again, err := table.Get(rec.Identity.UUID)
	require.NoError(t, err)
	assert.Equal(t, cluster.OpStateInService, again.PersistedOpState, "mutating a returned copy must not affect the table")
}

func TestNodeTableUpdateReindexesAddress(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))

	newIdentity := cluster.DatanodeIdentity{UUID: rec.Identity.UUID, HostName: "dn1-renamed", IPAddress: "10.0.0.2"}
	old, changed, err := table.Update(rec.Identity.UUID, newIdentity, "/rack1", true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "dn1", old.HostName)

	assert.Contains(t, table.LookupByAddress("dn1-renamed"), rec.Identity.UUID)
	assert.NotContains(t, table.LookupByAddress("dn1"), rec.Identity.UUID)
	assert.Contains(t, table.LookupByAddress("10.0.0.2"), rec.Identity.UUID)
	assert.NotContains(t, table.LookupByAddress("10.0.0.1"), rec.Identity.UUID)
}

func TestNodeTableUpdateNoopWhenAddressUnchanged(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))

	_, changed, err := table.Update(rec.Identity.UUID, rec.Identity, "/rack1", true)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestNodeTableSetHealthReindexes(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))

	require.NoError(t, table.SetHealth(rec.Identity.UUID, cluster.HealthDead))

	dead := cluster.HealthDead
	listed := table.ListByStatus(nil, &dead)
	require.Len(t, listed, 1)
	assert.Equal(t, rec.Identity.UUID, listed[0].Identity.UUID)

	healthy := cluster.HealthHealthy
	assert.Empty(t, table.ListByStatus(nil, &healthy))
}

func TestNodeTableApplyStorageReportRecomputesCounts(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))

	reports := []cluster.StorageReport{
		{StorageType: cluster.StorageDisk, Healthy: true},
		{StorageType: cluster.StorageDisk, Healthy: false},
		{StorageType: cluster.StorageSSD, Healthy: true},
	}
	meta := []cluster.StorageReport{{StorageType: cluster.StorageDisk, Healthy: true}}

	require.NoError(t, table.ApplyStorageReport(rec.Identity.UUID, reports, meta))

	got, err := table.Get(rec.Identity.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.HealthyVolumeCount)
	assert.Equal(t, 1, got.MetaVolumeCount)
}

func TestNodeTableListByStatusSortedByUUID(t *testing.T) {
	table := NewNodeTable()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		rec := newTestRecord("dn", "10.0.0.1")
		require.NoError(t, table.Add(rec))
		ids = append(ids, rec.Identity.UUID)
	}

	all := table.All()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Identity.UUID.String(), all[i].Identity.UUID.String())
	}
}

func TestNodeTableContainerAndPipelineSets(t *testing.T) {
	table := NewNodeTable()
	rec := newTestRecord("dn1", "10.0.0.1")
	require.NoError(t, table.Add(rec))
	id := rec.Identity.UUID

	require.NoError(t, table.AddContainer(id, 1))
	require.NoError(t, table.AddContainer(id, 2))
	require.NoError(t, table.AddPipeline(id, "p1"))

	got, err := table.Get(id)
	require.NoError(t, err)
	assert.Contains(t, got.ContainerSet, int64(1))
	assert.Contains(t, got.ContainerSet, int64(2))
	assert.Contains(t, got.PipelineSet, "p1")

	require.NoError(t, table.RemoveContainer(id, 1))
	got, err = table.Get(id)
	require.NoError(t, err)
	assert.NotContains(t, got.ContainerSet, int64(1))

	require.NoError(t, table.SetContainers(id, []int64{9}))
	got, err = table.Get(id)
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{9: {}}, got.ContainerSet)
}

func TestNodeTableCountMatchesListByStatus(t *testing.T) {
	table := NewNodeTable()
	for i := 0; i < 3; i++ {
		require.NoError(t, table.Add(newTestRecord("dn", "10.0.0.1")))
	}
	assert.Equal(t, 3, table.Count(nil, nil))
	assert.Equal(t, len(table.All()), table.Count(nil, nil))
}
