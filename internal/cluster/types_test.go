package cluster

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatanodeRecordDefaults(t *testing.T) {
	id := DatanodeIdentity{UUID: uuid.New(), HostName: "dn1", IPAddress: "10.0.0.1"}
	layout := LayoutVersions{SoftwareLayoutVersion: 3, MetadataLayoutVersion: 3}

	rec := NewDatanodeRecord(id, layout)

	assert.Equal(t, OpStateInService, rec.PersistedOpState)
	assert.Equal(t, HealthHealthy, rec.Health)
	assert.Equal(t, layout, rec.Layout)
	assert.NotNil(t, rec.CommandCountsFromDN)
	assert.NotNil(t, rec.ContainerSet)
	assert.NotNil(t, rec.PipelineSet)
}

func TestDatanodeRecordStatus(t *testing.T) {
	rec := NewDatanodeRecord(DatanodeIdentity{UUID: uuid.New()}, LayoutVersions{})
	rec.OpStateExpiryEpochSec = 1234

	status := rec.Status()

	assert.Equal(t, NodeStatus{
		OperationalState:      OpStateInService,
		Health:                HealthHealthy,
		OpStateExpiryEpochSec: 1234,
	}, status)
}

func TestNodeStatusDiffersIgnoresHealth(t *testing.T) {
	a := NodeStatus{OperationalState: OpStateInService, Health: HealthHealthy, OpStateExpiryEpochSec: 0}
	b := NodeStatus{OperationalState: OpStateInService, Health: HealthDead, OpStateExpiryEpochSec: 0}
	assert.False(t, a.Differs(b), "health alone must not count as drift")

	c := NodeStatus{OperationalState: OpStateDecommissioning, Health: HealthHealthy, OpStateExpiryEpochSec: 0}
	assert.True(t, a.Differs(c))

	d := NodeStatus{OperationalState: OpStateInService, Health: HealthHealthy, OpStateExpiryEpochSec: 99}
	assert.True(t, a.Differs(d))
}

func TestDatanodeRecordCloneIsDeep(t *testing.T) {
	rec := NewDatanodeRecord(DatanodeIdentity{UUID: uuid.New()}, LayoutVersions{})
	rec.StorageReports = []StorageReport{{StorageType: StorageDisk, Capacity: 100}}
	rec.ContainerSet[1] = struct{}{}
	rec.PipelineSet["p1"] = struct{}{}
	rec.CommandCountsFromDN[CommandRefreshVolumeUsage] = 2

	clone := rec.Clone()
	require.NotSame(t, rec, clone)

	clone.StorageReports[0].Capacity = 999
	clone.ContainerSet[2] = struct{}{}
	clone.PipelineSet["p2"] = struct{}{}
	clone.CommandCountsFromDN[CommandRefreshVolumeUsage] = 7

	assert.Equal(t, int64(100), rec.StorageReports[0].Capacity)
	assert.NotContains(t, rec.ContainerSet, int64(2))
	assert.NotContains(t, rec.PipelineSet, "p2")
	assert.Equal(t, int32(2), rec.CommandCountsFromDN[CommandRefreshVolumeUsage])
}

func TestDatanodeRecordCloneNil(t *testing.T) {
	var rec *DatanodeRecord
	assert.Nil(t, rec.Clone())
}
