package coordinator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/scmcore/internal/cluster"
)

func TestCommandQueueFIFOOrder(t *testing.T) {
	q := NewCommandQueue()
	id := uuid.New()

	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandRefreshVolumeUsage, Term: 1})
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandSetNodeOperationalState, Term: 1})

	entries := q.Drain(id)
	require.Len(t, entries, 2)
	assert.Equal(t, cluster.CommandRefreshVolumeUsage, entries[0].Type)
	assert.Equal(t, cluster.CommandSetNodeOperationalState, entries[1].Type)

	assert.Empty(t, q.Drain(id), "draining twice must not replay entries")
}

func TestCommandQueuePeekDoesNotConsume(t *testing.T) {
	q := NewCommandQueue()
	id := uuid.New()
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandRefreshVolumeUsage})

	summary := q.Peek(id)
	assert.Equal(t, int32(1), summary[cluster.CommandRefreshVolumeUsage])

	entries := q.Drain(id)
	assert.Len(t, entries, 1, "Peek must not have drained the queue")
}

func TestCommandQueuePeekAndDrainAtomicity(t *testing.T) {
	q := NewCommandQueue()
	id := uuid.New()
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandRefreshVolumeUsage})
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandRefreshVolumeUsage})
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandFinalizeNewLayoutVersion})

	summary, commands := q.PeekAndDrain(id)

	counted := make(map[cluster.CommandType]int32)
	for _, c := range commands {
		counted[c.Type]++
	}
	assert.Equal(t, summary, counted, "summary must exactly match the drained commands")
	assert.Empty(t, q.Peek(id), "queue must be empty after PeekAndDrain")
}

func TestCommandQueueCountByType(t *testing.T) {
	q := NewCommandQueue()
	id := uuid.New()
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandRefreshVolumeUsage})
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandRefreshVolumeUsage})
	q.Add(id, CommandQueueEntry{DNUuid: id, Type: cluster.CommandFinalizeNewLayoutVersion})

	assert.Equal(t, int32(2), q.CountByType(id, cluster.CommandRefreshVolumeUsage))
	assert.Equal(t, int32(1), q.CountByType(id, cluster.CommandFinalizeNewLayoutVersion))
	assert.Equal(t, int32(0), q.CountByType(id, cluster.CommandSetNodeOperationalState))
}

func TestCommandQueueUnknownIDIsEmpty(t *testing.T) {
	q := NewCommandQueue()
	assert.Empty(t, q.Drain(uuid.New()))
	assert.Empty(t, q.Peek(uuid.New()))
}
