package eventbus

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/scmcore/internal/ports"
)

func TestMemoryPublishRecordsInOrder(t *testing.T) {
	m := NewMemory()
	first := ports.Event{Topic: ports.TopicNewNode, NodeUUID: uuid.New()}
	second := ports.Event{Topic: ports.TopicNodeStale, NodeUUID: uuid.New()}

	require.NoError(t, m.Publish(context.Background(), first))
	require.NoError(t, m.Publish(context.Background(), second))

	got := m.Events()
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestMemoryEventsReturnsSnapshot(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Publish(context.Background(), ports.Event{Topic: ports.TopicNewNode}))

	snapshot := m.Events()
	snapshot[0].Topic = ports.TopicCommandForDatanode

	again := m.Events()
	assert.Equal(t, ports.TopicNewNode, again[0].Topic, "mutating a returned snapshot must not affect stored events")
}
