package eventbus

import (
	"context"
	"sync"

	"github.com/dreamware/scmcore/internal/ports"
)

// Memory is an in-process ports.EventPublisher that records every event it
// receives, for tests that assert on the emitted event stream (e.g. the
// NODE_STALE/NODE_DEAD ordering in scanner expiry scenarios).
type Memory struct {
	mu     sync.Mutex
	events []ports.Event
}

// NewMemory builds an empty recorder.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish satisfies ports.EventPublisher.
func (m *Memory) Publish(_ context.Context, event ports.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a snapshot of every event published so far, in order.
func (m *Memory) Events() []ports.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.Event, len(m.events))
	copy(out, m.events)
	return out
}
