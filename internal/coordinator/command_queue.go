package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
)

// CommandQueueEntry is one pending outbound command, queued FIFO per
// datanode.
type CommandQueueEntry struct {
	DNUuid  uuid.UUID
	Type    cluster.CommandType
	Term    int64
	Payload interface{}
}

// CommandQueue is a per-datanode FIFO of pending outbound commands. Every
// mutating method holds the queue's own lock for its entire body, which is
// what HeartbeatProcessor relies on to guarantee that Peek's summary is
// never stale relative to the Drain that immediately follows it — see
// PeekAndDrain.
type CommandQueue struct {
	mu    sync.Mutex
	queue map[uuid.UUID][]CommandQueueEntry
}

// NewCommandQueue builds an empty queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{queue: make(map[uuid.UUID][]CommandQueueEntry)}
}

// Add appends a command to id's FIFO.
func (q *CommandQueue) Add(id uuid.UUID, entry CommandQueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue[id] = append(q.queue[id], entry)
}

// Drain removes and returns all queued entries for id, in insertion order.
// This is a consuming read — callers that only want the pending counts
// must use Peek instead.
func (q *CommandQueue) Drain(id uuid.UUID) []CommandQueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drainLocked(id)
}

func (q *CommandQueue) drainLocked(id uuid.UUID) []CommandQueueEntry {
	entries := q.queue[id]
	delete(q.queue, id)
	if entries == nil {
		return []CommandQueueEntry{}
	}
	return entries
}

// Peek returns a snapshot of pending counts by type, without consuming the
// queue.
func (q *CommandQueue) Peek(id uuid.UUID) map[cluster.CommandType]int32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.summaryLocked(id)
}

func (q *CommandQueue) summaryLocked(id uuid.UUID) map[cluster.CommandType]int32 {
	counts := make(map[cluster.CommandType]int32)
	for _, e := range q.queue[id] {
		counts[e.Type]++
	}
	return counts
}

// PeekAndDrain captures the pending-count summary and then drains the
// queue for id, both under a single lock acquisition. HeartbeatProcessor
// calls this rather than Peek-then-Drain so that summary always reflects
// exactly the entries the returned commands were drawn from — no command
// enqueued between the two calls could otherwise slip in and be
// undercounted.
func (q *CommandQueue) PeekAndDrain(id uuid.UUID) (summary map[cluster.CommandType]int32, commands []CommandQueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	summary = q.summaryLocked(id)
	commands = q.drainLocked(id)
	return summary, commands
}

// CountByType returns the pending count for a single command type.
func (q *CommandQueue) CountByType(id uuid.UUID, t cluster.CommandType) int32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	var n int32
	for _, e := range q.queue[id] {
		if e.Type == t {
			n++
		}
	}
	return n
}
