package coordinator

import (
	"context"

	"github.com/google/uuid"

	"github.com/dreamware/scmcore/internal/cluster"
	"github.com/dreamware/scmcore/internal/logging"
	"github.com/dreamware/scmcore/internal/ports"
)

// EventSink is the narrow interface the rest of internal/coordinator emits
// domain events through. EventBridge is the only production
// implementation; tests use a fake that records calls.
type EventSink interface {
	EmitNewNode(ctx context.Context, id uuid.UUID)
	EmitNodeAddressUpdate(ctx context.Context, id uuid.UUID)
	EmitNodeStale(ctx context.Context, id uuid.UUID)
	EmitNodeDead(ctx context.Context, id uuid.UUID)
	EmitNodeHealthy(ctx context.Context, id uuid.UUID)
	EmitCommand(ctx context.Context, id uuid.UUID, cmd cluster.SCMCommand)
	EmitCommandCountUpdated(ctx context.Context, id uuid.UUID)
}

// EventBridge is both a publisher — it maps the fixed internal event
// vocabulary onto ports.EventPublisher — and a subscriber: it receives
// CommandForDatanode messages from the event substrate and forwards them
// into a CommandQueue via Add.
//
// The subscriber callback never calls back into Publish for the same
// message; it only reaches into CommandQueue, so EventBridge cannot
// re-enter its own publish path through the substrate it subscribes to.
type EventBridge struct {
	publisher ports.EventPublisher
	queue     *CommandQueue
	log       *logging.Logger
}

// NewEventBridge wires a publisher and the queue that CommandForDatanode
// messages are forwarded into.
func NewEventBridge(publisher ports.EventPublisher, queue *CommandQueue, log *logging.Logger) *EventBridge {
	return &EventBridge{publisher: publisher, queue: queue, log: log}
}

func (b *EventBridge) publish(ctx context.Context, ev ports.Event) {
	if err := b.publisher.Publish(ctx, ev); err != nil {
		b.log.Warn("event publish failed", "topic", string(ev.Topic), "node", ev.NodeUUID, "error", err)
	}
}

func (b *EventBridge) EmitNewNode(ctx context.Context, id uuid.UUID) {
	b.publish(ctx, ports.Event{Topic: ports.TopicNewNode, NodeUUID: id})
}

func (b *EventBridge) EmitNodeAddressUpdate(ctx context.Context, id uuid.UUID) {
	b.publish(ctx, ports.Event{Topic: ports.TopicNodeAddressUpdate, NodeUUID: id})
}

func (b *EventBridge) EmitNodeStale(ctx context.Context, id uuid.UUID) {
	status := cluster.NodeStatus{Health: cluster.HealthStale}
	b.publish(ctx, ports.Event{Topic: ports.TopicNodeStale, NodeUUID: id, NewStatus: &status})
}

func (b *EventBridge) EmitNodeDead(ctx context.Context, id uuid.UUID) {
	status := cluster.NodeStatus{Health: cluster.HealthDead}
	b.publish(ctx, ports.Event{Topic: ports.TopicNodeDead, NodeUUID: id, NewStatus: &status})
}

func (b *EventBridge) EmitNodeHealthy(ctx context.Context, id uuid.UUID) {
	status := cluster.NodeStatus{Health: cluster.HealthHealthy}
	b.publish(ctx, ports.Event{Topic: ports.TopicNodeHealthy, NodeUUID: id, NewStatus: &status})
}

func (b *EventBridge) EmitCommand(ctx context.Context, id uuid.UUID, cmd cluster.SCMCommand) {
	b.publish(ctx, ports.Event{Topic: ports.TopicDatanodeCommand, NodeUUID: id, Command: &cmd})
}

func (b *EventBridge) EmitCommandCountUpdated(ctx context.Context, id uuid.UUID) {
	b.publish(ctx, ports.Event{Topic: ports.TopicCommandCountUpdated, NodeUUID: id})
}

// HandleCommandForDatanode is the subscriber side: the event substrate
// calls this when a CommandForDatanode message arrives (e.g. issued by an
// external placement service), and it is forwarded straight into the
// queue without touching Publish.
func (b *EventBridge) HandleCommandForDatanode(id uuid.UUID, entry CommandQueueEntry) {
	b.queue.Add(id, entry)
}
