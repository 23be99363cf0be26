// Package eventbus provides the ports.EventPublisher implementation
// EventBridge publishes through: a NATS JetStream-backed publisher
// wrapping a JetStream context, carrying this module's fixed ports.Event
// vocabulary. A memory-backed fake lives alongside it for tests.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/dreamware/scmcore/internal/ports"
)

// subjectPrefix namespaces every topic this module publishes under.
const subjectPrefix = "scmcore."

// NATSPublisher publishes ports.Event values as JSON on a subject derived
// from the event's topic.
type NATSPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewNATSPublisher connects to url and enables JetStream.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to NATS: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: create JetStream context: %w", err)
	}
	return &NATSPublisher{conn: conn, js: js}, nil
}

// Publish satisfies ports.EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event ports.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventbus: marshal event: %w", err)
	}
	subject := subjectPrefix + string(event.Topic)
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("eventbus: publish to subject %s: %w", subject, err)
	}
	return nil
}

// Subscribe wires a handler for CommandForDatanode messages onto a
// durable JetStream consumer, the inbound half of EventBridge's
// publisher/subscriber split.
func (p *NATSPublisher) Subscribe(topic ports.EventTopic, handler func(ports.Event)) (*nats.Subscription, error) {
	subject := subjectPrefix + string(topic)
	streamName := "scmcore-" + string(topic)

	if _, err := p.js.StreamInfo(streamName); err != nil {
		if _, err := p.js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
			Storage:  nats.FileStorage,
		}); err != nil {
			return nil, fmt.Errorf("eventbus: create stream %s: %w", streamName, err)
		}
	}

	return p.js.Subscribe(subject, func(msg *nats.Msg) {
		var event ports.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			_ = msg.Nak()
			return
		}
		handler(event)
		_ = msg.Ack()
	}, nats.Durable("scmcore-consumer-"+string(topic)), nats.ManualAck())
}

// Close closes the underlying NATS connection.
func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
