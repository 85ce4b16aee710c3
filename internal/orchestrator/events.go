package orchestrator

import (
	"context"

	"claimgraph/internal/graphstore"
)

// EventPublisher mirrors graph mutations to an external fan-out topic,
// best-effort: publish failures are logged by the caller and never fail the
// underlying mutation. Additive to the graphstore
// event log, not a replacement for it, per SPEC_FULL's Kafka wiring.
type EventPublisher interface {
	Publish(ctx context.Context, ev graphstore.Event) error
}

// NoopEventPublisher discards every event.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, graphstore.Event) error { return nil }

var _ EventPublisher = NoopEventPublisher{}
var _ EventPublisher = (*graphstore.KafkaPublisher)(nil)
