package graphstore

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"

	"claimgraph/internal/claim"
	"claimgraph/internal/config"
	"claimgraph/internal/tools/kafka"
)

const defaultEventsTopic = "claim-graph.events"

// KafkaPublisher mirrors every append to the event log onto a Kafka topic,
// best-effort: a publish failure is logged by the caller and never fails
// the underlying graph mutation. Publish is a synchronous write that
// returns once the writer has delivered the message or failed. Grounded on
// internal/tools/kafka's Writer abstraction.
type KafkaPublisher struct {
	writer kafka.Writer
	topic  string
}

// NewKafkaPublisherFromConfig constructs a KafkaPublisher from
// configuration. A blank KafkaBrokers disables publishing: Publish becomes
// a no-op and the zero value is safe to embed.
func NewKafkaPublisherFromConfig(cfg config.GraphConfig) (*KafkaPublisher, error) {
	if cfg.KafkaBrokers == "" {
		return &KafkaPublisher{}, nil
	}
	w, err := kafka.NewProducerFromBrokers(cfg.KafkaBrokers)
	if err != nil {
		return nil, err
	}
	topic := cfg.KafkaTopic
	if topic == "" {
		topic = defaultEventsTopic
	}
	return &KafkaPublisher{writer: w, topic: topic}, nil
}

// Publish writes ev to the configured topic, keyed by the event's node or
// edge source id so per-entity ordering is preserved within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if p.writer == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := ev.NodeID
	if key == "" {
		key = ev.FromID
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: payload,
	})
}

// PublishingGraphDB wraps a GraphDB so every mutation also publishes its
// event to Kafka, additive to the JSONL log a backend already writes.
type PublishingGraphDB struct {
	GraphDB
	publisher *KafkaPublisher
	onError   func(error)
}

// WithKafkaPublishing wraps g so successful mutations are also mirrored to
// Kafka. onError is called with any publish failure; it may be nil.
func WithKafkaPublishing(g GraphDB, publisher *KafkaPublisher, onError func(error)) *PublishingGraphDB {
	if onError == nil {
		onError = func(error) {}
	}
	return &PublishingGraphDB{GraphDB: g, publisher: publisher, onError: onError}
}

func (p *PublishingGraphDB) AddNode(ctx context.Context, label string, props map[string]any) (string, error) {
	id, err := p.GraphDB.AddNode(ctx, label, props)
	if err == nil {
		if pubErr := p.publisher.Publish(ctx, Event{Kind: EventAddNode, NodeID: id, Label: label, Props: props}); pubErr != nil {
			p.onError(pubErr)
		}
	}
	return id, err
}

func (p *PublishingGraphDB) AddEdge(ctx context.Context, fromID, toID string, relType claim.Verdict, props map[string]any) (string, error) {
	id, err := p.GraphDB.AddEdge(ctx, fromID, toID, relType, props)
	if err == nil {
		if pubErr := p.publisher.Publish(ctx, Event{
			Kind: EventAddEdge, FromID: fromID, ToID: toID, RelType: string(relType), Props: props,
		}); pubErr != nil {
			p.onError(pubErr)
		}
	}
	return id, err
}
