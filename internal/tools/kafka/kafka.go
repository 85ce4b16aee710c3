// Package kafka provides the Writer interface the claim graph's event
// publisher depends on, and a broker-address-based constructor for the
// real segmentio/kafka-go producer.
package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Writer interface for Kafka message writing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}
