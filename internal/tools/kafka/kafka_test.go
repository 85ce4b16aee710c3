package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockWriter is a mock Kafka writer for testing.
type MockWriter struct {
	lastMessage kafka.Message
	shouldError bool
}

var _ Writer = (*MockWriter)(nil)

func (mw *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if mw.shouldError {
		return assert.AnError
	}
	if len(msgs) > 0 {
		mw.lastMessage = msgs[0]
	}
	return nil
}

func TestNewProducerFromBrokers_EmptyBrokersFails(t *testing.T) {
	_, err := NewProducerFromBrokers("  ")
	assert.Error(t, err)
}

func TestNewProducerFromBrokers_ReturnsWriter(t *testing.T) {
	w, err := NewProducerFromBrokers("localhost:9092, localhost:9093")
	require.NoError(t, err)
	var _ Writer = w
}
