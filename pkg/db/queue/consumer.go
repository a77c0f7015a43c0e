package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/erain9/otcbook/pkg/messaging"
)

// QueueMessageConsumer reads fill messages back from Kafka.
// It exists for downstream bookkeeping (settlement watchers, dev
// pretty-printing); the order book itself never consumes.
type QueueMessageConsumer struct {
	reader *kafka.Reader
	cancel context.CancelFunc
}

// NewQueueMessageConsumer creates a consumer for the configured topic
func NewQueueMessageConsumer() (*QueueMessageConsumer, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{brokerList},
		Topic:    topic,
		GroupID:  "otcbook-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	return &QueueMessageConsumer{reader: reader}, nil
}

// ConsumeFillMessages reads fill messages until Close, invoking handler
// for each decoded message. Malformed payloads are skipped.
func (c *QueueMessageConsumer) ConsumeFillMessages(handler func(fill *messaging.FillMessage) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		var fill messaging.FillMessage
		if err := json.Unmarshal(msg.Value, &fill); err != nil {
			continue
		}

		if err := handler(&fill); err != nil {
			return err
		}
	}
}

// Close stops consumption and releases the reader
func (c *QueueMessageConsumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.reader.Close()
}
