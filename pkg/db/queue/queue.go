package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/erain9/otcbook/pkg/messaging"
)

var (
	brokerList = "localhost:9092"
	topic      = "otcbook-fills"
)

// SetBrokerList overrides the Kafka broker address
func SetBrokerList(addr string) {
	brokerList = addr
}

// SetTopic overrides the Kafka topic for fill messages
func SetTopic(t string) {
	topic = t
}

// QueueMessageSender implements the MessageSender interface
// for sending messages to Kafka
type QueueMessageSender struct {
	producer sarama.SyncProducer
}

// NewQueueMessageSender creates a sender backed by a sarama sync producer
func NewQueueMessageSender() (*QueueMessageSender, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer([]string{brokerList}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &QueueMessageSender{producer: producer}, nil
}

// SendFillMessage sends the FillMessage to the Kafka queue
func (q *QueueMessageSender) SendFillMessage(_ context.Context, fill *messaging.FillMessage) error {
	data, err := json.Marshal(fill)
	if err != nil {
		return fmt.Errorf("failed to marshal fill message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(fill.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := q.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the underlying producer
func (q *QueueMessageSender) Close() error {
	return q.producer.Close()
}

// Ensure QueueMessageSender implements MessageSender
var _ messaging.MessageSender = (*QueueMessageSender)(nil)
