package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKafkaMessageSender(t *testing.T) {
	sender, err := NewKafkaMessageSender("localhost:9092", "test-fills")
	require.NoError(t, err)
	require.NotNil(t, sender.writer)

	assert.Equal(t, "test-fills", sender.topic)
	assert.Equal(t, "test-fills", sender.writer.Topic)
	assert.Equal(t, "localhost:9092", sender.writer.Addr.String())

	require.NoError(t, sender.Close())
}
