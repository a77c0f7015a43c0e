package messaging

import (
	"context"
	"sync"
)

// MockMessageSender records sent fills in memory for testing.
type MockMessageSender struct {
	mu    sync.Mutex
	fills []*FillMessage
}

// NewMockMessageSender creates a new MockMessageSender.
func NewMockMessageSender() *MockMessageSender {
	return &MockMessageSender{}
}

// SendFillMessage records the fill.
func (m *MockMessageSender) SendFillMessage(_ context.Context, fill *FillMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fills = append(m.fills, fill)
	return nil
}

// SentFills returns a copy of the recorded fills.
func (m *MockMessageSender) SentFills() []*FillMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*FillMessage, len(m.fills))
	copy(out, m.fills)
	return out
}

// Close does nothing.
func (m *MockMessageSender) Close() error {
	return nil
}

// Ensure MockMessageSender implements MessageSender
var _ MessageSender = (*MockMessageSender)(nil)
