package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/erain9/otcbook/pkg/messaging"
)

var (
	senderPool    chan messaging.MessageSender
	poolInitOnce  sync.Once
	maxPoolSize   = 8
	senderFactory = defaultSenderFactory
	factoryMu     sync.RWMutex
)

func defaultSenderFactory() (messaging.MessageSender, error) {
	return NewQueueMessageSender()
}

// SetSenderFactory replaces the sender constructor used by the pool.
// Tests and broker-less deployments install a mock here before the
// first SendMessage call.
func SetSenderFactory(f func() (messaging.MessageSender, error)) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	senderFactory = f
}

// initSenderPool initializes the sender pool
func initSenderPool() {
	poolInitOnce.Do(func() {
		factoryMu.RLock()
		factory := senderFactory
		factoryMu.RUnlock()

		senderPool = make(chan messaging.MessageSender, maxPoolSize)
		for i := 0; i < maxPoolSize; i++ {
			sender, err := factory()
			if err != nil {
				continue
			}
			if sender != nil {
				senderPool <- sender
			}
		}
	})
}

// GetSender gets a sender from the pool
func GetSender() messaging.MessageSender {
	initSenderPool()

	select {
	case sender := <-senderPool:
		return sender
	default:
		return nil
	}
}

// ReturnSender returns a sender to the pool
func ReturnSender(sender messaging.MessageSender) {
	if sender == nil {
		return
	}

	select {
	case senderPool <- sender:
	default:
		// Pool is full; drop the surplus sender
		_ = sender.Close()
	}
}

// SendMessage sends a fill message using a pooled sender
func SendMessage(ctx context.Context, fill *messaging.FillMessage) error {
	sender := GetSender()
	if sender == nil {
		return fmt.Errorf("failed to get message sender from pool")
	}

	err := sender.SendFillMessage(ctx, fill)
	if err != nil {
		// Connection may be poisoned; close instead of returning to the pool
		_ = sender.Close()
		return err
	}

	ReturnSender(sender)
	return nil
}
