package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

func TestFillMessageJSON(t *testing.T) {
	fill := &FillMessage{
		OrderID:     "order-1",
		TradeID:     "trade-1",
		Token:       "0x1111111111111111111111111111111111111111",
		Side:        "sell",
		Price:       "2.5",
		FillAmount:  "400",
		TotalFilled: "400",
		Remaining:   "600",
		Status:      "partial",
		Maker:       "0x2222222222222222222222222222222222222222",
		Taker:       "0x3333333333333333333333333333333333333333",
		LotID:       42,
		Quote:       "0x4444444444444444444444444444444444444444",
	}

	data, err := json.Marshal(fill)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded FillMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded != *fill {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, *fill)
	}
}

func TestMockMessageSenderConcurrent(t *testing.T) {
	sender := NewMockMessageSender()

	const senders = 20
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sender.SendFillMessage(context.Background(), &FillMessage{OrderID: "order-1"})
		}()
	}
	wg.Wait()

	if got := len(sender.SentFills()); got != senders {
		t.Errorf("Expected %d recorded fills, got %d", senders, got)
	}
}
