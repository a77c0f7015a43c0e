package messaging

import "context"

// MessageSender defines an interface for sending messages.
// This helps decouple the core package from specific implementations
// like Kafka in the queue package.
type MessageSender interface {
	SendFillMessage(ctx context.Context, fill *FillMessage) error
	Close() error
}

// FillMessage is the event published for every successful fill.
// Quantities travel as decimal strings so downstream consumers never
// lose precision.
type FillMessage struct {
	OrderID     string `json:"orderId"`
	TradeID     string `json:"tradeId"`
	Token       string `json:"token"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	FillAmount  string `json:"fillAmount"`
	TotalFilled string `json:"totalFilled"`
	Remaining   string `json:"remaining"`
	Status      string `json:"status"`
	Maker       string `json:"maker"`
	Taker       string `json:"taker"`
	LotID       int64  `json:"lotId,omitempty"`
	Quote       string `json:"quote,omitempty"`
}
