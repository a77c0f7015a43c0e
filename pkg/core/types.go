package core

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Trade records a single fill event against an order.
// Trades are immutable once created.
type Trade struct {
	ID        string
	OrderID   string
	Token     string
	Price     fpdecimal.Decimal
	Amount    *big.Int
	Maker     string
	Taker     string
	CreatedAt time.Time
}

// NewTrade creates a trade for a fill of the given order
func NewTrade(tradeID string, order *Order, fill *big.Int, taker string) *Trade {
	return &Trade{
		ID:        tradeID,
		OrderID:   order.ID(),
		Token:     order.Token(),
		Price:     order.Price(),
		Amount:    new(big.Int).Set(fill),
		Maker:     order.Owner(),
		Taker:     NormalizeAddress(taker),
		CreatedAt: time.Now(),
	}
}

type tradeJSON struct {
	ID        string `json:"id"`
	OrderID   string `json:"orderId"`
	Token     string `json:"token"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Maker     string `json:"maker"`
	Taker     string `json:"taker"`
	CreatedAt int64  `json:"createdAt"`
}

// MarshalJSON implements Marshaler interface
func (t *Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(tradeJSON{
		ID:        t.ID,
		OrderID:   t.OrderID,
		Token:     t.Token,
		Price:     t.Price.String(),
		Amount:    t.Amount.String(),
		Maker:     t.Maker,
		Taker:     t.Taker,
		CreatedAt: t.CreatedAt.UnixMilli(),
	})
}

// UnmarshalJSON implements Unmarshaler interface
func (t *Trade) UnmarshalJSON(data []byte) error {
	var tj tradeJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return err
	}

	price, err := fpdecimal.FromString(tj.Price)
	if err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(tj.Amount, 10)
	if !ok {
		return ErrInvalidQuantity
	}

	t.ID = tj.ID
	t.OrderID = tj.OrderID
	t.Token = tj.Token
	t.Price = price
	t.Amount = amount
	t.Maker = tj.Maker
	t.Taker = tj.Taker
	t.CreatedAt = time.UnixMilli(tj.CreatedAt)

	return nil
}

// FillResult reports the outcome of accepting an order
type FillResult struct {
	// Quantity matched by this accept call
	FilledAmount *big.Int
	// Status of the order after the fill
	Status Status
	// Trade appended for this fill
	Trade *Trade
}

// BookSnapshot is the open-order view for one token.
// Buys are sorted best bid first, sells best ask first.
type BookSnapshot struct {
	Token string   `json:"token"`
	Buys  []*Order `json:"buys"`
	Sells []*Order `json:"sells"`
}

// TokenInfo describes a registered token
type TokenInfo struct {
	ChainID    int64     `json:"chainId"`
	Token      string    `json:"token"`
	Restrictor string    `json:"restrictor,omitempty"`
	Name       string    `json:"name,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Decimals   uint8     `json:"decimals,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IntentStatus represents the review state of a purchase intent
type IntentStatus string

// Intent statuses
const (
	IntentPending  IntentStatus = "pending"
	IntentApproved IntentStatus = "approved"
	IntentRejected IntentStatus = "rejected"
)

// PurchaseIntent is an unvalidated expression of interest in a token.
// The order engine never touches intents; only the issuer review flow
// moves them out of pending.
type PurchaseIntent struct {
	ID        string       `json:"id"`
	Token     string       `json:"token"`
	Buyer     string       `json:"buyer"`
	Amount    string       `json:"amount"`
	Status    IntentStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}
