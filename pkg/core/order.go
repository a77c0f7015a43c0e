package core

import (
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// ParseSide parses a side string, case-insensitively
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, ErrInvalidSide
	}
}

// Status represents the lifecycle state of an order
type Status string

// Order statuses
const (
	StatusOpen      Status = "open"
	StatusPartial   Status = "partial"
	StatusFilled    Status = "filled"
	StatusCancelled Status = "cancelled"
)

// Order stores information about a resting order.
// Quantity fields are exact integers; price is a fixed-point decimal.
type Order struct {
	id        string
	token     string
	owner     string
	side      Side
	price     fpdecimal.Decimal
	amount    *big.Int
	filled    *big.Int
	status    Status
	createdAt time.Time
	lotID     int64
	quote     string
}

// NewOrder creates a new open order with zero filled quantity
func NewOrder(orderID, token, owner string, side Side, price fpdecimal.Decimal, amount *big.Int) (*Order, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	if price.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidPrice
	}

	if side != Buy && side != Sell {
		return nil, ErrInvalidSide
	}

	return &Order{
		id:        orderID,
		token:     NormalizeAddress(token),
		owner:     NormalizeAddress(owner),
		side:      side,
		price:     price,
		amount:    new(big.Int).Set(amount),
		filled:    new(big.Int),
		status:    StatusOpen,
		createdAt: time.Now(),
	}, nil
}

// ID returns the order ID
func (o *Order) ID() string {
	return o.id
}

// Token returns the asset address the order trades
func (o *Order) Token() string {
	return o.token
}

// Owner returns the placing party's address
func (o *Order) Owner() string {
	return o.owner
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Price returns Price field copy
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// Amount returns the total order quantity
func (o *Order) Amount() *big.Int {
	return new(big.Int).Set(o.amount)
}

// Filled returns the cumulative filled quantity
func (o *Order) Filled() *big.Int {
	return new(big.Int).Set(o.filled)
}

// Remaining returns amount minus filled
func (o *Order) Remaining() *big.Int {
	return new(big.Int).Sub(o.amount, o.filled)
}

// Status returns the current lifecycle status
func (o *Order) Status() Status {
	return o.status
}

// CreatedAt returns the creation timestamp
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// LotID returns the settlement lot identifier, zero if unset
func (o *Order) LotID() int64 {
	return o.lotID
}

// Quote returns the settlement payment asset, empty if unset
func (o *Order) Quote() string {
	return o.quote
}

// SetSettlement attaches on-chain escrow linkage to the order.
// The fields are opaque to the book and only echoed back to callers.
func (o *Order) SetSettlement(lotID int64, quote string) {
	o.lotID = lotID
	o.quote = quote
}

// IsClosed returns true if the order is in a terminal status
func (o *Order) IsClosed() bool {
	return o.status == StatusFilled || o.status == StatusCancelled
}

// IsResting returns true if the order can still be accepted
func (o *Order) IsResting() bool {
	return o.status == StatusOpen || o.status == StatusPartial
}

// Clone returns a deep copy of the order
func (o *Order) Clone() *Order {
	clone := *o
	clone.amount = new(big.Int).Set(o.amount)
	clone.filled = new(big.Int).Set(o.filled)
	return &clone
}

// applyFill adds fill to the filled quantity and advances the status.
// Callers validate the fill against Remaining first; the order only
// guards its own invariant.
func (o *Order) applyFill(fill *big.Int) Status {
	o.filled = new(big.Int).Add(o.filled, fill)
	if o.filled.Cmp(o.amount) == 0 {
		o.status = StatusFilled
	} else {
		o.status = StatusPartial
	}
	return o.status
}

// cancel marks the order cancelled. Prior partial fills are kept.
func (o *Order) cancel() {
	o.status = StatusCancelled
}

// orderJSON is the wire form of Order; quantities travel as strings
type orderJSON struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	Owner     string `json:"owner"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Filled    string `json:"filled"`
	Status    Status `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	LotID     int64  `json:"lotId,omitempty"`
	Quote     string `json:"quote,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:        o.id,
		Token:     o.token,
		Owner:     o.owner,
		Side:      o.side.String(),
		Price:     o.price.String(),
		Amount:    o.amount.String(),
		Filled:    o.filled.String(),
		Status:    o.status,
		CreatedAt: o.createdAt.UnixMilli(),
		LotID:     o.lotID,
		Quote:     o.quote,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Order
func (o *Order) UnmarshalJSON(data []byte) error {
	var oj orderJSON
	if err := json.Unmarshal(data, &oj); err != nil {
		return err
	}

	side, err := ParseSide(oj.Side)
	if err != nil {
		return err
	}

	price, err := fpdecimal.FromString(oj.Price)
	if err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(oj.Amount, 10)
	if !ok {
		return ErrInvalidQuantity
	}

	filled, ok := new(big.Int).SetString(oj.Filled, 10)
	if !ok {
		return ErrInvalidQuantity
	}

	o.id = oj.ID
	o.token = oj.Token
	o.owner = oj.Owner
	o.side = side
	o.price = price
	o.amount = amount
	o.filled = filled
	o.status = oj.Status
	o.createdAt = time.UnixMilli(oj.CreatedAt)
	o.lotID = oj.LotID
	o.quote = oj.Quote

	return nil
}

// String implements Stringer interface
func (o *Order) String() string {
	j, _ := o.MarshalJSON()
	return string(j)
}
