package core

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/nikolaydubina/fpdecimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/erain9/otcbook/pkg/db/queue"
	"github.com/erain9/otcbook/pkg/messaging"
	"github.com/erain9/otcbook/pkg/otel"
)

// OrderBook enforces the order lifecycle and fill arithmetic.
// It is the only component allowed to mutate filled/status. The book
// holds no authoritative in-memory state: every operation re-reads the
// backend so concurrent mutations are never applied to stale records.
type OrderBook struct {
	backend Backend

	// locks serializes accept/cancel per order id. An entry is removed
	// once its order reaches a terminal status, and whenever the id
	// resolves to no live order, so the map is bounded by the set of
	// open orders. A racer holding a removed mutex re-reads the order
	// and fails the status check regardless of which instance it held.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewOrderBook creates an OrderBook with a backend
func NewOrderBook(backend Backend) *OrderBook {
	return &OrderBook{
		backend: backend,
		locks:   make(map[string]*sync.Mutex),
	}
}

// NewOrderID returns a fresh opaque order identifier
func NewOrderID() string {
	return uuid.NewString()
}

// ParseAmount parses a quantity string as a positive arbitrary-precision integer
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}
	return amount, nil
}

// maxPrice is the largest price the fixed-point representation can
// hold without overflowing its int64 mantissa (3 fractional digits).
var maxPrice = new(big.Rat).SetFrac64(math.MaxInt64, 1000)

// ParsePrice parses a price string as a positive decimal
func ParsePrice(s string) (fpdecimal.Decimal, error) {
	price, err := fpdecimal.FromString(s)
	if err != nil || price.LessThanOrEqual(fpdecimal.Zero) {
		return fpdecimal.Zero, ErrInvalidPrice
	}

	// FromString wraps around silently once the scaled value exceeds
	// int64, so bound the exact input before trusting the parsed value.
	exact, ok := new(big.Rat).SetString(s)
	if !ok || exact.Cmp(maxPrice) > 0 {
		return fpdecimal.Zero, ErrInvalidPrice
	}
	return price, nil
}

// Submit stores a new order in the book
func (ob *OrderBook) Submit(ctx context.Context, order *Order) error {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanSubmitOrder,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderToken, order.Token()),
		attribute.String(otel.AttributeOrderQuantity, order.Amount().String()),
		attribute.String(otel.AttributeOrderPrice, order.Price().String()),
	)
	defer span.End()

	if err := ob.backend.StoreOrder(order); err != nil {
		span.SetStatus(codes.Error, "failed to store order")
		return err
	}

	otel.GetOrderBookMetrics().RecordSubmittedOrder(ctx, order.Side().String())
	span.SetStatus(codes.Ok, "order submitted")
	return nil
}

// GetOrder returns Order by id, nil if absent
func (ob *OrderBook) GetOrder(orderID string) *Order {
	return ob.backend.GetOrder(orderID)
}

// Accept fills a resting order, partially or fully, on behalf of taker.
// A nil requested amount fills the whole remaining quantity. The
// read-check-write sequence is serialized per order id so concurrent
// accepts can never overfill past the order amount.
func (ob *OrderBook) Accept(ctx context.Context, orderID, taker string, requested *big.Int) (*FillResult, error) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanAcceptOrder,
		attribute.String(otel.AttributeOrderID, orderID),
	)
	defer span.End()

	lock := ob.lockOrder(orderID)
	lock.Lock()
	defer lock.Unlock()

	order := ob.backend.GetOrder(orderID)
	if order == nil {
		ob.releaseLock(orderID)
		span.SetStatus(codes.Error, "nonexistent order")
		return nil, ErrNonexistentOrder
	}

	if order.IsClosed() {
		ob.releaseLock(orderID)
		span.SetStatus(codes.Error, "order closed")
		return nil, ErrOrderClosed
	}

	remaining := order.Remaining()
	fill := remaining
	if requested != nil {
		fill = new(big.Int).Set(requested)
	}

	if fill.Sign() <= 0 || fill.Cmp(remaining) > 0 {
		span.SetStatus(codes.Error, "invalid fill amount")
		return nil, ErrInvalidFill
	}

	updated := order.Clone()
	status := updated.applyFill(fill)
	trade := NewTrade(uuid.NewString(), order, fill, taker)

	if err := ob.backend.ApplyFill(updated, trade); err != nil {
		span.SetStatus(codes.Error, "failed to persist fill")
		return nil, err
	}

	if updated.IsClosed() {
		ob.releaseLock(orderID)
	}

	ob.publishFill(ctx, updated, trade)
	otel.GetOrderBookMetrics().RecordFill(ctx, string(status))

	otel.AddAttributes(span,
		attribute.String(otel.AttributeExecutedQuantity, fill.String()),
		attribute.String(otel.AttributeRemainingQuantity, updated.Remaining().String()),
		attribute.String(otel.AttributeOrderStatus, string(status)),
	)
	span.SetStatus(codes.Ok, "order accepted")

	return &FillResult{
		FilledAmount: fill,
		Status:       status,
		Trade:        trade,
	}, nil
}

// Cancel marks an open or partial order cancelled. Only the owner may
// cancel, and prior partial fills are kept on the record.
func (ob *OrderBook) Cancel(ctx context.Context, orderID, owner string) error {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanCancelOrder,
		attribute.String(otel.AttributeOrderID, orderID),
	)
	defer span.End()

	lock := ob.lockOrder(orderID)
	lock.Lock()
	defer lock.Unlock()

	order := ob.backend.GetOrder(orderID)
	if order == nil {
		ob.releaseLock(orderID)
		span.SetStatus(codes.Error, "nonexistent order")
		return ErrNonexistentOrder
	}

	if !SameAddress(order.Owner(), owner) {
		span.SetStatus(codes.Error, "owner mismatch")
		return ErrNotOwner
	}

	if order.IsClosed() {
		ob.releaseLock(orderID)
		span.SetStatus(codes.Error, "order closed")
		return ErrOrderClosed
	}

	updated := order.Clone()
	updated.cancel()

	if err := ob.backend.UpdateOrder(updated); err != nil {
		span.SetStatus(codes.Error, "failed to persist cancel")
		return err
	}

	ob.releaseLock(orderID)
	otel.GetOrderBookMetrics().RecordCancelledOrder(ctx)
	span.SetStatus(codes.Ok, "order cancelled")
	return nil
}

// Snapshot returns the open-order view for a token: buys best bid
// first, sells best ask first, ties broken by creation time. It is a
// pure read-side projection over the backend's current state.
func (ob *OrderBook) Snapshot(token string) *BookSnapshot {
	token = NormalizeAddress(token)
	snapshot := &BookSnapshot{
		Token: token,
		Buys:  make([]*Order, 0),
		Sells: make([]*Order, 0),
	}

	for _, order := range ob.backend.ListOrders() {
		if order.Token() != token || !order.IsResting() {
			continue
		}
		if order.Side() == Buy {
			snapshot.Buys = append(snapshot.Buys, order)
		} else {
			snapshot.Sells = append(snapshot.Sells, order)
		}
	}

	sort.SliceStable(snapshot.Buys, func(i, j int) bool {
		a, b := snapshot.Buys[i], snapshot.Buys[j]
		if !a.Price().Equal(b.Price()) {
			return a.Price().GreaterThan(b.Price())
		}
		return a.CreatedAt().Before(b.CreatedAt())
	})

	sort.SliceStable(snapshot.Sells, func(i, j int) bool {
		a, b := snapshot.Sells[i], snapshot.Sells[j]
		if !a.Price().Equal(b.Price()) {
			return a.Price().LessThan(b.Price())
		}
		return a.CreatedAt().Before(b.CreatedAt())
	})

	return snapshot
}

// Trades lists recorded trades in insertion order, optionally filtered
// by token. An empty token lists everything.
func (ob *OrderBook) Trades(token string) []*Trade {
	trades := ob.backend.ListTrades()
	if token == "" {
		return trades
	}

	token = NormalizeAddress(token)
	filtered := make([]*Trade, 0, len(trades))
	for _, trade := range trades {
		if NormalizeAddress(trade.Token) == token {
			filtered = append(filtered, trade)
		}
	}
	return filtered
}

func (ob *OrderBook) lockOrder(orderID string) *sync.Mutex {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	lock, ok := ob.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		ob.locks[orderID] = lock
	}
	return lock
}

func (ob *OrderBook) releaseLock(orderID string) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	delete(ob.locks, orderID)
}

// publishFill sends the fill event to the message queue.
// Delivery is best-effort; the fill is already durable.
func (ob *OrderBook) publishFill(ctx context.Context, order *Order, trade *Trade) {
	ctx, span := otel.StartOrderSpan(ctx, otel.SpanPublishFill,
		attribute.String(otel.AttributeOrderID, order.ID()),
		attribute.String(otel.AttributeExecutedQuantity, trade.Amount.String()),
	)
	defer span.End()

	msg := &messaging.FillMessage{
		OrderID:     order.ID(),
		TradeID:     trade.ID,
		Token:       order.Token(),
		Side:        order.Side().String(),
		Price:       trade.Price.String(),
		FillAmount:  trade.Amount.String(),
		TotalFilled: order.Filled().String(),
		Remaining:   order.Remaining().String(),
		Status:      string(order.Status()),
		Maker:       trade.Maker,
		Taker:       trade.Taker,
		LotID:       order.LotID(),
		Quote:       order.Quote(),
	}

	if err := queue.SendMessage(ctx, msg); err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("failed to send fill message: %v", err))
		return
	}

	span.SetStatus(codes.Ok, "fill message sent")
}
