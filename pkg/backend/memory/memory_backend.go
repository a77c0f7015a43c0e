package memory

import (
	"sync"

	"github.com/erain9/otcbook/pkg/core"
)

// MemoryBackend implements the core.Backend interface with in-memory
// storage. Records are copied on the way in and out so callers never
// share mutable state with the store.
type MemoryBackend struct {
	sync.RWMutex
	orders   map[string]*core.Order
	orderIDs []string
	trades   []*core.Trade
	tokens   map[string]*core.TokenInfo
	tokenIDs []string
	intents  map[string]*core.PurchaseIntent
	intentID []string
}

// NewMemoryBackend creates new instance of MemoryBackend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		orders:  make(map[string]*core.Order),
		tokens:  make(map[string]*core.TokenInfo),
		intents: make(map[string]*core.PurchaseIntent),
	}
}

// GetOrder retrieves an order by ID
func (b *MemoryBackend) GetOrder(orderID string) *core.Order {
	b.RLock()
	defer b.RUnlock()

	order, ok := b.orders[orderID]
	if !ok {
		return nil
	}
	return order.Clone()
}

// StoreOrder stores a new order
func (b *MemoryBackend) StoreOrder(order *core.Order) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.orders[order.ID()]; exists {
		return core.ErrOrderExists
	}

	b.orders[order.ID()] = order.Clone()
	b.orderIDs = append(b.orderIDs, order.ID())
	return nil
}

// UpdateOrder replaces an existing order
func (b *MemoryBackend) UpdateOrder(order *core.Order) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.orders[order.ID()]; !exists {
		return core.ErrNonexistentOrder
	}

	b.orders[order.ID()] = order.Clone()
	return nil
}

// ListOrders returns all orders in insertion order
func (b *MemoryBackend) ListOrders() []*core.Order {
	b.RLock()
	defer b.RUnlock()

	orders := make([]*core.Order, 0, len(b.orderIDs))
	for _, id := range b.orderIDs {
		orders = append(orders, b.orders[id].Clone())
	}
	return orders
}

// ApplyFill replaces the order and appends the trade under one lock
func (b *MemoryBackend) ApplyFill(order *core.Order, trade *core.Trade) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.orders[order.ID()]; !exists {
		return core.ErrNonexistentOrder
	}

	b.orders[order.ID()] = order.Clone()
	b.trades = append(b.trades, trade)
	return nil
}

// ListTrades returns all trades in insertion order
func (b *MemoryBackend) ListTrades() []*core.Trade {
	b.RLock()
	defer b.RUnlock()

	trades := make([]*core.Trade, len(b.trades))
	copy(trades, b.trades)
	return trades
}

// StoreToken stores a registry entry, enforcing case-insensitive
// uniqueness on the token address
func (b *MemoryBackend) StoreToken(info *core.TokenInfo) error {
	b.Lock()
	defer b.Unlock()

	key := core.NormalizeAddress(info.Token)
	if _, exists := b.tokens[key]; exists {
		return core.ErrTokenExists
	}

	stored := *info
	b.tokens[key] = &stored
	b.tokenIDs = append(b.tokenIDs, key)
	return nil
}

// GetToken retrieves a registry entry by address, case-insensitively
func (b *MemoryBackend) GetToken(token string) *core.TokenInfo {
	b.RLock()
	defer b.RUnlock()

	info, ok := b.tokens[core.NormalizeAddress(token)]
	if !ok {
		return nil
	}
	out := *info
	return &out
}

// ListTokens returns all registry entries in insertion order
func (b *MemoryBackend) ListTokens() []*core.TokenInfo {
	b.RLock()
	defer b.RUnlock()

	tokens := make([]*core.TokenInfo, 0, len(b.tokenIDs))
	for _, key := range b.tokenIDs {
		out := *b.tokens[key]
		tokens = append(tokens, &out)
	}
	return tokens
}

// StoreIntent stores a new purchase intent
func (b *MemoryBackend) StoreIntent(intent *core.PurchaseIntent) error {
	b.Lock()
	defer b.Unlock()

	stored := *intent
	b.intents[intent.ID] = &stored
	b.intentID = append(b.intentID, intent.ID)
	return nil
}

// UpdateIntent replaces an existing purchase intent
func (b *MemoryBackend) UpdateIntent(intent *core.PurchaseIntent) error {
	b.Lock()
	defer b.Unlock()

	if _, exists := b.intents[intent.ID]; !exists {
		return core.ErrNonexistentIntent
	}

	stored := *intent
	b.intents[intent.ID] = &stored
	return nil
}

// ListIntents returns all purchase intents in insertion order
func (b *MemoryBackend) ListIntents() []*core.PurchaseIntent {
	b.RLock()
	defer b.RUnlock()

	intents := make([]*core.PurchaseIntent, 0, len(b.intentID))
	for _, id := range b.intentID {
		out := *b.intents[id]
		intents = append(intents, &out)
	}
	return intents
}

// Close releases nothing for the in-memory backend
func (b *MemoryBackend) Close() error {
	return nil
}

// Ensure MemoryBackend implements the Backend interface
var _ core.Backend = (*MemoryBackend)(nil)
