package core

// Backend defines the interface for different storage implementations.
// All mutating operations are durable before they return; GetOrder and
// GetToken return nil when no record exists.
type Backend interface {
	// Order operations
	GetOrder(orderID string) *Order
	StoreOrder(order *Order) error
	UpdateOrder(order *Order) error
	ListOrders() []*Order

	// ApplyFill persists the updated order and appends the trade as one
	// atomic unit. Either both survive a crash or neither does.
	ApplyFill(order *Order, trade *Trade) error

	// Trade operations
	ListTrades() []*Trade

	// Token registry operations; token keys are case-insensitive
	StoreToken(info *TokenInfo) error
	GetToken(token string) *TokenInfo
	ListTokens() []*TokenInfo

	// Purchase intent operations
	StoreIntent(intent *PurchaseIntent) error
	UpdateIntent(intent *PurchaseIntent) error
	ListIntents() []*PurchaseIntent

	// Close releases underlying resources
	Close() error
}
