package core

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"sync"
	"testing"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/otcbook/pkg/db/queue"
	"github.com/erain9/otcbook/pkg/messaging"
)

// sharedFillSink records every fill published during the tests. The
// sender pool is initialized once per process, so the mock factory must
// be installed before the first fill is published.
var sharedFillSink = messaging.NewMockMessageSender()

func TestMain(m *testing.M) {
	queue.SetSenderFactory(func() (messaging.MessageSender, error) {
		return sharedFillSink, nil
	})
	os.Exit(m.Run())
}

// mockBackend implements the Backend interface for testing
type mockBackend struct {
	mu      sync.Mutex
	orders  map[string]*Order
	ids     []string
	trades  []*Trade
	tokens  map[string]*TokenInfo
	intents map[string]*PurchaseIntent
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		orders:  make(map[string]*Order),
		tokens:  make(map[string]*TokenInfo),
		intents: make(map[string]*PurchaseIntent),
	}
}

func (m *mockBackend) GetOrder(orderID string) *Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil
	}
	return order.Clone()
}

func (m *mockBackend) StoreOrder(order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID()]; ok {
		return ErrOrderExists
	}
	m.orders[order.ID()] = order.Clone()
	m.ids = append(m.ids, order.ID())
	return nil
}

func (m *mockBackend) UpdateOrder(order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID()]; !ok {
		return ErrNonexistentOrder
	}
	m.orders[order.ID()] = order.Clone()
	return nil
}

func (m *mockBackend) ListOrders() []*Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := make([]*Order, 0, len(m.ids))
	for _, id := range m.ids {
		orders = append(orders, m.orders[id].Clone())
	}
	return orders
}

func (m *mockBackend) ApplyFill(order *Order, trade *Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID()]; !ok {
		return ErrNonexistentOrder
	}
	m.orders[order.ID()] = order.Clone()
	m.trades = append(m.trades, trade)
	return nil
}

func (m *mockBackend) ListTrades() []*Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Trade(nil), m.trades...)
}

func (m *mockBackend) StoreToken(info *TokenInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := NormalizeAddress(info.Token)
	if _, ok := m.tokens[addr]; ok {
		return ErrTokenExists
	}
	m.tokens[addr] = info
	return nil
}

func (m *mockBackend) GetToken(token string) *TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[NormalizeAddress(token)]
}

func (m *mockBackend) ListTokens() []*TokenInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := make([]*TokenInfo, 0, len(m.tokens))
	for _, info := range m.tokens {
		tokens = append(tokens, info)
	}
	return tokens
}

func (m *mockBackend) StoreIntent(intent *PurchaseIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[intent.ID] = intent
	return nil
}

func (m *mockBackend) UpdateIntent(intent *PurchaseIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intents[intent.ID]; !ok {
		return ErrNonexistentIntent
	}
	m.intents[intent.ID] = intent
	return nil
}

func (m *mockBackend) ListIntents() []*PurchaseIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	intents := make([]*PurchaseIntent, 0, len(m.intents))
	for _, intent := range m.intents {
		intents = append(intents, intent)
	}
	return intents
}

func (m *mockBackend) Close() error { return nil }

func newTestOrder(t *testing.T, side Side, price float64, amount int64) *Order {
	t.Helper()
	order, err := NewOrder(NewOrderID(), testToken, testOwner, side,
		fpdecimal.FromFloat(price), big.NewInt(amount))
	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}
	return order
}

func TestSubmitAndGetOrder(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 1000)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	got := book.GetOrder(order.ID())
	if got == nil {
		t.Fatal("Expected stored order, got nil")
	}
	if got.Status() != StatusOpen {
		t.Errorf("Expected status open, got %v", got.Status())
	}

	// Duplicate ID is rejected
	if err := book.Submit(ctx, order); err != ErrOrderExists {
		t.Errorf("Expected ErrOrderExists, got %v", err)
	}

	if book.GetOrder("no-such-order") != nil {
		t.Error("Expected nil for unknown order ID")
	}
}

func TestAcceptPartialThenFull(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 1000)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// First accept takes 400 of 1000
	result, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(400))
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if result.FilledAmount.Cmp(big.NewInt(400)) != 0 {
		t.Errorf("Expected FilledAmount 400, got %v", result.FilledAmount)
	}
	if result.Status != StatusPartial {
		t.Errorf("Expected status partial, got %v", result.Status)
	}
	if result.Trade == nil {
		t.Fatal("Expected a trade record")
	}
	if result.Trade.Amount.Cmp(big.NewInt(400)) != 0 {
		t.Errorf("Expected trade amount 400, got %v", result.Trade.Amount)
	}
	if result.Trade.Maker != testOwner {
		t.Errorf("Expected trade maker %s, got %s", testOwner, result.Trade.Maker)
	}
	if result.Trade.Taker != testTaker {
		t.Errorf("Expected trade taker %s, got %s", testTaker, result.Trade.Taker)
	}

	stored := book.GetOrder(order.ID())
	if stored.Remaining().Cmp(big.NewInt(600)) != 0 {
		t.Errorf("Expected remaining 600, got %v", stored.Remaining())
	}

	// Second accept takes the remaining 600
	result, err = book.Accept(ctx, order.ID(), testTaker, big.NewInt(600))
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if result.Status != StatusFilled {
		t.Errorf("Expected status filled, got %v", result.Status)
	}

	stored = book.GetOrder(order.ID())
	if stored.Remaining().Sign() != 0 {
		t.Errorf("Expected remaining 0, got %v", stored.Remaining())
	}

	// A filled order takes no further accepts
	if _, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(1)); err != ErrOrderClosed {
		t.Errorf("Expected ErrOrderClosed, got %v", err)
	}

	if len(book.Trades(testToken)) != 2 {
		t.Errorf("Expected 2 trades, got %d", len(book.Trades(testToken)))
	}
}

func TestAcceptWholeRemainingWhenNil(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Buy, 1.0, 500)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := book.Accept(ctx, order.ID(), testTaker, nil)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if result.FilledAmount.Cmp(big.NewInt(500)) != 0 {
		t.Errorf("Expected FilledAmount 500, got %v", result.FilledAmount)
	}
	if result.Status != StatusFilled {
		t.Errorf("Expected status filled, got %v", result.Status)
	}
}

func TestAcceptValidation(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 100)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	tests := []struct {
		name    string
		orderID string
		amount  *big.Int
		wantErr error
	}{
		{"Unknown order", "no-such-order", big.NewInt(1), ErrNonexistentOrder},
		{"Zero fill", order.ID(), big.NewInt(0), ErrInvalidFill},
		{"Negative fill", order.ID(), big.NewInt(-10), ErrInvalidFill},
		{"Overfill", order.ID(), big.NewInt(101), ErrInvalidFill},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := book.Accept(ctx, tt.orderID, testTaker, tt.amount); err != tt.wantErr {
				t.Errorf("Accept() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Rejected accepts leave the order untouched
	stored := book.GetOrder(order.ID())
	if stored.Filled().Sign() != 0 {
		t.Errorf("Expected no fills after rejected accepts, got %v", stored.Filled())
	}
	if len(book.Trades("")) != 0 {
		t.Errorf("Expected no trades after rejected accepts, got %d", len(book.Trades("")))
	}
}

func TestCancel(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 1000)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Only the owner can cancel
	if err := book.Cancel(ctx, order.ID(), testTaker); err != ErrNotOwner {
		t.Errorf("Expected ErrNotOwner, got %v", err)
	}

	// Partial fill, then the owner cancels
	if _, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(300)); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if err := book.Cancel(ctx, order.ID(), testOwner); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	stored := book.GetOrder(order.ID())
	if stored.Status() != StatusCancelled {
		t.Errorf("Expected status cancelled, got %v", stored.Status())
	}
	if stored.Filled().Cmp(big.NewInt(300)) != 0 {
		t.Errorf("Cancel must keep prior fills, got %v", stored.Filled())
	}

	// Cancelled orders reject further cancels and accepts
	if err := book.Cancel(ctx, order.ID(), testOwner); err != ErrOrderClosed {
		t.Errorf("Expected ErrOrderClosed, got %v", err)
	}
	if _, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(1)); err != ErrOrderClosed {
		t.Errorf("Expected ErrOrderClosed, got %v", err)
	}

	// Cancelling an unknown order reports it as nonexistent
	if err := book.Cancel(ctx, "no-such-order", testOwner); err != ErrNonexistentOrder {
		t.Errorf("Expected ErrNonexistentOrder, got %v", err)
	}
}

func TestCancelChecksummedOwner(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	owner := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	order, err := NewOrder(NewOrderID(), testToken, owner, Sell,
		fpdecimal.FromFloat(2.5), big.NewInt(100))
	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// The checksummed casing of the same address still owns the order
	checksummed := "0xAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCd"
	if err := book.Cancel(ctx, order.ID(), checksummed); err != nil {
		t.Errorf("Expected checksummed owner to cancel, got %v", err)
	}
}

func TestConcurrentFullAcceptExactlyOneSucceeds(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 1000)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	const racers = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(1000)); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly 1 successful full accept, got %d", successes)
	}

	stored := book.GetOrder(order.ID())
	if stored.Filled().Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("Expected Filled 1000, got %v", stored.Filled())
	}
	if stored.Status() != StatusFilled {
		t.Errorf("Expected status filled, got %v", stored.Status())
	}
}

func TestConcurrentPartialAcceptsNeverOverfill(t *testing.T) {
	backend := newMockBackend()
	book := NewOrderBook(backend)
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 1000)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	const racers = 30
	var wg sync.WaitGroup
	var mu sync.Mutex
	totalFilled := new(big.Int)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(100))
			if err != nil {
				return
			}
			mu.Lock()
			totalFilled.Add(totalFilled, result.FilledAmount)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// 30 racers asked for 100 each; only 10 can fit into 1000
	if totalFilled.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("Expected total filled 1000, got %v", totalFilled)
	}

	stored := book.GetOrder(order.ID())
	if stored.Filled().Cmp(stored.Amount()) != 0 {
		t.Errorf("Filled %v exceeds or undershoots amount %v", stored.Filled(), stored.Amount())
	}

	// One trade per successful accept
	if len(backend.ListTrades()) != 10 {
		t.Errorf("Expected 10 trades, got %d", len(backend.ListTrades()))
	}
}

func TestSnapshotOrdering(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	submit := func(side Side, price float64, amount int64) *Order {
		order := newTestOrder(t, side, price, amount)
		if err := book.Submit(ctx, order); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		return order
	}

	buyLow := submit(Buy, 1.0, 100)
	buyHighFirst := submit(Buy, 2.0, 100)
	buyHighSecond := submit(Buy, 2.0, 100)
	sellHigh := submit(Sell, 5.0, 100)
	sellLow := submit(Sell, 3.0, 100)
	filled := submit(Sell, 4.0, 100)
	cancelled := submit(Buy, 9.0, 100)

	// Closed orders must not appear in the projection
	if _, err := book.Accept(ctx, filled.ID(), testTaker, nil); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if err := book.Cancel(ctx, cancelled.ID(), testOwner); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// Orders for another token must not appear either
	other, err := NewOrder(NewOrderID(), "0x9999999999999999999999999999999999999999",
		testOwner, Sell, fpdecimal.FromFloat(1.0), big.NewInt(100))
	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}
	if err := book.Submit(ctx, other); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snapshot := book.Snapshot(testToken)

	wantBuys := []string{buyHighFirst.ID(), buyHighSecond.ID(), buyLow.ID()}
	if len(snapshot.Buys) != len(wantBuys) {
		t.Fatalf("Expected %d buys, got %d", len(wantBuys), len(snapshot.Buys))
	}
	for i, want := range wantBuys {
		if snapshot.Buys[i].ID() != want {
			t.Errorf("Buys[%d] = %s, want %s", i, snapshot.Buys[i].ID(), want)
		}
	}

	wantSells := []string{sellLow.ID(), sellHigh.ID()}
	if len(snapshot.Sells) != len(wantSells) {
		t.Fatalf("Expected %d sells, got %d", len(wantSells), len(snapshot.Sells))
	}
	for i, want := range wantSells {
		if snapshot.Sells[i].ID() != want {
			t.Errorf("Sells[%d] = %s, want %s", i, snapshot.Sells[i].ID(), want)
		}
	}
}

func TestSnapshotMixedCaseToken(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 100)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snapshot := book.Snapshot("0x1111111111111111111111111111111111111111")
	if len(snapshot.Sells) != 1 {
		t.Errorf("Expected checksummed token query to match, got %d sells", len(snapshot.Sells))
	}
}

func TestTradesFilter(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	first := newTestOrder(t, Sell, 2.5, 100)
	if err := book.Submit(ctx, first); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := book.Accept(ctx, first.ID(), testTaker, nil); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	otherToken := "0x9999999999999999999999999999999999999999"
	second, err := NewOrder(NewOrderID(), otherToken, testOwner, Sell,
		fpdecimal.FromFloat(1.0), big.NewInt(50))
	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}
	if err := book.Submit(ctx, second); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := book.Accept(ctx, second.ID(), testTaker, nil); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	if got := len(book.Trades("")); got != 2 {
		t.Errorf("Expected 2 trades unfiltered, got %d", got)
	}
	if got := len(book.Trades(testToken)); got != 1 {
		t.Errorf("Expected 1 trade for token, got %d", got)
	}
	if got := len(book.Trades(otherToken)); got != 1 {
		t.Errorf("Expected 1 trade for other token, got %d", got)
	}
	if got := len(book.Trades("0x0000000000000000000000000000000000000000")); got != 0 {
		t.Errorf("Expected 0 trades for unknown token, got %d", got)
	}
}

func TestFillMessagePublished(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	before := len(sharedFillSink.SentFills())

	order := newTestOrder(t, Sell, 2.5, 1000)
	order.SetSettlement(42, "0x5555555555555555555555555555555555555555")
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(400)); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	fills := sharedFillSink.SentFills()
	if len(fills) != before+1 {
		t.Fatalf("Expected 1 published fill, got %d", len(fills)-before)
	}

	fill := fills[len(fills)-1]
	if fill.OrderID != order.ID() {
		t.Errorf("Expected OrderID %s, got %s", order.ID(), fill.OrderID)
	}
	if fill.FillAmount != "400" {
		t.Errorf("Expected FillAmount 400, got %s", fill.FillAmount)
	}
	if fill.Remaining != "600" {
		t.Errorf("Expected Remaining 600, got %s", fill.Remaining)
	}
	if fill.Status != string(StatusPartial) {
		t.Errorf("Expected status partial, got %s", fill.Status)
	}
	if fill.LotID != 42 {
		t.Errorf("Expected LotID 42, got %d", fill.LotID)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid", "1000", false},
		{"Huge", "340282366920938463463374607431768211456", false},
		{"Zero", "0", true},
		{"Negative", "-5", true},
		{"Decimal", "1.5", true},
		{"Garbage", "lots", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && err != ErrInvalidQuantity {
				t.Errorf("Expected ErrInvalidQuantity, got %v", err)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Valid", "2.50", false},
		{"Integer", "100", false},
		{"MantissaMax", "9223372036854775.807", false},
		{"Zero", "0", true},
		{"Negative", "-1.5", true},
		{"SubMilli", "0.0001", true},
		{"MantissaOverflow", "9223372036854775.808", true},
		{"HugeInteger", "123456789012345678901234567890", true},
		{"Garbage", "cheap", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrice(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePrice(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && err != ErrInvalidPrice {
				t.Errorf("Expected ErrInvalidPrice, got %v", err)
			}
		})
	}
}

func lockCount(ob *OrderBook) int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.locks)
}

func TestLockMapDoesNotGrowOnGhostOrders(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("ghost-%d", i)
		if _, err := book.Accept(ctx, id, testTaker, big.NewInt(1)); err != ErrNonexistentOrder {
			t.Fatalf("Accept(%q) error = %v, want ErrNonexistentOrder", id, err)
		}
		if err := book.Cancel(ctx, id, testOwner); err != ErrNonexistentOrder {
			t.Fatalf("Cancel(%q) error = %v, want ErrNonexistentOrder", id, err)
		}
	}

	if n := lockCount(book); n != 0 {
		t.Errorf("locks map holds %d entries, want 0", n)
	}
}

func TestLockMapReleasedOnClosedOrder(t *testing.T) {
	book := NewOrderBook(newMockBackend())
	ctx := context.Background()

	order := newTestOrder(t, Sell, 2.5, 1000)
	if err := book.Submit(ctx, order); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := book.Accept(ctx, order.ID(), testTaker, nil); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if n := lockCount(book); n != 0 {
		t.Errorf("locks map holds %d entries after fill, want 0", n)
	}

	// A late accept against the filled order must not leave an entry
	if _, err := book.Accept(ctx, order.ID(), testTaker, big.NewInt(1)); err != ErrOrderClosed {
		t.Fatalf("Accept on filled order error = %v, want ErrOrderClosed", err)
	}
	if n := lockCount(book); n != 0 {
		t.Errorf("locks map holds %d entries after rejected accept, want 0", n)
	}
}
