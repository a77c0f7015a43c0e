package memory

import (
	"math/big"
	"testing"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/otcbook/pkg/core"
)

const (
	testToken = "0x1111111111111111111111111111111111111111"
	testOwner = "0x2222222222222222222222222222222222222222"
	testTaker = "0x3333333333333333333333333333333333333333"
)

func newTestOrder(t *testing.T, id string) *core.Order {
	t.Helper()
	order, err := core.NewOrder(id, testToken, testOwner, core.Sell,
		fpdecimal.FromFloat(2.5), big.NewInt(1000))
	if err != nil {
		t.Fatalf("NewOrder failed: %v", err)
	}
	return order
}

func TestStoreAndGetOrder(t *testing.T) {
	backend := NewMemoryBackend()

	order := newTestOrder(t, "order-1")
	if err := backend.StoreOrder(order); err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}

	got := backend.GetOrder("order-1")
	if got == nil {
		t.Fatal("Expected stored order, got nil")
	}
	if got.ID() != "order-1" {
		t.Errorf("Expected ID order-1, got %s", got.ID())
	}

	if backend.GetOrder("missing") != nil {
		t.Error("Expected nil for unknown order")
	}

	// Duplicate IDs are rejected
	if err := backend.StoreOrder(order); err != core.ErrOrderExists {
		t.Errorf("Expected ErrOrderExists, got %v", err)
	}
}

func TestGetOrderReturnsCopy(t *testing.T) {
	backend := NewMemoryBackend()

	order := newTestOrder(t, "order-1")
	if err := backend.StoreOrder(order); err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}

	// Mutating a retrieved order must not leak into the store
	first := backend.GetOrder("order-1")
	first.SetSettlement(99, "0x4444444444444444444444444444444444444444")

	second := backend.GetOrder("order-1")
	if second.LotID() != 0 {
		t.Errorf("Store leaked a caller mutation: LotID=%d", second.LotID())
	}
}

func TestUpdateOrder(t *testing.T) {
	backend := NewMemoryBackend()

	order := newTestOrder(t, "order-1")
	if err := backend.UpdateOrder(order); err != core.ErrNonexistentOrder {
		t.Errorf("Expected ErrNonexistentOrder, got %v", err)
	}

	if err := backend.StoreOrder(order); err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}

	updated := order.Clone()
	updated.SetSettlement(7, "")
	if err := backend.UpdateOrder(updated); err != nil {
		t.Fatalf("UpdateOrder failed: %v", err)
	}

	if got := backend.GetOrder("order-1"); got.LotID() != 7 {
		t.Errorf("Expected LotID 7, got %d", got.LotID())
	}
}

func TestListOrdersInsertionOrder(t *testing.T) {
	backend := NewMemoryBackend()

	ids := []string{"order-3", "order-1", "order-2"}
	for _, id := range ids {
		if err := backend.StoreOrder(newTestOrder(t, id)); err != nil {
			t.Fatalf("StoreOrder failed: %v", err)
		}
	}

	orders := backend.ListOrders()
	if len(orders) != len(ids) {
		t.Fatalf("Expected %d orders, got %d", len(ids), len(orders))
	}
	for i, id := range ids {
		if orders[i].ID() != id {
			t.Errorf("orders[%d] = %s, want %s", i, orders[i].ID(), id)
		}
	}
}

func TestApplyFill(t *testing.T) {
	backend := NewMemoryBackend()

	order := newTestOrder(t, "order-1")
	if err := backend.StoreOrder(order); err != nil {
		t.Fatalf("StoreOrder failed: %v", err)
	}

	fill := big.NewInt(400)
	trade := core.NewTrade("trade-1", order, fill, testTaker)

	updated := backend.GetOrder("order-1")
	// ApplyFill persists whatever order state the engine hands it
	if err := backend.ApplyFill(updated, trade); err != nil {
		t.Fatalf("ApplyFill failed: %v", err)
	}

	trades := backend.ListTrades()
	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}
	if trades[0].ID != "trade-1" {
		t.Errorf("Expected trade-1, got %s", trades[0].ID)
	}
	if trades[0].Amount.Cmp(fill) != 0 {
		t.Errorf("Expected trade amount 400, got %v", trades[0].Amount)
	}

	// Filling an unknown order fails and records nothing
	ghost := newTestOrder(t, "ghost")
	if err := backend.ApplyFill(ghost, core.NewTrade("trade-2", ghost, fill, testTaker)); err != core.ErrNonexistentOrder {
		t.Errorf("Expected ErrNonexistentOrder, got %v", err)
	}
	if len(backend.ListTrades()) != 1 {
		t.Errorf("Expected still 1 trade, got %d", len(backend.ListTrades()))
	}
}

func TestTokenStorage(t *testing.T) {
	backend := NewMemoryBackend()

	info := &core.TokenInfo{
		ChainID: 1,
		Token:   "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		Symbol:  "FST",
	}
	if err := backend.StoreToken(info); err != nil {
		t.Fatalf("StoreToken failed: %v", err)
	}

	// Same address under checksummed casing is a duplicate
	dup := &core.TokenInfo{
		ChainID: 1,
		Token:   "0xAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCd",
		Symbol:  "DUP",
	}
	if err := backend.StoreToken(dup); err != core.ErrTokenExists {
		t.Errorf("Expected ErrTokenExists, got %v", err)
	}

	if got := backend.GetToken("0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD"); got == nil || got.Symbol != "FST" {
		t.Errorf("Expected case-insensitive lookup to return FST, got %+v", got)
	}

	if len(backend.ListTokens()) != 1 {
		t.Errorf("Expected 1 token, got %d", len(backend.ListTokens()))
	}
}

func TestIntentStorage(t *testing.T) {
	backend := NewMemoryBackend()

	intent := &core.PurchaseIntent{
		ID:     "intent-1",
		Token:  testToken,
		Buyer:  testTaker,
		Amount: "100",
		Status: core.IntentPending,
	}
	if err := backend.StoreIntent(intent); err != nil {
		t.Fatalf("StoreIntent failed: %v", err)
	}

	missing := &core.PurchaseIntent{ID: "intent-2", Status: core.IntentPending}
	if err := backend.UpdateIntent(missing); err != core.ErrNonexistentIntent {
		t.Errorf("Expected ErrNonexistentIntent, got %v", err)
	}

	reviewed := *intent
	reviewed.Status = core.IntentApproved
	if err := backend.UpdateIntent(&reviewed); err != nil {
		t.Fatalf("UpdateIntent failed: %v", err)
	}

	intents := backend.ListIntents()
	if len(intents) != 1 {
		t.Fatalf("Expected 1 intent, got %d", len(intents))
	}
	if intents[0].Status != core.IntentApproved {
		t.Errorf("Expected approved intent, got %v", intents[0].Status)
	}
}
