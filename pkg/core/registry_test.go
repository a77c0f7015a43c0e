package core

import (
	"testing"
)

func TestAddTokenFirstWriterWins(t *testing.T) {
	registry := NewRegistry(newMockBackend())

	first, err := registry.AddToken(&TokenInfo{
		ChainID: 1,
		Token:   "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		Name:    "First Token",
		Symbol:  "FST",
	})
	if err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}

	// Re-registering, even with different metadata, keeps the original
	second, err := registry.AddToken(&TokenInfo{
		ChainID: 99,
		Token:   "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		Name:    "Impostor",
		Symbol:  "BAD",
	})
	if err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}

	if second.Name != first.Name || second.Symbol != first.Symbol || second.ChainID != first.ChainID {
		t.Errorf("Re-registration replaced the stored entry: got %+v, want %+v", second, first)
	}

	if len(registry.ListTokens()) != 1 {
		t.Errorf("Expected 1 registered token, got %d", len(registry.ListTokens()))
	}
}

func TestAddTokenCaseInsensitive(t *testing.T) {
	registry := NewRegistry(newMockBackend())

	if _, err := registry.AddToken(&TokenInfo{
		ChainID: 1,
		Token:   "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		Symbol:  "FST",
	}); err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}

	// The checksummed casing is the same token
	entry, err := registry.AddToken(&TokenInfo{
		ChainID: 1,
		Token:   "0xAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCd",
		Symbol:  "DUP",
	})
	if err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}
	if entry.Symbol != "FST" {
		t.Errorf("Expected existing entry FST, got %s", entry.Symbol)
	}

	if got := registry.GetToken("0xABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD"); got == nil {
		t.Error("Expected case-insensitive lookup to find the token")
	}

	if len(registry.ListTokens()) != 1 {
		t.Errorf("Expected 1 registered token, got %d", len(registry.ListTokens()))
	}
}

func TestGetTokenUnknown(t *testing.T) {
	registry := NewRegistry(newMockBackend())
	if registry.GetToken("0x0000000000000000000000000000000000000000") != nil {
		t.Error("Expected nil for unknown token")
	}
}

func TestAddTokenSetsCreatedAt(t *testing.T) {
	registry := NewRegistry(newMockBackend())

	entry, err := registry.AddToken(&TokenInfo{
		ChainID: 1,
		Token:   "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
	})
	if err != nil {
		t.Fatalf("AddToken failed: %v", err)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestIntentLifecycle(t *testing.T) {
	registry := NewRegistry(newMockBackend())

	intent, err := registry.AddIntent(
		"0xAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCdEfAbCd",
		"0x2222222222222222222222222222222222222222",
		"5000")
	if err != nil {
		t.Fatalf("AddIntent failed: %v", err)
	}

	if intent.Status != IntentPending {
		t.Errorf("Expected pending intent, got %v", intent.Status)
	}
	if intent.Token != "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd" {
		t.Errorf("Expected normalized token address, got %s", intent.Token)
	}

	approved, err := registry.ReviewIntent(intent.ID, true)
	if err != nil {
		t.Fatalf("ReviewIntent failed: %v", err)
	}
	if approved.Status != IntentApproved {
		t.Errorf("Expected approved intent, got %v", approved.Status)
	}

	// Review is one-way
	if _, err := registry.ReviewIntent(intent.ID, false); err != ErrIntentClosed {
		t.Errorf("Expected ErrIntentClosed, got %v", err)
	}

	// Unknown intents are reported as such
	if _, err := registry.ReviewIntent("no-such-intent", true); err != ErrNonexistentIntent {
		t.Errorf("Expected ErrNonexistentIntent, got %v", err)
	}

	if len(registry.ListIntents()) != 1 {
		t.Errorf("Expected 1 intent, got %d", len(registry.ListIntents()))
	}
}

func TestIntentReject(t *testing.T) {
	registry := NewRegistry(newMockBackend())

	intent, err := registry.AddIntent(
		"0xabcdefabcdefabcdefabcdefabcdefabcdefabcd",
		"0x2222222222222222222222222222222222222222",
		"100")
	if err != nil {
		t.Fatalf("AddIntent failed: %v", err)
	}

	rejected, err := registry.ReviewIntent(intent.ID, false)
	if err != nil {
		t.Fatalf("ReviewIntent failed: %v", err)
	}
	if rejected.Status != IntentRejected {
		t.Errorf("Expected rejected intent, got %v", rejected.Status)
	}
}
