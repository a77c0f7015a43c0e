package core

import (
	"time"

	"github.com/google/uuid"
)

// Registry tracks token metadata and purchase intents.
// Token registration is first-writer-wins: registering an address that
// already exists, under any casing, is a silent no-op and never updates
// the stored entry.
type Registry struct {
	backend Backend
}

// NewRegistry creates a Registry over a backend
func NewRegistry(backend Backend) *Registry {
	return &Registry{backend: backend}
}

// AddToken registers a token if its address is not already known.
// Returns the stored entry, which is the existing one when the address
// was registered before.
func (r *Registry) AddToken(info *TokenInfo) (*TokenInfo, error) {
	if existing := r.backend.GetToken(info.Token); existing != nil {
		return existing, nil
	}

	stored := *info
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	err := r.backend.StoreToken(&stored)
	if err == ErrTokenExists {
		// Lost a registration race; first writer wins.
		return r.backend.GetToken(info.Token), nil
	}
	if err != nil {
		return nil, err
	}

	return &stored, nil
}

// GetToken returns the registered entry for an address, nil if unknown
func (r *Registry) GetToken(token string) *TokenInfo {
	return r.backend.GetToken(token)
}

// ListTokens returns every registered token in insertion order
func (r *Registry) ListTokens() []*TokenInfo {
	return r.backend.ListTokens()
}

// AddIntent records a pending purchase intent
func (r *Registry) AddIntent(token, buyer, amount string) (*PurchaseIntent, error) {
	intent := &PurchaseIntent{
		ID:        uuid.NewString(),
		Token:     NormalizeAddress(token),
		Buyer:     NormalizeAddress(buyer),
		Amount:    amount,
		Status:    IntentPending,
		CreatedAt: time.Now(),
	}

	if err := r.backend.StoreIntent(intent); err != nil {
		return nil, err
	}
	return intent, nil
}

// ReviewIntent moves a pending intent to approved or rejected.
// The transition is one-way; reviewing a settled intent fails.
func (r *Registry) ReviewIntent(intentID string, approve bool) (*PurchaseIntent, error) {
	var found *PurchaseIntent
	for _, intent := range r.backend.ListIntents() {
		if intent.ID == intentID {
			found = intent
			break
		}
	}
	if found == nil {
		return nil, ErrNonexistentIntent
	}

	if found.Status != IntentPending {
		return nil, ErrIntentClosed
	}

	updated := *found
	if approve {
		updated.Status = IntentApproved
	} else {
		updated.Status = IntentRejected
	}

	if err := r.backend.UpdateIntent(&updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ListIntents returns every purchase intent in insertion order
func (r *Registry) ListIntents() []*PurchaseIntent {
	return r.backend.ListIntents()
}
