package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/checkout"
)

// CheckoutStore keeps checkout state per session in process memory. State is
// lost on restart, which matches a page reload.
type CheckoutStore struct {
	mu     sync.RWMutex
	states map[string]checkout.State
}

func NewCheckoutStore() *CheckoutStore {
	return &CheckoutStore{states: make(map[string]checkout.State)}
}

func (r *CheckoutStore) Load(ctx context.Context, sessionID string) (checkout.State, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.states[sessionID].Clone(), nil
}

// Update runs fn on a copy and stores it only when fn succeeds.
func (r *CheckoutStore) Update(ctx context.Context, sessionID string, fn func(*checkout.State) error) (checkout.State, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.states[sessionID].Clone()
	if err := fn(&next); err != nil {
		return r.states[sessionID].Clone(), err
	}
	r.states[sessionID] = next
	return next.Clone(), nil
}

func (r *CheckoutStore) Delete(ctx context.Context, sessionID string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, sessionID)
	return nil
}

var _ checkout.Store = (*CheckoutStore)(nil)
