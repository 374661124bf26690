package checkout

import "context"

// Store keeps checkout state per session. Update must apply fn atomically
// with respect to other Update calls for the same session.
type Store interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Update(ctx context.Context, sessionID string, fn func(*State) error) (State, error)
	Delete(ctx context.Context, sessionID string) error
}
