package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/session"
)

// SessionStorage is the in-process session.Storage used in dev and tests.
type SessionStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewSessionStorage() *SessionStorage {
	return &SessionStorage{values: make(map[string]string)}
}

func (s *SessionStorage) Get(ctx context.Context, key string) (string, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", session.ErrNotFound
	}
	return v, nil
}

func (s *SessionStorage) Set(ctx context.Context, key, value string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *SessionStorage) Delete(ctx context.Context, keys ...string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

var _ session.Storage = (*SessionStorage)(nil)
