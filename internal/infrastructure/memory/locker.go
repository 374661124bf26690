package memory

import (
	"context"
	"sync"
	"time"
)

// Locker is the single-process counterpart of the Redis in-flight lock.
type Locker struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	locks map[string]time.Time
}

func NewLocker(ttl time.Duration) *Locker {
	return &Locker{ttl: ttl, now: time.Now, locks: make(map[string]time.Time)}
}

func (l *Locker) TryLock(ctx context.Context, scope, key string) (bool, error) {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	k := scope + ":" + key
	now := l.now()
	if exp, held := l.locks[k]; held && (l.ttl <= 0 || now.Before(exp)) {
		return false, nil
	}
	l.locks[k] = now.Add(l.ttl)
	return true, nil
}

func (l *Locker) Unlock(ctx context.Context, scope, key string) error {
	_ = ctx

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, scope+":"+key)
	return nil
}
