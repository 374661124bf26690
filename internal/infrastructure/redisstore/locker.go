package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards a submission against a concurrent duplicate. The TTL bounds
// how long a crashed holder can block the key.
type Locker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	return &Locker{rdb: rdb, ttl: ttl}
}

func (l *Locker) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return l.rdb.SetNX(ctx, lockKey(scope, key), "1", l.ttl).Result()
}

func (l *Locker) Unlock(ctx context.Context, scope, key string) error {
	return l.rdb.Del(ctx, lockKey(scope, key)).Err()
}

func lockKey(scope, key string) string {
	return "inflight:" + scope + ":" + key
}
