package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/pkg/cachepolicy"
	"github.com/redis/go-redis/v9"
)

// Cache is the catalog read cache. Each entry lives for the requested TTL
// plus up to maxJitter so entries written together do not expire together.
type Cache struct {
	client    *redis.Client
	prefix    string
	maxJitter time.Duration
}

func NewCache(client *redis.Client, prefix string, maxJitter time.Duration) *Cache {
	return &Cache{client: client, prefix: prefix, maxJitter: maxJitter}
}

func (c *Cache) Get(ctx context.Context, key string, dst any) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cachepolicy.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if c.maxJitter > 0 {
		ttl += time.Duration(rand.Int63n(int64(c.maxJitter)))
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return "catalog:" + k
	}
	return c.prefix + ":" + k
}

var _ cachepolicy.Cache = (*Cache)(nil)
