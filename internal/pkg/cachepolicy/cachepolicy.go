// Package cachepolicy decides whether catalog reads may be served from cache.
package cachepolicy

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
)

var ErrCacheMiss = errors.New("cache: miss")

// Policy parameterises a read. A zero StaleTime means always re-fetch.
type Policy struct {
	StaleTime time.Duration
}

func (p Policy) Enabled() bool { return p.StaleTime > 0 }

// Cache stores JSON-encodable values. Get returns ErrCacheMiss when key is absent.
type Cache interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Fetch serves key from c when the policy allows it and loads it otherwise.
// A cache failure never fails the read; it is logged on the request logger.
// Values are served as cached, so anything time-relative inside them is up
// to StaleTime old and must be aged by the caller.
func Fetch[T any](ctx context.Context, p Policy, c Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if !p.Enabled() || c == nil {
		return load(ctx)
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logctx.FromOr(ctx, observability.NopLogger()).Warn("cache_read_failed",
			observability.F("key", key),
			observability.F("error", err.Error()),
		)
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v, p.StaleTime); err != nil {
		logctx.FromOr(ctx, observability.NopLogger()).Warn("cache_write_failed",
			observability.F("key", key),
			observability.F("error", err.Error()),
		)
	}
	return v, nil
}
