package cachepolicy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache map[string][]byte

func (m mapCache) Get(_ context.Context, key string, dst any) error {
	raw, ok := m[key]
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (m mapCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m[key] = raw
	return nil
}

func TestFetch_ZeroStaleTimeAlwaysLoads(t *testing.T) {
	c := mapCache{}
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a"}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), Policy{}, c, "k", load)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, v)
	}
	assert.Equal(t, 3, calls)
	assert.Empty(t, c)
}

func TestFetch_ServesFromCache(t *testing.T) {
	c := mapCache{}
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}
	p := Policy{StaleTime: time.Minute}

	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), p, c, "k", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)
}

func TestFetch_LoadErrorNotCached(t *testing.T) {
	c := mapCache{}
	boom := errors.New("boom")
	_, err := Fetch(context.Background(), Policy{StaleTime: time.Minute}, c, "k", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c)
}

type brokenCache struct{ err error }

func (b brokenCache) Get(context.Context, string, any) error { return b.err }

func (b brokenCache) Set(context.Context, string, any, time.Duration) error { return b.err }

type warnLog struct {
	mu   sync.Mutex
	msgs []string
}

func (l *warnLog) With(...observability.Field) observability.Logger { return l }
func (l *warnLog) Debug(string, ...observability.Field)            {}
func (l *warnLog) Info(string, ...observability.Field)             {}
func (l *warnLog) Error(string, ...observability.Field)            {}
func (l *warnLog) Warn(msg string, _ ...observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func TestFetch_CacheFailuresAreLoggedNotReturned(t *testing.T) {
	log := &warnLog{}
	ctx := logctx.With(context.Background(), log)
	c := brokenCache{err: errors.New("redis down")}

	v, err := Fetch(ctx, Policy{StaleTime: time.Minute}, c, "k", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, []string{"cache_read_failed", "cache_write_failed"}, log.msgs)
}

func TestFetch_MissIsNotLogged(t *testing.T) {
	log := &warnLog{}
	ctx := logctx.With(context.Background(), log)

	_, err := Fetch(ctx, Policy{StaleTime: time.Minute}, mapCache{}, "k", func(context.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Empty(t, log.msgs)
}
