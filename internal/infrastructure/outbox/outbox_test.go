package outbox

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil, Options{})
	var got atomic.Int32
	bus.Subscribe("promo.applied", func(ctx context.Context, e domoutbox.Event) error {
		got.Add(1)
		return nil
	})
	bus.Subscribe("promo.applied", func(ctx context.Context, e domoutbox.Event) error {
		panic("boom")
	})
	bus.Start(context.Background())

	require.NoError(t, bus.Publish(context.Background(), testEvent{"promo.applied"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{"order.placed"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bus.Stop(ctx)

	assert.Equal(t, int32(1), got.Load())
}

func TestBus_PublishAfterStop(t *testing.T) {
	bus := NewBus(nil, Options{Buffer: 1})
	bus.Start(context.Background())
	bus.Stop(context.Background())

	err := bus.Publish(context.Background(), testEvent{"order.placed"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}

func TestBus_PublishHonoursContext(t *testing.T) {
	bus := NewBus(nil, Options{Buffer: 1})
	require.NoError(t, bus.Publish(context.Background(), testEvent{"a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := bus.Publish(ctx, testEvent{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}
