package workerpresentation

import (
	"context"
	"sync"
	"testing"

	domoutbox "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu     sync.Mutex
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fields = append(l.fields, fields...)
	return l
}
func (l *recordingLogger) Debug(string, ...observability.Field) {}
func (l *recordingLogger) Info(string, ...observability.Field)  {}
func (l *recordingLogger) Warn(string, ...observability.Field)  {}
func (l *recordingLogger) Error(string, ...observability.Field) {}

func (l *recordingLogger) keys() map[string]any {
	out := map[string]any{}
	for _, f := range l.fields {
		out[f.Key] = f.Value
	}
	return out
}

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

type mapSubscriber map[string]domoutbox.Handler

func (m mapSubscriber) Subscribe(name string, h domoutbox.Handler) { m[name] = h }

func TestSubscriber_InjectsEventLogger(t *testing.T) {
	base := &recordingLogger{}
	next := mapSubscriber{}
	sub := NewSubscriber(next, base)

	var got observability.Logger
	sub.Subscribe("order.placed", func(ctx context.Context, e domoutbox.Event) error {
		got = logctx.From(ctx)
		return nil
	})

	require.Contains(t, next, "order.placed")
	require.NoError(t, next["order.placed"](context.Background(), namedEvent("order.placed")))

	require.NotNil(t, got)
	keys := base.keys()
	assert.Equal(t, "order.placed", keys["event"])
	assert.NotEmpty(t, keys["event_id"])
	assert.NotContains(t, keys, "trace_id")
}

func TestWithEventContext_KeepsProvidedEventID(t *testing.T) {
	base := &recordingLogger{}
	WithEventContext(context.Background(), base, map[string]string{"event_id": "e-1", "empty": ""})

	keys := base.keys()
	assert.Equal(t, "e-1", keys["event_id"])
	assert.NotContains(t, keys, "empty")
}
