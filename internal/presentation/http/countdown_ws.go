package httppresentation

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/countdown"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
)

const countdownWriteWait = 5 * time.Second

// handleCountdown streams one frame per tick until the section's countdown
// expires or the client goes away.
func (h *Handler) handleCountdown(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	cd, err := h.catalog.SectionCountdown(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		return
	}
	defer conn.Close()

	logger := logctx.FromOr(r.Context(), h.log).With(observability.F("section_id", id))
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the reader only notices the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = cd.RunEvery(ctx, h.interval, func(f countdown.Frame) error {
		_ = conn.SetWriteDeadline(time.Now().Add(countdownWriteWait))
		return conn.WriteJSON(f)
	})

	outcome := "expired"
	switch {
	case err == nil:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, countdown.Expired.String()),
			time.Now().Add(countdownWriteWait))
	case errors.Is(err, context.Canceled):
		outcome = "disconnected"
	default:
		outcome = "error"
		logger.Warn("countdown_stream_failed", observability.F("error", err.Error()))
	}
	h.tel.Metrics().Counter(observability.MCountdownStreams).Add(1, observability.L("outcome", outcome))
	logger.Debug("countdown_stream_done",
		observability.F("outcome", outcome),
		observability.F("remaining", cd.Remaining()),
	)
}
