package httppresentation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/session"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/commerce"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
)

type sessionKey struct{}

func contextWithSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

func sessionFromContext(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(session.Session)
	return sess, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}

// requireSession resolves the bearer token to a stored session. The remote
// API token of that session is attached for outbound calls.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeDomainError(w, errUnauthorized)
			return
		}
		claims, err := h.tokens.Verify(raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		sess, err := h.auth.Restore(r.Context(), claims.SessionID)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				logctx.FromOr(r.Context(), h.log).Error("session_restore_error",
					observability.F("error", err.Error()))
			}
			writeDomainError(w, err)
			return
		}

		ctx := contextWithSession(r.Context(), sess)
		ctx = commerce.WithToken(ctx, sess.Token)
		ctx = logctx.Enrich(ctx, h.log, observability.F("user_id", sess.UserID))
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("user.id", sess.UserID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must run after requireSession.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFromContext(r.Context())
		if !ok {
			writeDomainError(w, errUnauthorized)
			return
		}
		if !sess.IsAdmin {
			logctx.FromOr(r.Context(), h.log).Warn("admin_access_denied",
				observability.F("route", routeFromContext(r.Context())))
			writeDomainError(w, errForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mustSession returns the session placed by requireSession.
func mustSession(r *http.Request) session.Session {
	sess, _ := sessionFromContext(r.Context())
	return sess
}
