package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	appadmin "github.com/Zhima-Mochi/miniapp-storefront/internal/application/admin"
	appauth "github.com/Zhima-Mochi/miniapp-storefront/internal/application/auth"
	appcatalog "github.com/Zhima-Mochi/miniapp-storefront/internal/application/catalog"
	appcheckout "github.com/Zhima-Mochi/miniapp-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/session"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/commerce"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/token"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"

	maxBodyBytes             = 1 << 20
	defaultCountdownInterval = time.Second
)

var (
	errUnauthorized = errors.New("authorization required")
	errForbidden    = errors.New("admin access required")
	errRateLimited  = errors.New("too many requests")
	errBadID        = fmt.Errorf("%w: id must be a positive integer", application.ErrValidation)
	errBadQuery     = fmt.Errorf("%w: malformed query parameter", application.ErrValidation)
)

// TokenVerifier checks a BFF bearer token.
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// Services are the use cases the router exposes.
type Services struct {
	Auth     *appauth.Service
	Checkout *appcheckout.Service
	Catalog  *appcatalog.Service
	Admin    *appadmin.Service
}

type Options struct {
	RateLimit      RateLimit
	AllowedOrigins []string
	// CountdownInterval is the tick of the section countdown socket.
	CountdownInterval time.Duration
	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
}

type Handler struct {
	auth     *appauth.Service
	checkout *appcheckout.Service
	catalog  *appcatalog.Service
	admin    *appadmin.Service
	tokens   TokenVerifier

	metrics  http.Handler
	limiter  *rateLimiter
	cors     *corsPolicy
	upgrader websocket.Upgrader
	interval time.Duration

	log observability.Logger
	tel observability.Observability
}

func NewHandler(svc Services, tokens TokenVerifier, opts Options, logger observability.Logger,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	interval := opts.CountdownInterval
	if interval <= 0 {
		interval = defaultCountdownInterval
	}
	h := &Handler{
		auth:     svc.Auth,
		checkout: svc.Checkout,
		catalog:  svc.Catalog,
		admin:    svc.Admin,
		tokens:   tokens,
		metrics:  opts.Metrics,
		limiter:  newRateLimiter(opts.RateLimit),
		cors:     newCORSPolicy(opts.AllowedOrigins),
		interval: interval,
		log:      baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || h.cors.allows(origin)
		},
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, middleware.Recoverer, h.cors.Handler)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})

	// Trace → request logger → access log → HTTP metrics → guards → rate limit → handler
	h.handle(r, http.MethodGet, "/health", h.handleHealth)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	h.authRoutes(r)
	h.checkoutRoutes(r)
	h.catalogRoutes(r)
	h.adminRoutes(r)
	return r
}

// handle registers pattern with the full middleware chain. Guards run outermost
// first, before the rate limiter, so limits can key on the shopper.
func (h *Handler) handle(r chi.Router, method, pattern string, handler http.HandlerFunc, guards ...func(http.Handler) http.Handler) {
	var inner http.Handler = h.withRateLimit(handler)
	for i := len(guards) - 1; i >= 0; i-- {
		inner = guards[i](inner)
	}
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
			h.tel,
		)(
			h.withAccessLog(
				h.withHTTPMetrics(inner),
			),
		),
	)
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Store stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), pattern)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("storefront.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		template := routeFromContext(parentCtx)
		if template == "unknown" {
			template = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			r.Method+" "+template,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

// withHTTPMetrics records RED-ish HTTP metrics using injected vectors.
// DO NOT new metrics inside the middleware.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	requests := h.tel.Metrics().Counter(observability.MHTTPRequests)
	duration := h.tel.Metrics().Histogram(observability.MHTTPRequestDuration)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		requests.Add(1, labels...)
		duration.Observe(time.Since(start).Seconds(), labels...)
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", application.ErrValidation, err)
	}
	return nil
}

// readRaw returns the request body for passthrough endpoints. An empty body
// yields a nil message.
func readRaw(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", application.ErrValidation, err)
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", application.ErrValidation)
	}
	return json.RawMessage(body), nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errBadQuery, name)
	}
	return v, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errBadQuery, name)
	}
	return v, nil
}

func pageParams(r *http.Request) (limit, offset int, err error) {
	if limit, err = queryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if offset, err = queryInt(r, "offset", 0); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var rejected *appcheckout.RejectedError
	var apiErr *commerce.APIError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: rejected.Message})
	case errors.Is(err, promo.ErrPromoActive),
		errors.Is(err, application.ErrInFlight):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, errUnauthorized),
		errors.Is(err, token.ErrInvalid),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, appauth.ErrRejected):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, errForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrUnknownResource):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, appauth.ErrInitDataRequired),
		errors.Is(err, appcheckout.ErrSessionEmpty),
		errors.Is(err, promo.ErrCodeRequired),
		errors.Is(err, catalog.ErrInvalidID),
		errors.Is(err, catalog.ErrInvalidRating),
		errors.Is(err, catalog.ErrInvalidModeration),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, cart.ErrInvalidItem),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrInvalidBonus),
		errors.Is(err, bonus.ErrInvalidAdjustment),
		errors.Is(err, bonus.ErrNegativeBalance),
		errors.Is(err, bonus.ErrUserRequired),
		errors.Is(err, bonus.ErrUnknownAdjustment):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &apiErr):
		writeRemoteError(w, apiErr)
	case errors.Is(err, commerce.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to send
		w.WriteHeader(499)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// writeRemoteError passes client errors through with the server's detail and
// reports server errors as a bad gateway.
func writeRemoteError(w http.ResponseWriter, apiErr *commerce.APIError) {
	msg := apiErr.Message()
	if msg == "" {
		msg = http.StatusText(apiErr.Status)
	}
	status := apiErr.Status
	if status < 400 || status >= 500 {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorBody{Error: msg})
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
