// Package commerce is the HTTP client for the remote commerce API, the system
// of record for catalog, cart, orders, bonuses and reviews.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	peerName         = "commerce"
	maxErrorBodySize = 64 << 10
	maxBodySize      = 8 << 20
)

// ErrUnavailable wraps transport failures and an open circuit breaker.
var ErrUnavailable = errors.New("commerce: api unavailable")

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status int
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("commerce: status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("commerce: status %d", e.Status)
}

// Message is the shopper-facing detail, possibly empty.
func (e *APIError) Message() string { return e.Detail }

// Detail returns the human-readable detail carried by err, if any.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// StatusCode returns the remote HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// TestMode suppresses the Authorization header, as the Mini-App does in
	// its local test mode.
	TestMode bool

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	testMode   bool
	breaker    *gobreaker.CircuitBreaker[response]

	log          observability.Logger
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

type response struct {
	status int
	body   []byte
}

// New builds a Client. Outbound requests are traced with otelhttp.
func New(cfg Config, tel observability.Observability) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("commerce: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("commerce: base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	openFor := cfg.BreakerTimeout
	if openFor == 0 {
		openFor = 30 * time.Second
	}
	if tel == nil {
		tel = observability.Nop()
	}

	log := tel.Logger().With(observability.F("component", "commerce_client"))
	breaker := gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:    peerName,
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a caller that went away says nothing about the remote's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit_breaker_state_change",
				observability.F("breaker", name),
				observability.F("from", from.String()),
				observability.F("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		testMode:     cfg.TestMode,
		breaker:      breaker,
		log:          log,
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}, nil
}

type tokenKey struct{}

// WithToken attaches the shopper's bearer token to ctx for outbound calls.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// do sends a JSON request and decodes a JSON answer into out (when non-nil).
// endpoint is a low-cardinality name used for metrics.
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, in, out any) (err error) {
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			if errors.Is(err, ErrUnavailable) {
				outcome = "unavailable"
			}
		}
		c.extCounter.Add(1,
			observability.L("peer", peerName),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerName),
			observability.L("endpoint", endpoint),
		)
	}()

	var payload []byte
	if in != nil {
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("commerce: marshal %s: %w", endpoint, err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	res, err := c.breaker.Execute(func() (response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return response{}, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := tokenFrom(ctx); token != "" && !c.testMode {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()

		limit := int64(maxBodySize)
		if resp.StatusCode >= 400 {
			limit = maxErrorBodySize
		}
		raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return response{}, fmt.Errorf("read body: %w", err)
		}
		r := response{status: resp.StatusCode, body: raw}
		if resp.StatusCode >= 500 {
			// counted as a breaker failure; unwrapped below
			return r, newAPIError(resp.StatusCode, raw)
		}
		return r, nil
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		logctx.FromOr(ctx, c.log).Warn("commerce_request_failed",
			observability.F("endpoint", endpoint),
			observability.F("error", err),
		)
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, endpoint, err)
	}

	if res.status >= 400 {
		return newAPIError(res.status, res.body)
	}
	if out == nil || len(bytes.TrimSpace(res.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("commerce: decode %s: %w", endpoint, err)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{Status: status, Detail: parseDetail(body), Body: strings.TrimSpace(string(body))}
}

// parseDetail extracts a string "detail" field. Structured validation
// details (lists) are not shown to shoppers and yield "".
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}

func pageQuery(limit, offset int) url.Values {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	return q
}
