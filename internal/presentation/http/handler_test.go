package httppresentation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	appadmin "github.com/Zhima-Mochi/miniapp-storefront/internal/application/admin"
	appauth "github.com/Zhima-Mochi/miniapp-storefront/internal/application/auth"
	appcatalog "github.com/Zhima-Mochi/miniapp-storefront/internal/application/catalog"
	appcheckout "github.com/Zhima-Mochi/miniapp-storefront/internal/application/checkout"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/countdown"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/commerce"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/infrastructure/token"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/pkg/cachepolicy"
)

const cartJSON = `{"id":7,"items":[{"id":1,"product_id":3,"product_title":"Пуховик","quantity":1,
	"product_price":2150,"subtotal":2150}],"total_items":1,"total_amount":2150,
	"bonus_balance":1000,"max_bonus_usage":300,"bonus_will_earn":64}`

// fakeAPI is the remote commerce API.
type fakeAPI struct {
	mu          sync.Mutex
	isAdmin     bool
	promoStatus int
	promoBody   string
	restTime    int64
	auths       []string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/telegram", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		fmt.Fprintf(w, `{"ok":true,"access_token":"remote-tok","user_id":5,"telegram_id":77,"is_admin":%t}`, f.isAdmin)
	})
	mux.HandleFunc("GET /cart/{$}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auths = append(f.auths, r.Header.Get("Authorization"))
		f.mu.Unlock()
		_, _ = io.WriteString(w, cartJSON)
	})
	mux.HandleFunc("POST /cart/apply-promo", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.promoStatus != 0 {
			w.WriteHeader(f.promoStatus)
		}
		_, _ = io.WriteString(w, f.promoBody)
	})
	mux.HandleFunc("GET /sections", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		fmt.Fprintf(w, `[{"id":3,"name":"Распродажа","image":"","route":null,"rest_time":%d}]`, f.restTime)
	})
	mux.HandleFunc("GET /admin/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"orders":3}`)
	})
	return mux
}

type harness struct {
	api    *fakeAPI
	server *httptest.Server
}

func newHarness(t *testing.T, api *fakeAPI, opts Options) *harness {
	t.Helper()
	remote := httptest.NewServer(api.handler())
	t.Cleanup(remote.Close)

	client, err := commerce.New(commerce.Config{BaseURL: remote.URL, Timeout: 2 * time.Second}, nil)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.Config{Secret: "test-secret", Issuer: "storefront", Audience: "miniapp"})
	require.NoError(t, err)

	checkout := appcheckout.NewService(client, memory.NewCheckoutStore(), memory.NewLocker(time.Minute), nil, nil)
	h := NewHandler(Services{
		Auth:     appauth.NewService(client, memory.NewSessionStorage(), tokens, checkout, nil),
		Checkout: checkout,
		Catalog:  appcatalog.NewService(client, nil, cachepolicy.Policy{}, nil),
		Admin:    appadmin.NewService(client, nil, nil),
	}, tokens, opts, nil, nil)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &harness{api: api, server: srv}
}

func (h *harness) do(t *testing.T, method, path, bearer string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.server.URL+path, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/auth/telegram", "", map[string]string{"init_data": "query_id=1&hash=abc"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res struct {
		Token string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

type summaryBody struct {
	Promo promo.State `json:"promo"`
	Bonus struct {
		Selected int64 `json:"selected"`
		Limit    int64 `json:"limit"`
	} `json:"bonus"`
	Quote struct {
		FinalAmount decimal.Decimal `json:"final_amount"`
	} `json:"quote"`
}

func TestHealth(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, Options{})
	resp, body := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))
}

func TestCheckout_RequiresBearer(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, Options{})

	resp, _ := h.do(t, http.MethodGet, "/checkout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/checkout", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckoutFlow_PromoAndBonus(t *testing.T) {
	api := &fakeAPI{promoBody: `{"discount":215,"discount_type":"percent","discount_value":10,"cart_total":2150,"new_total":1935}`}
	h := newHarness(t, api, Options{})
	tok := h.login(t)

	resp, body := h.do(t, http.MethodGet, "/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"user_id":5,"telegram_id":77,"is_admin":false}`, string(body))

	resp, body = h.do(t, http.MethodPost, "/checkout/promo", tok, map[string]string{"code": " SALE10 "})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = h.do(t, http.MethodPost, "/checkout/bonus", tok, map[string]string{"amount": "500"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var sum summaryBody
	require.NoError(t, json.Unmarshal(body, &sum))
	require.NotNil(t, sum.Promo.Applied)
	assert.Equal(t, "SALE10", sum.Promo.Applied.Code)
	assert.Equal(t, int64(300), sum.Bonus.Selected)
	assert.Equal(t, int64(300), sum.Bonus.Limit)
	assert.True(t, decimal.NewFromInt(1635).Equal(sum.Quote.FinalAmount), sum.Quote.FinalAmount.String())

	// a number with an exponent is not a digit sequence
	resp, body = h.do(t, http.MethodPost, "/checkout/bonus", tok, map[string]any{"amount": json.RawMessage("1e3")})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Equal(t, int64(0), sum.Bonus.Selected)

	// re-apply is blocked while a promo is active
	resp, _ = h.do(t, http.MethodPost, "/checkout/promo", tok, map[string]string{"code": "OTHER"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.NotEmpty(t, api.auths)
	for _, got := range api.auths {
		assert.Equal(t, "Bearer remote-tok", got)
	}
}

func TestApplyPromo_Rejections(t *testing.T) {
	api := &fakeAPI{promoStatus: http.StatusBadRequest, promoBody: `{"detail":"Промокод истёк"}`}
	h := newHarness(t, api, Options{})
	tok := h.login(t)

	resp, body := h.do(t, http.MethodPost, "/checkout/promo", tok, map[string]string{"code": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Введите промокод"}`, string(body))

	resp, body = h.do(t, http.MethodPost, "/checkout/promo", tok, map[string]string{"code": "OLD"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Промокод истёк"}`, string(body))

	resp, body = h.do(t, http.MethodGet, "/checkout", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum summaryBody
	require.NoError(t, json.Unmarshal(body, &sum))
	assert.Nil(t, sum.Promo.Applied)
	assert.Equal(t, "Промокод истёк", sum.Promo.Error)
}

func TestLogout_InvalidatesSession(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, Options{})
	tok := h.login(t)

	resp, _ := h.do(t, http.MethodPost, "/auth/logout", tok, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_Access(t *testing.T) {
	api := &fakeAPI{}
	h := newHarness(t, api, Options{})
	shopper := h.login(t)

	resp, _ := h.do(t, http.MethodGet, "/admin/stats", shopper, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	api.mu.Lock()
	api.isAdmin = true
	api.mu.Unlock()
	admin := h.login(t)

	resp, body := h.do(t, http.MethodGet, "/admin/stats", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"orders":3}`, string(body))

	resp, _ = h.do(t, http.MethodPost, "/admin/warehouses", admin, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/admin/bonus/add", admin, map[string]any{"user_id": 5, "amount": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateLimit_RejectsBurst(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, Options{RateLimit: RateLimit{RPS: 0.001, Burst: 1}})

	resp, _ := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestCORS_Preflight(t *testing.T) {
	h := newHarness(t, &fakeAPI{}, Options{AllowedOrigins: []string{"https://shop.example"}})

	req, err := http.NewRequest(http.MethodOptions, h.server.URL+"/checkout", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://shop.example", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCountdown_StreamsUntilExpired(t *testing.T) {
	h := newHarness(t, &fakeAPI{restTime: 2}, Options{CountdownInterval: 10 * time.Millisecond})

	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/sections/3/countdown"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	var frames []countdown.Frame
	for {
		var f countdown.Frame
		if err := conn.ReadJSON(&f); err != nil {
			var ce *websocket.CloseError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, websocket.CloseNormalClosure, ce.Code)
			break
		}
		frames = append(frames, f)
	}

	require.Len(t, frames, 3)
	assert.Equal(t, countdown.Frame{Remaining: 2, Text: "0:02", Visible: true}, frames[0])
	assert.Equal(t, countdown.Frame{Remaining: 0}, frames[2])
}

func TestCountdown_UnknownSection(t *testing.T) {
	h := newHarness(t, &fakeAPI{restTime: 5}, Options{})
	resp, _ := h.do(t, http.MethodGet, "/sections/9/countdown", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWriteDomainError_Statuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&appcheckout.RejectedError{Message: "Введите промокод", Err: promo.ErrCodeRequired}, http.StatusUnprocessableEntity},
		{promo.ErrPromoActive, http.StatusConflict},
		{fmt.Errorf("wrap: %w", application.ErrInFlight), http.StatusConflict},
		{token.ErrInvalid, http.StatusUnauthorized},
		{errForbidden, http.StatusForbidden},
		{fmt.Errorf("section 3: %w", catalog.ErrNotFound), http.StatusNotFound},
		{catalog.ErrInvalidRating, http.StatusBadRequest},
		{&commerce.APIError{Status: http.StatusBadRequest, Detail: "nope"}, http.StatusBadRequest},
		{&commerce.APIError{Status: http.StatusInternalServerError}, http.StatusBadGateway},
		{commerce.ErrUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}
