package commerce

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler, testMode bool) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{
		BaseURL:         srv.URL,
		Timeout:         2 * time.Second,
		TestMode:        testMode,
		BreakerFailures: 2,
		BreakerTimeout:  time.Minute,
	}, observability.Nop())
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestGetCart_DecodesSnapshotAndSendsToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cart/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":7,"items":[{"id":1,"product_id":3,"quantity":2,"subtotal":2150}],
			"total_items":2,"total_amount":2150,"bonus_balance":1000,"max_bonus_usage":300,"bonus_will_earn":64}`)
	}), false)

	snap, err := c.GetCart(WithToken(context.Background(), "tok-1"))
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, int64(7), snap.ID)
	require.Len(t, snap.Items, 1)
	assert.True(t, decimal.NewFromInt(2150).Equal(snap.TotalAmount))
	assert.True(t, decimal.NewFromInt(300).Equal(snap.MaxBonusUsage))
}

func TestTestMode_OmitsAuthorization(t *testing.T) {
	var gotAuth atomic.Value
	gotAuth.Store("unset")
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"snow_enabled":true}`)
	}), true)

	s, err := c.SiteSettings(WithToken(context.Background(), "tok-1"))
	require.NoError(t, err)
	assert.True(t, s.SnowEnabled)
	assert.Equal(t, "", gotAuth.Load())
}

func TestNoToken_OmitsAuthorization(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}), false)

	sections, err := c.Sections(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestApplyPromo_SurfacesDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EXPIRED", body["code"])
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Промокод истёк"}`)
	}), false)

	_, err := c.ApplyPromo(context.Background(), "EXPIRED")
	require.Error(t, err)
	assert.Equal(t, "Промокод истёк", Detail(err))
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestParseDetail(t *testing.T) {
	cases := map[string]string{
		`{"detail":" bad code "}`:           "bad code",
		`{"detail":[{"msg":"field"}]}`:      "",
		`not json`:                          "",
		`{}`:                                "",
		`{"detail":"Недостаточно бонусов"}`: "Недостаточно бонусов",
	}
	for body, want := range cases {
		assert.Equal(t, want, parseDetail([]byte(body)), body)
	}
}

func TestServerErrors_TripBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), false)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := c.Categories(ctx)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	}

	_, err := c.Categories(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrors_DoNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}), false)

	for i := 0; i < 4; i++ {
		_, err := c.Product(context.Background(), 99)
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
	}
	assert.Equal(t, int32(4), calls.Load())
}

func TestCallerCancellation_DoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}), false)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 4; i++ {
		_, err := c.Categories(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	}

	_, err := c.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransportFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base, Timeout: time.Second}, nil)
	require.NoError(t, err)

	err = c.ClearCart(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCartMutations_Routes(t *testing.T) {
	type call struct{ method, path, body string }
	var got []call
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = append(got, call{r.Method, r.URL.Path, string(b)})
		w.WriteHeader(http.StatusOK)
	}), false)

	ctx := context.Background()
	require.NoError(t, c.AddCartItem(ctx, cart.AddItem{ProductID: 3, Quantity: 1}))
	require.NoError(t, c.UpdateCartItem(ctx, cart.UpdateQuantity{ItemID: 5, Quantity: 4}))
	require.NoError(t, c.RemoveCartItem(ctx, 5))
	require.NoError(t, c.ClearCart(ctx))

	require.Len(t, got, 4)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "/cart/items", got[0].path)
	assert.JSONEq(t, `{"product_id":3,"quantity":1}`, got[0].body)
	assert.Equal(t, http.MethodPatch, got[1].method)
	assert.Equal(t, "/cart/items/5", got[1].path)
	assert.Equal(t, http.MethodDelete, got[2].method)
	assert.Equal(t, "/cart/items/5", got[2].path)
	assert.Equal(t, http.MethodDelete, got[3].method)
	assert.Equal(t, "/cart/", got[3].path)
}

func TestProducts_Query(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "4", q.Get("section_id"))
		assert.Equal(t, "20", q.Get("limit"))
		assert.False(t, q.Has("offset"))
		assert.False(t, q.Has("category_id"))
		_, _ = io.WriteString(w, `[{"id":1,"price":90,"old_price":100,"images":"[\"a.jpg\"]"}]`)
	}), false)

	products, err := c.Products(context.Background(), catalog.ProductFilter{SectionID: 4, Limit: 20})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, []string{"a.jpg"}, []string(products[0].Images))
	assert.Equal(t, int64(10), products[0].DiscountPercent())
}

func TestAdminUpdate_UsesResourceVerb(t *testing.T) {
	var methods []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, `{}`)
	}), false)

	ctx := context.Background()
	_, err := c.AdminUpdate(ctx, catalog.ResourcePromoCodes, 2, json.RawMessage(`{"is_active":false}`))
	require.NoError(t, err)
	_, err = c.AdminUpdate(ctx, catalog.ResourceBadges, 3, json.RawMessage(`{"title":"new"}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"PUT /admin/promo-codes/2", "PATCH /admin/badges/3"}, methods)

	_, err = c.AdminUpdate(ctx, catalog.Resource("users"), 1, nil)
	assert.ErrorIs(t, err, catalog.ErrUnknownResource)
	assert.Len(t, methods, 2)
}

func TestAdjustBonus_Path(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/bonus/set-balance", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 12, body["user_id"])
		assert.NotContains(t, body, "Kind")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}), false)

	err := c.AdjustBonus(context.Background(), bonus.Adjustment{
		Kind:   bonus.AdjustSetBalance,
		UserID: 12,
		Amount: decimal.NewFromInt(0),
	})
	require.NoError(t, err)
}

func TestAuthTelegram(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/telegram", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "query_id=1", body["initData"])
		_, _ = io.WriteString(w, `{"ok":true,"access_token":"abc","user_id":5,"telegram_id":77,"is_admin":false}`)
	}), false)

	id, err := c.AuthTelegram(context.Background(), "query_id=1")
	require.NoError(t, err)
	assert.True(t, id.OK)
	assert.Equal(t, "abc", id.AccessToken)
	assert.Equal(t, int64(77), id.TelegramID)
}
