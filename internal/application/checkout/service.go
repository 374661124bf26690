package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	domain "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/checkout"
	domoutbox "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/pricing"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"
	"golang.org/x/sync/singleflight"
)

const (
	checkoutService = "checkout-service"
	publishTimeout  = 300 * time.Millisecond

	lockPromo   = "promo"
	lockOrder   = "order"
	lockPayment = "payment"
)

var (
	ErrInFlight     = application.ErrInFlight
	ErrSessionEmpty = errors.New("checkout: session id is required")
)

// Summary is everything the checkout screen renders.
type Summary struct {
	Cart  *cart.Snapshot `json:"cart"`
	Promo promo.State    `json:"promo"`
	Bonus BonusView      `json:"bonus"`
	Quote pricing.Quote  `json:"quote"`
}

type BonusView struct {
	Selected int64 `json:"selected"`
	Limit    int64 `json:"limit"`
}

// Service owns the per-session checkout state: the bonus selection and the
// applied promo. The cart itself is always read from the remote API.
type Service struct {
	commerce  CommercePort
	store     domain.Store
	locker    Locker
	publisher domoutbox.Publisher
	probe     *application.Probe

	carts        singleflight.Group
	promoCounter observability.Counter // promo_applications_total{outcome}
}

func NewService(commerce CommercePort, store domain.Store, locker Locker, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	if publisher == nil {
		publisher = domoutbox.Discard
	}
	probe := application.NewProbe(tel, checkoutService)
	return &Service{
		commerce:     commerce,
		store:        store,
		locker:       locker,
		publisher:    publisher,
		probe:        probe,
		promoCounter: probe.Metrics().Counter(observability.MPromoApplications),
	}
}

// fetchCart collapses concurrent reads for one session into a single call.
// Results are never kept past the call. A fresh read forgets the call in
// flight first, so after a mutation it only joins reads that started later.
// The shared call outlives any single caller's cancellation.
func (s *Service) fetchCart(ctx context.Context, sessionID string, fresh bool) (*cart.Snapshot, error) {
	if fresh {
		s.carts.Forget(sessionID)
	}
	shared := context.WithoutCancel(ctx)
	ch := s.carts.DoChan(sessionID, func() (any, error) {
		return s.commerce.GetCart(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cart.Snapshot), nil
	}
}

func (s *Service) summarize(snap *cart.Snapshot, st domain.State) *Summary {
	return &Summary{
		Cart:  snap,
		Promo: st.Promo,
		Bonus: BonusView{Selected: st.Bonus.Amount, Limit: snap.BonusPolicy().Limit()},
		Quote: st.Quote(snap),
	}
}

// Summary fetches the cart, re-fits the bonus selection and prices it.
func (s *Service) Summary(ctx context.Context, sessionID string) (*Summary, error) {
	return s.summary(ctx, sessionID, false)
}

func (s *Service) summary(ctx context.Context, sessionID string, fresh bool) (*Summary, error) {
	if sessionID == "" {
		return nil, ErrSessionEmpty
	}
	snap, err := s.fetchCart(ctx, sessionID, fresh)
	if err != nil {
		return nil, fmt.Errorf("checkout: fetch cart: %w", err)
	}
	st, err := s.store.Update(ctx, sessionID, func(st *domain.State) error {
		st.Sync(snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.summarize(snap, st), nil
}

// mutateCart runs a cart mutation and answers with a fresh summary.
func (s *Service) mutateCart(ctx context.Context, sessionID string, mutate func(context.Context) error) (*Summary, error) {
	if sessionID == "" {
		return nil, ErrSessionEmpty
	}
	if err := mutate(ctx); err != nil {
		return nil, err
	}
	return s.summary(ctx, sessionID, true)
}

func (s *Service) AddItem(ctx context.Context, sessionID string, item cart.AddItem) (*Summary, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return s.mutateCart(ctx, sessionID, func(ctx context.Context) error {
		return s.commerce.AddCartItem(ctx, item)
	})
}

func (s *Service) UpdateItem(ctx context.Context, sessionID string, upd cart.UpdateQuantity) (*Summary, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	return s.mutateCart(ctx, sessionID, func(ctx context.Context) error {
		return s.commerce.UpdateCartItem(ctx, upd)
	})
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, itemID int64) (*Summary, error) {
	if itemID <= 0 {
		return nil, cart.ErrInvalidItem
	}
	return s.mutateCart(ctx, sessionID, func(ctx context.Context) error {
		return s.commerce.RemoveCartItem(ctx, itemID)
	})
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) (*Summary, error) {
	return s.mutateCart(ctx, sessionID, s.commerce.ClearCart)
}

// RemovePromo forgets the applied promo locally. The server is not told.
func (s *Service) RemovePromo(ctx context.Context, sessionID string) (*Summary, error) {
	if _, err := s.store.Update(ctx, sessionID, func(st *domain.State) error {
		st.Promo.Remove()
		return nil
	}); err != nil {
		return nil, err
	}
	return s.Summary(ctx, sessionID)
}

// ApplyBonus admits only digits from raw and clamps to the cart's limit.
func (s *Service) ApplyBonus(ctx context.Context, sessionID, raw string) (*Summary, error) {
	return s.withBonus(ctx, sessionID, func(st *domain.State, snap *cart.Snapshot) {
		st.Bonus.Apply(snap.BonusPolicy(), raw)
	})
}

func (s *Service) UseMaxBonus(ctx context.Context, sessionID string) (*Summary, error) {
	return s.withBonus(ctx, sessionID, func(st *domain.State, snap *cart.Snapshot) {
		st.Bonus.UseMax(snap.BonusPolicy())
	})
}

func (s *Service) ClearBonus(ctx context.Context, sessionID string) (*Summary, error) {
	return s.withBonus(ctx, sessionID, func(st *domain.State, _ *cart.Snapshot) {
		st.Bonus.Clear()
	})
}

func (s *Service) withBonus(ctx context.Context, sessionID string, fn func(*domain.State, *cart.Snapshot)) (*Summary, error) {
	if sessionID == "" {
		return nil, ErrSessionEmpty
	}
	snap, err := s.fetchCart(ctx, sessionID, false)
	if err != nil {
		return nil, fmt.Errorf("checkout: fetch cart: %w", err)
	}
	st, err := s.store.Update(ctx, sessionID, func(st *domain.State) error {
		fn(st, snap)
		st.Sync(snap)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.summarize(snap, st), nil
}

// Reset drops the session's checkout state, as a page reload would.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionEmpty
	}
	return s.store.Delete(ctx, sessionID)
}

// acquire takes the in-flight lock for scope. The returned release is safe
// to defer and never fails the caller.
func (s *Service) acquire(ctx context.Context, scope, sessionID string) (func(), error) {
	ok, err := s.locker.TryLock(ctx, scope, sessionID)
	if err != nil {
		return nil, fmt.Errorf("checkout: lock %s: %w", scope, err)
	}
	if !ok {
		return nil, ErrInFlight
	}
	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), scope, sessionID); err != nil {
			logctx.FromOr(ctx, s.probe.Logger()).Warn("lock_release_failed",
				observability.F("scope", scope),
				observability.F("error", err),
			)
		}
	}, nil
}

// publish is best effort; a failure is logged and never fails the use case.
func (s *Service) publish(ctx context.Context, call *application.Call, e domoutbox.Event) {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		call.Span().RecordError(err)
		call.With(observability.F("event_publish_error", err.Error()))
		call.Logger().Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
