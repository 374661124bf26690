package checkout

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	domain "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/checkout"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/pricing"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCaseOrderPlace   = "checkout.order_place"
	useCasePaymentStart = "checkout.payment_start"
)

// OrderResult pairs the server's order with what the shopper was shown.
type OrderResult struct {
	Order *order.Order  `json:"order"`
	Quote pricing.Quote `json:"quote"`
}

// PlaceOrder submits the cart with the current bonus selection and promo.
// The server's amount is authoritative; a disagreement with the local quote
// is only logged.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string) (_ *OrderResult, err error) {
	ctx, call := s.probe.Begin(ctx, useCaseOrderPlace, "PlaceOrder",
		attribute.String("checkout.session_id", sessionID),
	)
	defer func() { call.End(err) }()

	if sessionID == "" {
		call.Fail("SESSION_REQUIRED")
		return nil, ErrSessionEmpty
	}

	release, err := s.acquire(ctx, lockOrder, sessionID)
	if err != nil {
		call.Fail("IN_FLIGHT")
		return nil, err
	}
	defer release()

	snap, st, err := s.prepare(ctx, sessionID)
	if err != nil {
		call.Fail("PREPARE_FAILED")
		return nil, err
	}
	if snap.IsEmpty() {
		call.Fail("CART_EMPTY")
		return nil, order.ErrEmptyCart
	}

	quote := st.Quote(snap)
	req := order.Request{BonusToUse: st.Bonus.Amount, PromoCode: st.Promo.Code()}
	if err := req.Validate(); err != nil {
		call.Fail("REQUEST_INVALID")
		return nil, err
	}

	created, err := s.commerce.CreateOrder(ctx, req)
	if err != nil {
		call.Fail("REMOTE_FAILED")
		return nil, fmt.Errorf("checkout: create order: %w", err)
	}

	if !quote.Matches(created.FinalAmount) {
		call.Logger().Warn("order_quote_mismatch",
			observability.F("order_id", created.ID),
			observability.F("quoted_amount", quote.FinalAmount.String()),
			observability.F("server_amount", created.FinalAmount.String()),
		)
		call.Status = "QUOTE_MISMATCH"
	}

	s.resetAfterSubmit(ctx, call, sessionID)
	call.With(observability.F("order_id", created.ID))
	call.Span().AddEvent("order.placed", trace.WithAttributes(
		attribute.Int64("order.id", created.ID),
		attribute.String("order.final_amount", created.FinalAmount.String()),
	))
	s.publish(ctx, call, order.NewPlacedEvent(sessionID, created, quote.FinalAmount, req.BonusToUse, req.PromoCode))

	return &OrderResult{Order: created, Quote: quote}, nil
}

// StartPayment asks the remote API for a payment link for the current cart.
func (s *Service) StartPayment(ctx context.Context, sessionID string, method order.PaymentMethod) (_ *order.Payment, err error) {
	ctx, call := s.probe.Begin(ctx, useCasePaymentStart, "StartPayment",
		attribute.String("checkout.session_id", sessionID),
		attribute.String("payment.method", string(method)),
	)
	defer func() { call.End(err) }()

	if sessionID == "" {
		call.Fail("SESSION_REQUIRED")
		return nil, ErrSessionEmpty
	}
	if err := method.Validate(); err != nil {
		call.Fail("PAYMENT_METHOD_INVALID")
		return nil, err
	}

	release, err := s.acquire(ctx, lockPayment, sessionID)
	if err != nil {
		call.Fail("IN_FLIGHT")
		return nil, err
	}
	defer release()

	snap, st, err := s.prepare(ctx, sessionID)
	if err != nil {
		call.Fail("PREPARE_FAILED")
		return nil, err
	}
	if snap.IsEmpty() {
		call.Fail("CART_EMPTY")
		return nil, order.ErrEmptyCart
	}

	req := order.PaymentRequest{
		PaymentMethod: method,
		PromoCode:     st.Promo.Code(),
		BonusToUse:    st.Bonus.Amount,
	}
	if err := req.Validate(); err != nil {
		call.Fail("REQUEST_INVALID")
		return nil, err
	}

	payment, err := s.commerce.CreatePayment(ctx, req)
	if err != nil {
		call.Fail("REMOTE_FAILED")
		return nil, fmt.Errorf("checkout: create payment: %w", err)
	}

	s.resetAfterSubmit(ctx, call, sessionID)
	call.With(
		observability.F("order_id", payment.OrderID),
		observability.F("payment_id", payment.PaymentID),
	)
	s.publish(ctx, call, order.NewPaymentStartedEvent(sessionID, method, payment))

	return payment, nil
}

// prepare loads a fresh cart and the state re-fitted to it.
func (s *Service) prepare(ctx context.Context, sessionID string) (*cart.Snapshot, domain.State, error) {
	snap, err := s.fetchCart(ctx, sessionID, true)
	if err != nil {
		return nil, domain.State{}, fmt.Errorf("checkout: fetch cart: %w", err)
	}
	st, err := s.store.Update(ctx, sessionID, func(st *domain.State) error {
		st.Sync(snap)
		return nil
	})
	if err != nil {
		return nil, domain.State{}, err
	}
	return snap, st, nil
}

func (s *Service) resetAfterSubmit(ctx context.Context, call *application.Call, sessionID string) {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		call.Logger().Warn("checkout_reset_failed", observability.F("error", err.Error()))
	}
}
