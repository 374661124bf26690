package checkout

import (
	"context"
	"errors"

	domain "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/checkout"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCasePromoApply = "checkout.promo_apply"

// RejectedError carries the message shown to the shopper when a promo code
// was refused locally or by the server.
type RejectedError struct {
	Message string
	Err     error
}

func (e *RejectedError) Error() string { return "checkout: promo rejected: " + e.Message }

func (e *RejectedError) Unwrap() error { return e.Err }

// messenger is implemented by remote errors that carry a shopper-facing detail.
type messenger interface {
	Message() string
}

type ApplyPromoInput struct {
	SessionID string
	Code      string
}

// ApplyPromo validates a code with the remote API and stores the result. A
// blank code is refused without calling the API; a failure clears any
// previously applied promo. There is no retry.
func (s *Service) ApplyPromo(ctx context.Context, in ApplyPromoInput) (_ *Summary, err error) {
	ctx, call := s.probe.Begin(ctx, useCasePromoApply, "ApplyPromo",
		attribute.String("checkout.session_id", in.SessionID),
	)
	defer func() {
		s.promoCounter.Add(1, observability.L("outcome", call.Outcome))
		call.End(err)
	}()

	if in.SessionID == "" {
		call.Fail("SESSION_REQUIRED")
		return nil, ErrSessionEmpty
	}

	st, err := s.store.Load(ctx, in.SessionID)
	if err != nil {
		call.Fail("STATE_LOAD_FAILED")
		return nil, err
	}
	if err := st.Promo.CanApply(); err != nil {
		call.Fail("PROMO_ALREADY_ACTIVE")
		return nil, err
	}

	code, err := promo.NormalizeCode(in.Code)
	if err != nil {
		call.Fail("CODE_REQUIRED")
		if _, serr := s.store.Update(ctx, in.SessionID, func(st *domain.State) error {
			st.Promo.Reject(promo.MsgEnterCode)
			return nil
		}); serr != nil {
			call.Logger().Warn("promo_rejection_store_failed",
				observability.F("error", serr.Error()),
			)
		}
		return nil, &RejectedError{Message: promo.MsgEnterCode, Err: err}
	}
	call.Span().SetAttributes(attribute.String("promo.code", code))

	release, err := s.acquire(ctx, lockPromo, in.SessionID)
	if err != nil {
		call.Fail("IN_FLIGHT")
		return nil, err
	}
	defer release()

	res, remoteErr := s.commerce.ApplyPromo(ctx, code)
	if remoteErr != nil {
		var detail string
		var m messenger
		if errors.As(remoteErr, &m) {
			detail = m.Message()
		}
		st, err := s.store.Update(ctx, in.SessionID, func(st *domain.State) error {
			st.Promo.Fail(detail)
			return nil
		})
		if err != nil {
			call.Fail("STATE_UPDATE_FAILED")
			return nil, err
		}
		call.Outcome, call.Status = "rejected", "REMOTE_REJECTED"
		s.publish(ctx, call, promo.NewRejectedEvent(in.SessionID, code, st.Promo.Error))
		return nil, &RejectedError{Message: st.Promo.Error, Err: remoteErr}
	}
	if !res.DiscountType.Valid() {
		call.Logger().Warn("promo_unknown_discount_type",
			observability.F("discount_type", string(res.DiscountType)),
		)
	}

	st, err = s.store.Update(ctx, in.SessionID, func(st *domain.State) error {
		st.Promo.Succeed(code, *res)
		return nil
	})
	if err != nil {
		call.Fail("STATE_UPDATE_FAILED")
		return nil, err
	}
	call.Span().AddEvent("promo.applied", trace.WithAttributes(
		attribute.String("promo.discount_type", string(res.DiscountType)),
		attribute.String("promo.discount", res.Discount.String()),
	))
	s.publish(ctx, call, promo.NewAppliedEvent(in.SessionID, st.Promo.Applied))

	return s.summary(ctx, in.SessionID, true)
}
