package checkout

import (
	"context"
	"time"

	domorder "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const workerService = "checkout-worker"

// Worker turns checkout events into an audit log and checkout_events_total.
type Worker struct {
	tel observability.Observability
	log observability.Logger

	eventCounter observability.Counter   // checkout_events_total{event,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewWorker(tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", workerService)),
		eventCounter: tel.Metrics().Counter(observability.MCheckoutEvents),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start(sub domoutbox.Subscriber) {
	if sub == nil {
		return
	}
	sub.Subscribe(promo.AppliedEvent{}.EventName(), w.handle)
	sub.Subscribe(promo.RejectedEvent{}.EventName(), w.handle)
	sub.Subscribe(domorder.PlacedEvent{}.EventName(), w.handle)
	sub.Subscribe(domorder.PaymentStartedEvent{}.EventName(), w.handle)
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()
	useCase := "checkout.worker." + name

	ctx, span := w.tel.Tracer().Start(ctx, spanPrefixWorker+name,
		attribute.String("use_case", useCase),
		attribute.String("event", name),
	)
	start := time.Now()
	outcome := "success"

	logger := logctx.FromOr(ctx, w.log).With(observability.F("use_case", useCase))
	if tf := observability.TraceFields(ctx); len(tf) > 0 {
		logger = logger.With(tf...)
	}

	defer func() {
		lat := time.Since(start).Seconds()
		w.eventCounter.Add(1,
			observability.L("event", name),
			observability.L("outcome", outcome),
		)
		w.durHistogram.Observe(lat, observability.L("use_case", useCase))
		span.SetStatus(codes.Ok, outcome)
		span.End()
	}()

	switch evt := e.(type) {
	case promo.AppliedEvent:
		logger.Info("checkout_audit",
			observability.F("session_id", evt.SessionID),
			observability.F("promo_code", evt.Code),
			observability.F("discount_type", string(evt.Type)),
		)
	case promo.RejectedEvent:
		outcome = "rejected"
		logger.Info("checkout_audit",
			observability.F("session_id", evt.SessionID),
			observability.F("promo_code", evt.Code),
			observability.F("reason", evt.Reason),
		)
	case domorder.PlacedEvent:
		if !evt.QuotedAmount.Equal(evt.FinalAmount) {
			outcome = "quote_mismatch"
		}
		logger.Info("checkout_audit",
			observability.F("session_id", evt.SessionID),
			observability.F("user_id", evt.UserID),
			observability.F("order_id", evt.OrderID),
			observability.F("final_amount", evt.FinalAmount.String()),
			observability.F("quoted_amount", evt.QuotedAmount.String()),
			observability.F("bonus_used", evt.BonusUsed),
			observability.F("promo_code", evt.PromoCode),
		)
	case domorder.PaymentStartedEvent:
		logger.Info("checkout_audit",
			observability.F("session_id", evt.SessionID),
			observability.F("order_id", evt.OrderID),
			observability.F("payment_id", evt.PaymentID),
			observability.F("payment_method", string(evt.Method)),
			observability.F("amount", evt.Amount.String()),
		)
	default:
		outcome = "ignored"
	}
	span.SetAttributes(attribute.String("checkout.event_outcome", outcome))
	return nil
}

const spanPrefixWorker = "Worker."
