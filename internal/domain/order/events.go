package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlacedEvent is emitted after the remote API accepted an order.
type PlacedEvent struct {
	SessionID    string
	UserID       int64
	OrderID      int64
	FinalAmount  decimal.Decimal
	QuotedAmount decimal.Decimal
	BonusUsed    int64
	PromoCode    string
	OccurredAt   time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(sessionID string, o *Order, quoted decimal.Decimal, bonusUsed int64, promoCode string) PlacedEvent {
	return PlacedEvent{
		SessionID:    sessionID,
		UserID:       o.UserID,
		OrderID:      o.ID,
		FinalAmount:  o.FinalAmount,
		QuotedAmount: quoted,
		BonusUsed:    bonusUsed,
		PromoCode:    promoCode,
		OccurredAt:   time.Now().UTC(),
	}
}

// PaymentStartedEvent is emitted after a payment link was issued.
type PaymentStartedEvent struct {
	SessionID  string
	OrderID    int64
	PaymentID  string
	Method     PaymentMethod
	Amount     decimal.Decimal
	OccurredAt time.Time
}

func (PaymentStartedEvent) EventName() string { return "order.payment_started" }

func NewPaymentStartedEvent(sessionID string, method PaymentMethod, p *Payment) PaymentStartedEvent {
	return PaymentStartedEvent{
		SessionID:  sessionID,
		OrderID:    p.OrderID,
		PaymentID:  p.PaymentID,
		Method:     method,
		Amount:     p.Amount,
		OccurredAt: time.Now().UTC(),
	}
}
