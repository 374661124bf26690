package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart            = errors.New("order: cart is empty")
	ErrInvalidPaymentMethod = errors.New("order: payment method must be card or sbp")
	ErrInvalidBonus         = errors.New("order: bonus to use must be zero or greater")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Item struct {
	ID           int64           `json:"id"`
	ProductTitle string          `json:"product_title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// Order is the remote API's answer to an order creation. FinalAmount is what
// the server decided to charge; it is accepted as-is.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	BonusUsed   decimal.Decimal `json:"bonus_used"`
	BonusEarned decimal.Decimal `json:"bonus_earned"`
	FinalAmount decimal.Decimal `json:"final_amount"`
	Currency    string          `json:"currency"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []Item          `json:"items"`
}

// Request asks the remote API to turn the current cart into an order.
type Request struct {
	BonusToUse int64  `json:"bonus_to_use"`
	PromoCode  string `json:"promo_code,omitempty"`
}

func (r Request) Validate() error {
	if r.BonusToUse < 0 {
		return ErrInvalidBonus
	}
	return nil
}

// PaymentMethod selects the payment provider on the remote side.
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentSBP  PaymentMethod = "sbp"
)

func (m PaymentMethod) Validate() error {
	if m != PaymentCard && m != PaymentSBP {
		return ErrInvalidPaymentMethod
	}
	return nil
}

// PaymentRequest creates an order and a payment link in one remote call.
type PaymentRequest struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	PromoCode     string        `json:"promo_code,omitempty"`
	BonusToUse    int64         `json:"bonus_to_use"`
}

func (r PaymentRequest) Validate() error {
	if err := r.PaymentMethod.Validate(); err != nil {
		return err
	}
	if r.BonusToUse < 0 {
		return ErrInvalidBonus
	}
	return nil
}

type Payment struct {
	PaymentID  string          `json:"payment_id"`
	PaymentURL string          `json:"payment_url"`
	OrderID    int64           `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
}
