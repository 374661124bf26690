package promo

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MsgEnterCode   = "Введите промокод"
	MsgApplyFailed = "Не удалось применить промокод"
)

var (
	ErrCodeRequired = errors.New("promo: code is required")
	ErrPromoActive  = errors.New("promo: a promo code is already applied")
)

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercent || t == DiscountFixed
}

// Result is what the remote API returns for a successful application.
// Its fields are trusted as-is.
type Result struct {
	Discount      decimal.Decimal `json:"discount"`
	DiscountType  DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	CartTotal     decimal.Decimal `json:"cart_total"`
	NewTotal      decimal.Decimal `json:"new_total"`
}

// Applied is a promo code accepted by the remote API together with the code
// the shopper typed.
type Applied struct {
	Code string `json:"code"`
	Result
}

// NormalizeCode trims the submitted code and rejects blank input before any
// remote call is made.
func NormalizeCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", ErrCodeRequired
	}
	return code, nil
}

// State is the promo part of a shopper's checkout. At most one promo is
// applied; a later success replaces it.
type State struct {
	Applied *Applied `json:"applied,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (s *State) Active() bool {
	return s.Applied != nil
}

// Discount is the applied discount or zero.
func (s *State) Discount() decimal.Decimal {
	if s.Applied == nil {
		return decimal.Zero
	}
	return s.Applied.Discount
}

// Code is the applied code or "".
func (s *State) Code() string {
	if s.Applied == nil {
		return ""
	}
	return s.Applied.Code
}

// CanApply reports ErrPromoActive while a promo is applied.
func (s *State) CanApply() error {
	if s.Active() {
		return ErrPromoActive
	}
	return nil
}

// Reject records a local validation failure, e.g. an empty code.
func (s *State) Reject(msg string) {
	s.Error = msg
}

func (s *State) Succeed(code string, res Result) {
	s.Applied = &Applied{Code: code, Result: res}
	s.Error = ""
}

// Fail drops any applied promo and stores the server detail, or the generic
// fallback when the server gave none.
func (s *State) Fail(detail string) {
	s.Applied = nil
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = MsgApplyFailed
	}
	s.Error = detail
}

// Remove clears the local promo state. Nothing is sent to the server.
func (s *State) Remove() {
	s.Applied = nil
	s.Error = ""
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := State{Error: s.Error}
	if s.Applied != nil {
		applied := *s.Applied
		out.Applied = &applied
	}
	return out
}
