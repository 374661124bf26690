package checkout

import (
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/pricing"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/promo"
	"github.com/shopspring/decimal"
)

// State is the client-local part of a checkout: the chosen bonus amount and
// the applied promo. The cart itself always comes from the server.
type State struct {
	Bonus bonus.Selection `json:"bonus"`
	Promo promo.State     `json:"promo"`
}

func (s State) Clone() State {
	return State{Bonus: s.Bonus, Promo: s.Promo.Clone()}
}

// Reset drops the bonus selection and the promo, as a page reload would.
func (s *State) Reset() {
	s.Bonus.Clear()
	s.Promo.Remove()
}

// Sync re-establishes the selection bounds against a fresh snapshot. An
// empty cart resets the bonus selection to zero.
func (s *State) Sync(snap *cart.Snapshot) {
	if snap.IsEmpty() {
		s.Bonus.Clear()
		return
	}
	s.Bonus.Fit(snap.BonusPolicy())
}

// Quote prices snap with the current selection and promo.
func (s State) Quote(snap *cart.Snapshot) pricing.Quote {
	if snap == nil {
		return pricing.NewQuote(decimal.Zero, decimal.Zero, 0, decimal.Zero)
	}
	return pricing.NewQuote(snap.TotalAmount, s.Promo.Discount(), s.Bonus.Amount, snap.BonusWillEarn)
}
