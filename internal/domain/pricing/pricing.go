package pricing

import "github.com/shopspring/decimal"

// FinalAmount returns what the shopper is expected to pay once the promo
// discount and the bonus deduction are taken off the cart total.
// The result is clamped at zero; it is never an error.
func FinalAmount(cartTotal, promoDiscount decimal.Decimal, bonusToUse int64) decimal.Decimal {
	final := cartTotal.Sub(promoDiscount).Sub(decimal.NewFromInt(bonusToUse))
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

// Quote is a display-only projection of the checkout amount. The remote API
// recomputes and owns the charged amount at order creation.
type Quote struct {
	CartTotal     decimal.Decimal `json:"cart_total"`
	PromoDiscount decimal.Decimal `json:"promo_discount"`
	BonusToUse    int64           `json:"bonus_to_use"`
	BonusWillEarn decimal.Decimal `json:"bonus_will_earn"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
}

func NewQuote(cartTotal, promoDiscount decimal.Decimal, bonusToUse int64, bonusWillEarn decimal.Decimal) Quote {
	return Quote{
		CartTotal:     cartTotal,
		PromoDiscount: promoDiscount,
		BonusToUse:    bonusToUse,
		BonusWillEarn: bonusWillEarn,
		FinalAmount:   FinalAmount(cartTotal, promoDiscount, bonusToUse),
	}
}

// Matches reports whether a server-computed amount agrees with the quote.
func (q Quote) Matches(serverFinal decimal.Decimal) bool {
	return q.FinalAmount.Equal(serverFinal)
}
