package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestFinalAmount(t *testing.T) {
	tests := []struct {
		name     string
		total    decimal.Decimal
		discount decimal.Decimal
		bonus    int64
		want     decimal.Decimal
	}{
		{name: "no deductions", total: d(1000), discount: d(0), bonus: 0, want: d(1000)},
		{name: "clamped at zero", total: d(1000), discount: d(300), bonus: 800, want: d(0)},
		{name: "promo and bonus", total: d(2150), discount: d(215), bonus: 300, want: d(1635)},
		{name: "exactly zero", total: d(500), discount: d(200), bonus: 300, want: d(0)},
		{name: "fractional total", total: decimal.RequireFromString("99.90"), discount: decimal.RequireFromString("9.99"), bonus: 10, want: decimal.RequireFromString("79.91")},
		{name: "empty cart", total: d(0), discount: d(0), bonus: 50, want: d(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FinalAmount(tt.total, tt.discount, tt.bonus)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestFinalAmountNeverNegative(t *testing.T) {
	for total := int64(0); total <= 1000; total += 125 {
		for discount := int64(0); discount <= 1000; discount += 250 {
			for bonus := int64(0); bonus <= 1000; bonus += 200 {
				got := FinalAmount(d(total), d(discount), bonus)
				want := total - discount - bonus
				if want < 0 {
					want = 0
				}
				assert.True(t, d(want).Equal(got), "total=%d discount=%d bonus=%d", total, discount, bonus)
			}
		}
	}
}

func TestQuote(t *testing.T) {
	q := NewQuote(d(2150), d(215), 300, d(97))

	assert.True(t, d(1635).Equal(q.FinalAmount))
	assert.True(t, q.Matches(decimal.RequireFromString("1635.00")))
	assert.False(t, q.Matches(d(1935)))
}
