package bonus

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy bounds how much loyalty bonus a single order may spend.
// Both bounds come from the cart snapshot; the server enforces them again at order creation.
type Policy struct {
	Balance  decimal.Decimal
	MaxUsage decimal.Decimal
}

func NewPolicy(balance, maxUsage decimal.Decimal) Policy {
	return Policy{Balance: balance, MaxUsage: maxUsage}
}

// Limit is min(balance, cap) in whole units, never below zero.
func (p Policy) Limit() int64 {
	limit := decimal.Min(p.Balance, p.MaxUsage).Floor()
	if limit.IsNegative() {
		return 0
	}
	if limit.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return math.MaxInt64
	}
	return limit.IntPart()
}

// Clamp keeps requested within [0, Limit()].
func (p Policy) Clamp(requested int64) int64 {
	if requested < 0 {
		requested = 0
	}
	return min(requested, p.Limit())
}

// Apply parses raw form text and clamps it. Text that is not a plain digit
// sequence is refused as a whole and counts as 0.
func (p Policy) Apply(raw string) int64 {
	digits, ok := Admit(raw)
	if !ok {
		return 0
	}
	return p.Clamp(Parse(digits))
}

// UseMax is the "use max" shortcut.
func (p Policy) UseMax() int64 {
	return p.Limit()
}

// Admit reports whether raw, once trimmed, is made only of ASCII digits.
// Signs, decimal points and exponents are not admitted. Empty text is
// admitted and parses to 0.
func Admit(raw string) (string, bool) {
	digits := strings.TrimSpace(raw)
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", false
		}
	}
	return digits, true
}

// Parse converts an admitted digit string to an amount. Empty input is 0 and
// values beyond int64 saturate.
func Parse(digits string) int64 {
	var n int64
	for _, r := range digits {
		if r < '0' || r > '9' {
			continue
		}
		v := int64(r - '0')
		if n > (math.MaxInt64-v)/10 {
			return math.MaxInt64
		}
		n = n*10 + v
	}
	return n
}
