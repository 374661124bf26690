package bonus

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAdjustment = errors.New("bonus: adjustment amount must be greater than zero")
	ErrNegativeBalance   = errors.New("bonus: balance must be zero or greater")
	ErrUserRequired      = errors.New("bonus: user id is required")
	ErrUnknownAdjustment = errors.New("bonus: unknown adjustment kind")
)

type Milestone struct {
	Orders      int             `json:"orders"`
	Bonus       decimal.Decimal `json:"bonus"`
	Description string          `json:"description"`
}

// Info is the shopper's loyalty summary.
type Info struct {
	Balance       decimal.Decimal `json:"bonus_balance"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	TotalOrders   int             `json:"total_orders"`
	NextMilestone *Milestone      `json:"next_milestone"`
}

type Transaction struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

type MilestoneReward struct {
	Bonus       decimal.Decimal `json:"bonus"`
	Description string          `json:"description"`
}

type Milestones struct {
	Milestones      map[string]MilestoneReward `json:"milestones"`
	BonusRate       decimal.Decimal            `json:"bonus_rate"`
	MaxUsagePercent decimal.Decimal            `json:"max_usage_percent"`
}

// AdjustmentKind is an admin ledger operation.
type AdjustmentKind string

const (
	AdjustAdd        AdjustmentKind = "add"
	AdjustSubtract   AdjustmentKind = "subtract"
	AdjustSetBalance AdjustmentKind = "set-balance"
)

// Adjustment is an admin request to change a user's balance.
type Adjustment struct {
	Kind        AdjustmentKind  `json:"-"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

func (a Adjustment) Validate() error {
	if a.UserID <= 0 {
		return ErrUserRequired
	}
	switch a.Kind {
	case AdjustAdd, AdjustSubtract:
		if !a.Amount.IsPositive() {
			return ErrInvalidAdjustment
		}
	case AdjustSetBalance:
		if a.Amount.IsNegative() {
			return ErrNegativeBalance
		}
	default:
		return ErrUnknownAdjustment
	}
	return nil
}
