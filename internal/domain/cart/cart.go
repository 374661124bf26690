package cart

import (
	"errors"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("cart: quantity must be at least 1")
	ErrInvalidProduct  = errors.New("cart: product id is required")
	ErrInvalidItem     = errors.New("cart: item id is required")
)

// Line is one cart row. Subtotal is computed by the server and trusted as-is.
type Line struct {
	ID              int64            `json:"id"`
	ProductID       int64            `json:"product_id"`
	ProductTitle    string           `json:"product_title"`
	ProductImage    string           `json:"product_image"`
	ProductPrice    decimal.Decimal  `json:"product_price"`
	ProductOldPrice *decimal.Decimal `json:"product_old_price"`
	Quantity        int              `json:"quantity"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

// Snapshot is the server-authoritative cart. It is never patched locally;
// every mutation is followed by a fresh fetch.
type Snapshot struct {
	ID            int64           `json:"id"`
	Items         []Line          `json:"items"`
	TotalItems    int             `json:"total_items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BonusBalance  decimal.Decimal `json:"bonus_balance"`
	MaxBonusUsage decimal.Decimal `json:"max_bonus_usage"`
	BonusWillEarn decimal.Decimal `json:"bonus_will_earn"`
}

func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Items) == 0
}

// BonusPolicy returns the bonus bounds declared by this snapshot.
func (s *Snapshot) BonusPolicy() bonus.Policy {
	if s == nil {
		return bonus.Policy{}
	}
	return bonus.NewPolicy(s.BonusBalance, s.MaxBonusUsage)
}

// AddItem is the payload for adding a product to the cart.
type AddItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (a AddItem) Validate() error {
	if a.ProductID <= 0 {
		return ErrInvalidProduct
	}
	if a.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}

// UpdateQuantity is the payload for changing a line's quantity.
type UpdateQuantity struct {
	ItemID   int64 `json:"-"`
	Quantity int   `json:"quantity"`
}

func (u UpdateQuantity) Validate() error {
	if u.ItemID <= 0 {
		return ErrInvalidItem
	}
	if u.Quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
