package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("catalog: not found")
	ErrInvalidRating = errors.New("catalog: rating must be between 1 and 5")
	ErrInvalidID     = errors.New("catalog: id must be positive")
)

type Badge struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	TextColor string `json:"text_color"`
}

type Product struct {
	ID            int64            `json:"id"`
	CategoryID    int64            `json:"category_id"`
	SectionID     int64            `json:"section_id"`
	Title         string           `json:"title"`
	Slug          string           `json:"slug"`
	Description   string           `json:"description"`
	Images        ImageList        `json:"images"`
	Price         decimal.Decimal  `json:"price"`
	OldPrice      *decimal.Decimal `json:"old_price"`
	PromotionText *string          `json:"promotion_text"`
	Currency      string           `json:"currency"`
	StockCount    int              `json:"stock_count"`
	IsActive      bool             `json:"is_active"`
	Badge         *Badge           `json:"badge"`
}

// DiscountPercent is round((old-price)/old*100) when the product has an old
// price above the current one, otherwise 0.
func (p Product) DiscountPercent() int64 {
	if p.OldPrice == nil || !p.OldPrice.GreaterThan(p.Price) || !p.OldPrice.IsPositive() {
		return 0
	}
	pct := p.OldPrice.Sub(p.Price).Div(*p.OldPrice).Mul(decimal.NewFromInt(100))
	return pct.Round(0).IntPart()
}

type Category struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	MainImage       string `json:"main_image"`
	AdditionalImage string `json:"additional_image"`
	ShowOnMain      bool   `json:"show_on_main"`
	SortOrder       int    `json:"sort_order"`
	IsActive        bool   `json:"is_active"`
}

type MainScreenCategory struct {
	Category      Category  `json:"category"`
	Products      []Product `json:"products"`
	TotalProducts int       `json:"total_products"`
	HasMore       bool      `json:"has_more"`
}

// Section is a promotional grouping of products. RestTime, when present, is
// the number of seconds left at the time the server answered.
type Section struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Route    *string `json:"route"`
	RestTime *int64  `json:"rest_time"`
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	CategoryID int64
	SectionID  int64
	Limit      int
	Offset     int
}

type ReviewUser struct {
	ID        int64   `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
}

type Review struct {
	ID        int64      `json:"id"`
	ProductID int64      `json:"product_id"`
	User      ReviewUser `json:"user"`
	Rating    int        `json:"rating"`
	Comment   *string    `json:"comment"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	IsOwn     bool       `json:"is_own"`
	Status    *string    `json:"status,omitempty"`
}

type Rating struct {
	AverageRating      float64        `json:"average_rating"`
	ReviewsCount       int            `json:"reviews_count"`
	RatingDistribution map[string]int `json:"rating_distribution"`
}

// ReviewDraft is a shopper's new or edited review.
type ReviewDraft struct {
	ProductID int64   `json:"product_id,omitempty"`
	Rating    int     `json:"rating"`
	Comment   *string `json:"comment,omitempty"`
}

func (d ReviewDraft) Validate() error {
	if d.Rating < 1 || d.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

type SiteSettings struct {
	SnowEnabled bool `json:"snow_enabled"`
}
