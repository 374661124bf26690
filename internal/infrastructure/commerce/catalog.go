package commerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
)

func (c *Client) Sections(ctx context.Context) ([]catalog.Section, error) {
	var out []catalog.Section
	if err := c.do(ctx, "sections.list", http.MethodGet, "/sections", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	if err := c.do(ctx, "categories.list", http.MethodGet, "/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MainScreen(ctx context.Context, limitPerCategory int) ([]catalog.MainScreenCategory, error) {
	q := url.Values{}
	q.Set("limit_per_category", strconv.Itoa(limitPerCategory))
	var out []catalog.MainScreenCategory
	if err := c.do(ctx, "categories.main_screen", http.MethodGet, "/categories/main-screen", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Products(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	q := url.Values{}
	if f.CategoryID > 0 {
		q.Set("category_id", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.SectionID > 0 {
		q.Set("section_id", strconv.FormatInt(f.SectionID, 10))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	var out []catalog.Product
	if err := c.do(ctx, "products.list", http.MethodGet, "/products", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id int64) (*catalog.Product, error) {
	var out catalog.Product
	if err := c.do(ctx, "products.get", http.MethodGet, fmt.Sprintf("/products/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ProductReviews(ctx context.Context, productID int64, limit, offset int) ([]catalog.Review, error) {
	var out []catalog.Review
	path := fmt.Sprintf("/products/%d/reviews", productID)
	if err := c.do(ctx, "reviews.list", http.MethodGet, path, pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProductRating(ctx context.Context, productID int64) (*catalog.Rating, error) {
	var out catalog.Rating
	path := fmt.Sprintf("/products/%d/rating", productID)
	if err := c.do(ctx, "reviews.rating", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateReview(ctx context.Context, draft catalog.ReviewDraft) (*catalog.Review, error) {
	var out catalog.Review
	if err := c.do(ctx, "reviews.create", http.MethodPost, "/reviews", nil, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateReview(ctx context.Context, reviewID int64, draft catalog.ReviewDraft) (*catalog.Review, error) {
	var out catalog.Review
	path := fmt.Sprintf("/reviews/%d", reviewID)
	if err := c.do(ctx, "reviews.update", http.MethodPut, path, nil, draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReview(ctx context.Context, reviewID int64) error {
	return c.do(ctx, "reviews.delete", http.MethodDelete, fmt.Sprintf("/reviews/%d", reviewID), nil, nil, nil)
}

func (c *Client) BonusInfo(ctx context.Context) (*bonus.Info, error) {
	var out bonus.Info
	if err := c.do(ctx, "bonus.info", http.MethodGet, "/bonus/info", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) BonusTransactions(ctx context.Context, limit, offset int) ([]bonus.Transaction, error) {
	var out []bonus.Transaction
	if err := c.do(ctx, "bonus.transactions", http.MethodGet, "/bonus/transactions", pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BonusMilestones(ctx context.Context) (*bonus.Milestones, error) {
	var out bonus.Milestones
	if err := c.do(ctx, "bonus.milestones", http.MethodGet, "/bonus/milestones", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SiteSettings(ctx context.Context) (*catalog.SiteSettings, error) {
	var out catalog.SiteSettings
	if err := c.do(ctx, "settings.get", http.MethodGet, "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
