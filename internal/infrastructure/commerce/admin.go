package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
)

// updateMethods records the verb each collection uses for updates.
var updateMethods = map[catalog.Resource]string{
	catalog.ResourceSections:   http.MethodPatch,
	catalog.ResourceCategories: http.MethodPatch,
	catalog.ResourceProducts:   http.MethodPatch,
	catalog.ResourceBadges:     http.MethodPatch,
	catalog.ResourcePromoCodes: http.MethodPut,
	catalog.ResourceBanners:    http.MethodPatch,
}

func resourcePath(r catalog.Resource) string { return "/admin/" + string(r) }

// AdminList lists a collection. Query parameters are forwarded as given.
func (c *Client) AdminList(ctx context.Context, r catalog.Resource, query url.Values) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := c.do(ctx, "admin."+string(r)+".list", http.MethodGet, resourcePath(r), query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminGet(ctx context.Context, r catalog.Resource, id int64) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	path := fmt.Sprintf("%s/%d", resourcePath(r), id)
	if err := c.do(ctx, "admin."+string(r)+".get", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminCreate(ctx context.Context, r catalog.Resource, body json.RawMessage) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := c.do(ctx, "admin."+string(r)+".create", http.MethodPost, resourcePath(r), nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminUpdate(ctx context.Context, r catalog.Resource, id int64, body json.RawMessage) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	path := fmt.Sprintf("%s/%d", resourcePath(r), id)
	if err := c.do(ctx, "admin."+string(r)+".update", updateMethods[r], path, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminDelete(ctx context.Context, r catalog.Resource, id int64) error {
	if err := r.Validate(); err != nil {
		return err
	}
	path := fmt.Sprintf("%s/%d", resourcePath(r), id)
	return c.do(ctx, "admin."+string(r)+".delete", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) AdminReviews(ctx context.Context, status catalog.ReviewStatus, limit, offset int) (json.RawMessage, error) {
	q := pageQuery(limit, offset)
	if status != "" {
		q.Set("status", string(status))
	}
	var out json.RawMessage
	if err := c.do(ctx, "admin.reviews.list", http.MethodGet, "/admin/reviews", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminReviewStats(ctx context.Context) (*catalog.ReviewStats, error) {
	var out catalog.ReviewStats
	if err := c.do(ctx, "admin.reviews.stats", http.MethodGet, "/admin/reviews/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ModerateReview(ctx context.Context, reviewID int64, action catalog.ModerationAction) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/admin/reviews/%d/moderate", reviewID)
	body := map[string]string{"action": string(action)}
	if err := c.do(ctx, "admin.reviews.moderate", http.MethodPatch, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminDeleteReview(ctx context.Context, reviewID int64) error {
	path := fmt.Sprintf("/admin/reviews/%d", reviewID)
	return c.do(ctx, "admin.reviews.delete", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) AdminBonusUsers(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, "admin.bonus.users", http.MethodGet, "/admin/bonus/users", pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminBonusUser(ctx context.Context, userID int64) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/admin/bonus/users/%d", userID)
	if err := c.do(ctx, "admin.bonus.user", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdjustBonus(ctx context.Context, adj bonus.Adjustment) error {
	path := "/admin/bonus/" + string(adj.Kind)
	return c.do(ctx, "admin.bonus."+string(adj.Kind), http.MethodPost, path, nil, adj, nil)
}

func (c *Client) AdminBonusTransactions(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, "admin.bonus.transactions", http.MethodGet, "/admin/bonus/transactions", pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminSiteSettings(ctx context.Context) (*catalog.SiteSettings, error) {
	var out catalog.SiteSettings
	if err := c.do(ctx, "admin.settings.get", http.MethodGet, "/admin/site-settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSiteSettings(ctx context.Context, patch json.RawMessage) (*catalog.SiteSettings, error) {
	var out catalog.SiteSettings
	if err := c.do(ctx, "admin.settings.update", http.MethodPatch, "/admin/site-settings", nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminStats(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, "admin.stats", http.MethodGet, "/admin/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
