// Package admin exposes the storefront back office. Payloads for catalog
// collections are passed through untouched; the remote API validates them.
package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	adminService = "admin-service"
	pageLimit    = 50
)

var errEmptyPayload = fmt.Errorf("%w: request body is required", application.ErrValidation)

type CommercePort interface {
	AdminList(ctx context.Context, r catalog.Resource, query url.Values) (json.RawMessage, error)
	AdminGet(ctx context.Context, r catalog.Resource, id int64) (json.RawMessage, error)
	AdminCreate(ctx context.Context, r catalog.Resource, body json.RawMessage) (json.RawMessage, error)
	AdminUpdate(ctx context.Context, r catalog.Resource, id int64, body json.RawMessage) (json.RawMessage, error)
	AdminDelete(ctx context.Context, r catalog.Resource, id int64) error

	AdminReviews(ctx context.Context, status catalog.ReviewStatus, limit, offset int) (json.RawMessage, error)
	AdminReviewStats(ctx context.Context) (*catalog.ReviewStats, error)
	ModerateReview(ctx context.Context, reviewID int64, action catalog.ModerationAction) (json.RawMessage, error)
	AdminDeleteReview(ctx context.Context, reviewID int64) error

	AdminBonusUsers(ctx context.Context, limit, offset int) (json.RawMessage, error)
	AdminBonusUser(ctx context.Context, userID int64) (json.RawMessage, error)
	AdjustBonus(ctx context.Context, adj bonus.Adjustment) error
	AdminBonusTransactions(ctx context.Context, limit, offset int) (json.RawMessage, error)

	AdminSiteSettings(ctx context.Context) (*catalog.SiteSettings, error)
	UpdateSiteSettings(ctx context.Context, patch json.RawMessage) (*catalog.SiteSettings, error)
	AdminStats(ctx context.Context) (json.RawMessage, error)
}

// CacheInvalidator drops cached catalog reads after a write.
type CacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

type Service struct {
	commerce CommercePort
	cache    CacheInvalidator
	probe    *application.Probe
}

func NewService(commerce CommercePort, cache CacheInvalidator, tel observability.Observability) *Service {
	return &Service{commerce: commerce, cache: cache, probe: application.NewProbe(tel, adminService)}
}

// mutate runs an admin write as an instrumented use case.
func (s *Service) mutate(ctx context.Context, useCase, span string, attrs []attribute.KeyValue, fn func(ctx context.Context, call *application.Call) error) (err error) {
	ctx, call := s.probe.Begin(ctx, useCase, span, attrs...)
	defer func() { call.End(err) }()
	return fn(ctx, call)
}

func (s *Service) List(ctx context.Context, r catalog.Resource, query url.Values) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return s.commerce.AdminList(ctx, r, query)
}

func (s *Service) Get(ctx context.Context, r catalog.Resource, id int64) (json.RawMessage, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, catalog.ErrInvalidID
	}
	return s.commerce.AdminGet(ctx, r, id)
}

func (s *Service) Create(ctx context.Context, r catalog.Resource, body json.RawMessage) (out json.RawMessage, err error) {
	err = s.mutate(ctx, "admin."+string(r)+".create", "AdminCreate",
		[]attribute.KeyValue{attribute.String("admin.resource", string(r))},
		func(ctx context.Context, call *application.Call) error {
			if err := r.Validate(); err != nil {
				call.Fail("RESOURCE_UNKNOWN")
				return err
			}
			if len(body) == 0 {
				call.Fail("BODY_REQUIRED")
				return errEmptyPayload
			}
			out, err = s.commerce.AdminCreate(ctx, r, body)
			if err == nil {
				s.invalidate(ctx, call, r)
			}
			return err
		})
	return out, err
}

func (s *Service) Update(ctx context.Context, r catalog.Resource, id int64, body json.RawMessage) (out json.RawMessage, err error) {
	err = s.mutate(ctx, "admin."+string(r)+".update", "AdminUpdate",
		[]attribute.KeyValue{attribute.String("admin.resource", string(r)), attribute.Int64("admin.id", id)},
		func(ctx context.Context, call *application.Call) error {
			if err := r.Validate(); err != nil {
				call.Fail("RESOURCE_UNKNOWN")
				return err
			}
			if id <= 0 {
				call.Fail("ID_INVALID")
				return catalog.ErrInvalidID
			}
			if len(body) == 0 {
				call.Fail("BODY_REQUIRED")
				return errEmptyPayload
			}
			out, err = s.commerce.AdminUpdate(ctx, r, id, body)
			if err == nil {
				s.invalidate(ctx, call, r)
			}
			return err
		})
	return out, err
}

func (s *Service) Delete(ctx context.Context, r catalog.Resource, id int64) error {
	return s.mutate(ctx, "admin."+string(r)+".delete", "AdminDelete",
		[]attribute.KeyValue{attribute.String("admin.resource", string(r)), attribute.Int64("admin.id", id)},
		func(ctx context.Context, call *application.Call) error {
			if err := r.Validate(); err != nil {
				call.Fail("RESOURCE_UNKNOWN")
				return err
			}
			if id <= 0 {
				call.Fail("ID_INVALID")
				return catalog.ErrInvalidID
			}
			if err := s.commerce.AdminDelete(ctx, r, id); err != nil {
				return err
			}
			s.invalidate(ctx, call, r)
			return nil
		})
}

func (s *Service) Reviews(ctx context.Context, status catalog.ReviewStatus, limit, offset int) (json.RawMessage, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown review status %q", application.ErrValidation, status)
	}
	limit, offset, err := page(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.commerce.AdminReviews(ctx, status, limit, offset)
}

func (s *Service) ReviewStats(ctx context.Context) (*catalog.ReviewStats, error) {
	return s.commerce.AdminReviewStats(ctx)
}

func (s *Service) ModerateReview(ctx context.Context, reviewID int64, action catalog.ModerationAction) (out json.RawMessage, err error) {
	err = s.mutate(ctx, "admin.reviews.moderate", "ModerateReview",
		[]attribute.KeyValue{attribute.Int64("review.id", reviewID), attribute.String("review.action", string(action))},
		func(ctx context.Context, call *application.Call) error {
			if reviewID <= 0 {
				call.Fail("REVIEW_ID_INVALID")
				return catalog.ErrInvalidID
			}
			if err := action.Validate(); err != nil {
				call.Fail("ACTION_INVALID")
				return err
			}
			out, err = s.commerce.ModerateReview(ctx, reviewID, action)
			return err
		})
	return out, err
}

func (s *Service) DeleteReview(ctx context.Context, reviewID int64) error {
	return s.mutate(ctx, "admin.reviews.delete", "AdminDeleteReview",
		[]attribute.KeyValue{attribute.Int64("review.id", reviewID)},
		func(ctx context.Context, call *application.Call) error {
			if reviewID <= 0 {
				call.Fail("REVIEW_ID_INVALID")
				return catalog.ErrInvalidID
			}
			return s.commerce.AdminDeleteReview(ctx, reviewID)
		})
}

func (s *Service) BonusUsers(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	limit, offset, err := page(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.commerce.AdminBonusUsers(ctx, limit, offset)
}

func (s *Service) BonusUser(ctx context.Context, userID int64) (json.RawMessage, error) {
	if userID <= 0 {
		return nil, bonus.ErrUserRequired
	}
	return s.commerce.AdminBonusUser(ctx, userID)
}

// AdjustBonus adds, subtracts or sets a user's balance. Add and subtract need
// a positive amount; set-balance accepts zero.
func (s *Service) AdjustBonus(ctx context.Context, adj bonus.Adjustment) error {
	return s.mutate(ctx, "admin.bonus."+string(adj.Kind), "AdjustBonus",
		[]attribute.KeyValue{attribute.Int64("bonus.user_id", adj.UserID), attribute.String("bonus.kind", string(adj.Kind))},
		func(ctx context.Context, call *application.Call) error {
			if err := adj.Validate(); err != nil {
				call.Fail("ADJUSTMENT_INVALID")
				return err
			}
			call.With(observability.F("amount", adj.Amount.String()))
			return s.commerce.AdjustBonus(ctx, adj)
		})
}

func (s *Service) BonusTransactions(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	limit, offset, err := page(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.commerce.AdminBonusTransactions(ctx, limit, offset)
}

func (s *Service) SiteSettings(ctx context.Context) (*catalog.SiteSettings, error) {
	return s.commerce.AdminSiteSettings(ctx)
}

func (s *Service) UpdateSiteSettings(ctx context.Context, patch json.RawMessage) (out *catalog.SiteSettings, err error) {
	err = s.mutate(ctx, "admin.settings.update", "UpdateSiteSettings", nil,
		func(ctx context.Context, call *application.Call) error {
			if len(patch) == 0 {
				call.Fail("BODY_REQUIRED")
				return errEmptyPayload
			}
			out, err = s.commerce.UpdateSiteSettings(ctx, patch)
			return err
		})
	return out, err
}

func (s *Service) Stats(ctx context.Context) (json.RawMessage, error) {
	return s.commerce.AdminStats(ctx)
}

// cacheKeys lists the catalog cache entries a write to r can make stale.
// Product listings are keyed by filter and simply age out.
var cacheKeys = map[catalog.Resource][]string{
	catalog.ResourceSections:   {"sections"},
	catalog.ResourceCategories: {"categories", "main-screen:8"},
	catalog.ResourceProducts:   {"main-screen:8"},
}

func (s *Service) invalidate(ctx context.Context, call *application.Call, r catalog.Resource) {
	if s.cache == nil {
		return
	}
	for _, key := range cacheKeys[r] {
		if err := s.cache.Delete(ctx, key); err != nil {
			call.Logger().Warn("cache_invalidate_failed",
				observability.F("key", key),
				observability.F("error", err.Error()),
			)
		}
	}
}

func page(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, fmt.Errorf("%w: limit and offset must not be negative", application.ErrValidation)
	}
	if limit == 0 {
		limit = pageLimit
	}
	return limit, offset, nil
}
