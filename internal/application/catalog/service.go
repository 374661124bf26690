// Package catalog serves the read side of the storefront: sections,
// categories, products, reviews, bonus history and site settings.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	domain "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/countdown"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/observability"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/pkg/cachepolicy"

	"go.opentelemetry.io/otel/attribute"
)

const (
	catalogService = "catalog-service"

	DefaultMainScreenLimit = 8
	DefaultPageLimit       = 50

	useCaseReviewCreate = "review.create"
	useCaseReviewUpdate = "review.update"
	useCaseReviewDelete = "review.delete"
)

// CommercePort is the read API plus the shopper's own review writes.
type CommercePort interface {
	Sections(ctx context.Context) ([]domain.Section, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	MainScreen(ctx context.Context, limitPerCategory int) ([]domain.MainScreenCategory, error)
	Products(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (*domain.Product, error)
	ProductReviews(ctx context.Context, productID int64, limit, offset int) ([]domain.Review, error)
	ProductRating(ctx context.Context, productID int64) (*domain.Rating, error)
	CreateReview(ctx context.Context, draft domain.ReviewDraft) (*domain.Review, error)
	UpdateReview(ctx context.Context, reviewID int64, draft domain.ReviewDraft) (*domain.Review, error)
	DeleteReview(ctx context.Context, reviewID int64) error
	BonusInfo(ctx context.Context) (*bonus.Info, error)
	BonusTransactions(ctx context.Context, limit, offset int) ([]bonus.Transaction, error)
	BonusMilestones(ctx context.Context) (*bonus.Milestones, error)
	SiteSettings(ctx context.Context) (*domain.SiteSettings, error)
}

// SectionView is a section with its countdown label rendered at fetch time.
type SectionView struct {
	domain.Section
	Countdown *countdown.Frame `json:"countdown,omitempty"`
	Label     string           `json:"countdown_label,omitempty"`
}

// ProductView adds the computed discount percent.
type ProductView struct {
	domain.Product
	DiscountPercent int64 `json:"discount_percent"`
}

type Service struct {
	commerce CommercePort
	cache    cachepolicy.Cache
	policy   cachepolicy.Policy
	probe    *application.Probe
	now      func() time.Time
}

// sectionsSnapshot is the cached form of the section list. Rest times are
// aged by the snapshot's age on every read.
type sectionsSnapshot struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Sections  []domain.Section `json:"sections"`
}

// NewService wires the catalog reads. A nil cache or a zero policy means
// every read goes to the remote API.
func NewService(commerce CommercePort, cache cachepolicy.Cache, policy cachepolicy.Policy, tel observability.Observability) *Service {
	return &Service{
		commerce: commerce,
		cache:    cache,
		policy:   policy,
		probe:    application.NewProbe(tel, catalogService),
		now:      time.Now,
	}
}

func (s *Service) Sections(ctx context.Context) ([]SectionView, error) {
	snap, err := cachepolicy.Fetch(ctx, s.policy, s.cache, "sections", func(ctx context.Context) (sectionsSnapshot, error) {
		sections, err := s.commerce.Sections(ctx)
		return sectionsSnapshot{FetchedAt: s.now(), Sections: sections}, err
	})
	if err != nil {
		return nil, err
	}
	age := max(0, int64(s.now().Sub(snap.FetchedAt)/time.Second))

	out := make([]SectionView, 0, len(snap.Sections))
	for _, sec := range snap.Sections {
		view := SectionView{Section: sec}
		if sec.RestTime != nil {
			rest := max(0, *sec.RestTime-age)
			view.RestTime = &rest
			frame := countdown.New(rest).Frame()
			view.Countdown = &frame
			view.Label, _ = countdown.Label(frame.Remaining)
		}
		out = append(out, view)
	}
	return out, nil
}

// SectionCountdown starts a countdown from the section's current rest time.
// A section without one yields an already expired countdown.
func (s *Service) SectionCountdown(ctx context.Context, sectionID int64) (*countdown.Countdown, error) {
	if sectionID <= 0 {
		return nil, domain.ErrInvalidID
	}
	// the remaining time must be fresh, so the cache is bypassed here
	sections, err := s.commerce.Sections(ctx)
	if err != nil {
		return nil, err
	}
	for _, sec := range sections {
		if sec.ID != sectionID {
			continue
		}
		if sec.RestTime == nil {
			return countdown.New(0), nil
		}
		return countdown.New(*sec.RestTime), nil
	}
	return nil, fmt.Errorf("section %d: %w", sectionID, domain.ErrNotFound)
}

func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	return cachepolicy.Fetch(ctx, s.policy, s.cache, "categories", s.commerce.Categories)
}

func (s *Service) MainScreen(ctx context.Context, limitPerCategory int) ([]domain.MainScreenCategory, error) {
	if limitPerCategory <= 0 {
		limitPerCategory = DefaultMainScreenLimit
	}
	key := "main-screen:" + strconv.Itoa(limitPerCategory)
	return cachepolicy.Fetch(ctx, s.policy, s.cache, key, func(ctx context.Context) ([]domain.MainScreenCategory, error) {
		return s.commerce.MainScreen(ctx, limitPerCategory)
	})
}

func (s *Service) Products(ctx context.Context, f domain.ProductFilter) ([]ProductView, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, errNegativePage
	}
	key := fmt.Sprintf("products:c%d:s%d:l%d:o%d", f.CategoryID, f.SectionID, f.Limit, f.Offset)
	products, err := cachepolicy.Fetch(ctx, s.policy, s.cache, key, func(ctx context.Context) ([]domain.Product, error) {
		return s.commerce.Products(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{Product: p, DiscountPercent: p.DiscountPercent()})
	}
	return out, nil
}

func (s *Service) Product(ctx context.Context, id int64) (*ProductView, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	key := "product:" + strconv.FormatInt(id, 10)
	p, err := cachepolicy.Fetch(ctx, s.policy, s.cache, key, func(ctx context.Context) (*domain.Product, error) {
		return s.commerce.Product(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &ProductView{Product: *p, DiscountPercent: p.DiscountPercent()}, nil
}

// Reviews are shopper-specific (is_own), so they are never cached.
func (s *Service) Reviews(ctx context.Context, productID int64, limit, offset int) ([]domain.Review, error) {
	if productID <= 0 {
		return nil, domain.ErrInvalidID
	}
	limit, offset, err := page(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.commerce.ProductReviews(ctx, productID, limit, offset)
}

func (s *Service) Rating(ctx context.Context, productID int64) (*domain.Rating, error) {
	if productID <= 0 {
		return nil, domain.ErrInvalidID
	}
	return s.commerce.ProductRating(ctx, productID)
}

func (s *Service) CreateReview(ctx context.Context, draft domain.ReviewDraft) (_ *domain.Review, err error) {
	ctx, call := s.probe.Begin(ctx, useCaseReviewCreate, "CreateReview",
		attribute.Int64("review.product_id", draft.ProductID),
	)
	defer func() { call.End(err) }()

	if draft.ProductID <= 0 {
		call.Fail("PRODUCT_ID_INVALID")
		return nil, domain.ErrInvalidID
	}
	if err := draft.Validate(); err != nil {
		call.Fail("RATING_INVALID")
		return nil, err
	}
	return s.commerce.CreateReview(ctx, draft)
}

func (s *Service) UpdateReview(ctx context.Context, reviewID int64, draft domain.ReviewDraft) (_ *domain.Review, err error) {
	ctx, call := s.probe.Begin(ctx, useCaseReviewUpdate, "UpdateReview",
		attribute.Int64("review.id", reviewID),
	)
	defer func() { call.End(err) }()

	if reviewID <= 0 {
		call.Fail("REVIEW_ID_INVALID")
		return nil, domain.ErrInvalidID
	}
	if err := draft.Validate(); err != nil {
		call.Fail("RATING_INVALID")
		return nil, err
	}
	draft.ProductID = 0
	return s.commerce.UpdateReview(ctx, reviewID, draft)
}

func (s *Service) DeleteReview(ctx context.Context, reviewID int64) (err error) {
	ctx, call := s.probe.Begin(ctx, useCaseReviewDelete, "DeleteReview",
		attribute.Int64("review.id", reviewID),
	)
	defer func() { call.End(err) }()

	if reviewID <= 0 {
		call.Fail("REVIEW_ID_INVALID")
		return domain.ErrInvalidID
	}
	return s.commerce.DeleteReview(ctx, reviewID)
}

func (s *Service) BonusInfo(ctx context.Context) (*bonus.Info, error) {
	return s.commerce.BonusInfo(ctx)
}

func (s *Service) BonusTransactions(ctx context.Context, limit, offset int) ([]bonus.Transaction, error) {
	limit, offset, err := page(limit, offset)
	if err != nil {
		return nil, err
	}
	return s.commerce.BonusTransactions(ctx, limit, offset)
}

func (s *Service) BonusMilestones(ctx context.Context) (*bonus.Milestones, error) {
	return cachepolicy.Fetch(ctx, s.policy, s.cache, "bonus-milestones", s.commerce.BonusMilestones)
}

// Settings are read fresh so an admin toggle shows up immediately.
func (s *Service) Settings(ctx context.Context) (*domain.SiteSettings, error) {
	return s.commerce.SiteSettings(ctx)
}

var errNegativePage = fmt.Errorf("%w: limit and offset must not be negative", application.ErrValidation)

func page(limit, offset int) (int, int, error) {
	if limit < 0 || offset < 0 {
		return 0, 0, errNegativePage
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	return limit, offset, nil
}
