package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Zhima-Mochi/miniapp-storefront/internal/application"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/bonus"
	domain "github.com/Zhima-Mochi/miniapp-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/domain/countdown"
	"github.com/Zhima-Mochi/miniapp-storefront/internal/pkg/cachepolicy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommerce struct {
	sections      []domain.Section
	sectionCalls  int
	products      []domain.Product
	productFilter domain.ProductFilter
	mainLimit     int
	reviewPage    [2]int
	txPage        [2]int
	created       *domain.ReviewDraft
}

func (f *fakeCommerce) Sections(context.Context) ([]domain.Section, error) {
	f.sectionCalls++
	return f.sections, nil
}
func (f *fakeCommerce) Categories(context.Context) ([]domain.Category, error) {
	return []domain.Category{{ID: 1, Title: "Пуховики"}}, nil
}
func (f *fakeCommerce) MainScreen(_ context.Context, limit int) ([]domain.MainScreenCategory, error) {
	f.mainLimit = limit
	return nil, nil
}
func (f *fakeCommerce) Products(_ context.Context, flt domain.ProductFilter) ([]domain.Product, error) {
	f.productFilter = flt
	return f.products, nil
}
func (f *fakeCommerce) Product(_ context.Context, id int64) (*domain.Product, error) {
	return &domain.Product{ID: id, Price: decimal.NewFromInt(100)}, nil
}
func (f *fakeCommerce) ProductReviews(_ context.Context, _ int64, limit, offset int) ([]domain.Review, error) {
	f.reviewPage = [2]int{limit, offset}
	return nil, nil
}
func (f *fakeCommerce) ProductRating(context.Context, int64) (*domain.Rating, error) {
	return &domain.Rating{AverageRating: 4.5}, nil
}
func (f *fakeCommerce) CreateReview(_ context.Context, d domain.ReviewDraft) (*domain.Review, error) {
	f.created = &d
	return &domain.Review{ID: 1, Rating: d.Rating}, nil
}
func (f *fakeCommerce) UpdateReview(_ context.Context, id int64, d domain.ReviewDraft) (*domain.Review, error) {
	return &domain.Review{ID: id, Rating: d.Rating}, nil
}
func (f *fakeCommerce) DeleteReview(context.Context, int64) error { return nil }
func (f *fakeCommerce) BonusInfo(context.Context) (*bonus.Info, error) {
	return &bonus.Info{Balance: decimal.NewFromInt(1000)}, nil
}
func (f *fakeCommerce) BonusTransactions(_ context.Context, limit, offset int) ([]bonus.Transaction, error) {
	f.txPage = [2]int{limit, offset}
	return nil, nil
}
func (f *fakeCommerce) BonusMilestones(context.Context) (*bonus.Milestones, error) {
	return &bonus.Milestones{}, nil
}
func (f *fakeCommerce) SiteSettings(context.Context) (*domain.SiteSettings, error) {
	return &domain.SiteSettings{SnowEnabled: true}, nil
}

type mapCache map[string][]byte

func (m mapCache) Get(_ context.Context, key string, dst any) error {
	raw, ok := m[key]
	if !ok {
		return cachepolicy.ErrCacheMiss
	}
	return json.Unmarshal(raw, dst)
}

func (m mapCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	raw, err := json.Marshal(v)
	m[key] = raw
	return err
}

func ptr[T any](v T) *T { return &v }

func TestSections_RenderCountdownLabels(t *testing.T) {
	fc := &fakeCommerce{sections: []domain.Section{
		{ID: 1, Name: "Зимняя распродажа", RestTime: ptr(int64(3 * 86400))},
		{ID: 2, Name: "Новинки"},
		{ID: 3, Name: "Flash", RestTime: ptr(int64(3725))},
		{ID: 4, Name: "Over", RestTime: ptr(int64(0))},
	}}
	svc := NewService(fc, nil, cachepolicy.Policy{}, nil)

	views, err := svc.Sections(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 4)

	assert.Equal(t, "Осталось 3 дня", views[0].Label)
	assert.Nil(t, views[1].Countdown)
	assert.Equal(t, "Осталось 1:02:05", views[2].Label)
	require.NotNil(t, views[3].Countdown)
	assert.False(t, views[3].Countdown.Visible)
	assert.Empty(t, views[3].Label)
}

func TestSectionCountdown(t *testing.T) {
	fc := &fakeCommerce{sections: []domain.Section{{ID: 1, RestTime: ptr(int64(65))}, {ID: 2}}}
	svc := NewService(fc, mapCache{}, cachepolicy.Policy{StaleTime: time.Hour}, nil)
	ctx := context.Background()

	cd, err := svc.SectionCountdown(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(65), cd.Remaining())

	cd, err = svc.SectionCountdown(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, countdown.Expired, cd.State())

	_, err = svc.SectionCountdown(ctx, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 3, fc.sectionCalls)
}

func TestSections_CachePolicy(t *testing.T) {
	fc := &fakeCommerce{sections: []domain.Section{{ID: 1}}}
	ctx := context.Background()

	fresh := NewService(fc, mapCache{}, cachepolicy.Policy{}, nil)
	_, _ = fresh.Sections(ctx)
	_, _ = fresh.Sections(ctx)
	assert.Equal(t, 2, fc.sectionCalls)

	fc.sectionCalls = 0
	cached := NewService(fc, mapCache{}, cachepolicy.Policy{StaleTime: time.Minute}, nil)
	_, _ = cached.Sections(ctx)
	_, _ = cached.Sections(ctx)
	assert.Equal(t, 1, fc.sectionCalls)
}

func TestSections_CachedRestTimeIsAged(t *testing.T) {
	fc := &fakeCommerce{sections: []domain.Section{{ID: 1, RestTime: ptr(int64(3725))}}}
	svc := NewService(fc, mapCache{}, cachepolicy.Policy{StaleTime: time.Hour}, nil)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	views, err := svc.Sections(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Осталось 1:02:05", views[0].Label)

	now = now.Add(65 * time.Second)
	views, err = svc.Sections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fc.sectionCalls)
	assert.Equal(t, int64(3660), *views[0].RestTime)
	assert.Equal(t, "Осталось 1:01:00", views[0].Label)

	now = now.Add(2 * time.Hour)
	views, err = svc.Sections(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *views[0].RestTime)
	assert.Empty(t, views[0].Label)
}

func TestProducts_DiscountPercentAndFilter(t *testing.T) {
	fc := &fakeCommerce{products: []domain.Product{
		{ID: 1, Price: decimal.NewFromInt(1350), OldPrice: ptr(decimal.NewFromInt(1500))},
		{ID: 2, Price: decimal.NewFromInt(500)},
	}}
	svc := NewService(fc, nil, cachepolicy.Policy{}, nil)

	views, err := svc.Products(context.Background(), domain.ProductFilter{CategoryID: 3, Limit: 20})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(10), views[0].DiscountPercent)
	assert.Equal(t, int64(0), views[1].DiscountPercent)
	assert.Equal(t, int64(3), fc.productFilter.CategoryID)

	_, err = svc.Products(context.Background(), domain.ProductFilter{Limit: -1})
	assert.ErrorIs(t, err, application.ErrValidation)
}

func TestDefaults(t *testing.T) {
	fc := &fakeCommerce{}
	svc := NewService(fc, nil, cachepolicy.Policy{}, nil)
	ctx := context.Background()

	_, err := svc.MainScreen(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMainScreenLimit, fc.mainLimit)

	_, err = svc.Reviews(ctx, 5, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{50, 0}, fc.reviewPage)

	_, err = svc.BonusTransactions(ctx, 10, 20)
	require.NoError(t, err)
	assert.Equal(t, [2]int{10, 20}, fc.txPage)

	_, err = svc.Reviews(ctx, 0, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestReviews_Validation(t *testing.T) {
	fc := &fakeCommerce{}
	svc := NewService(fc, nil, cachepolicy.Policy{}, nil)
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, domain.ReviewDraft{ProductID: 1, Rating: 6})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	assert.Nil(t, fc.created)

	_, err = svc.CreateReview(ctx, domain.ReviewDraft{Rating: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	r, err := svc.CreateReview(ctx, domain.ReviewDraft{ProductID: 1, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, r.Rating)

	_, err = svc.UpdateReview(ctx, 1, domain.ReviewDraft{Rating: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidRating)
	assert.ErrorIs(t, svc.DeleteReview(ctx, 0), domain.ErrInvalidID)
	assert.NoError(t, svc.DeleteReview(ctx, 4))
}
