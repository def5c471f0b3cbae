package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claritydx/feesched-api/internal/model"
)

type fakeRateCache struct {
	rows []*model.CachedRate
	hit  bool
	err  error
}

func (f *fakeRateCache) GetOrRefresh(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, bool, error) {
	return f.rows, f.hit, f.err
}

type fakeCacheRepo struct {
	popular []*model.PopularRate
}

func (f *fakeCacheRepo) GetRates(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, error) {
	return nil, nil
}

func (f *fakeCacheRepo) ReplaceRates(ctx context.Context, state, procedureCode string, rows []*model.CachedRate) error {
	return nil
}

func (f *fakeCacheRepo) IncrementAccess(ctx context.Context, ids []int64, accessedAt time.Time) error {
	return nil
}

func (f *fakeCacheRepo) PopularRates(ctx context.Context, limit int) ([]*model.PopularRate, error) {
	if limit < len(f.popular) {
		return f.popular[:limit], nil
	}
	return f.popular, nil
}

type fakeLogRepo struct {
	entries   []*model.RateQuery
	createErr error
	stats     model.CacheStats
}

func (f *fakeLogRepo) Create(ctx context.Context, entry *model.RateQuery) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogRepo) Stats(ctx context.Context) (*model.CacheStats, error) {
	stats := f.stats
	return &stats, nil
}

var queryClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(cache *fakeRateCache, logRepo *fakeLogRepo, cacheRepo *fakeCacheRepo) *Service {
	return NewService(cache, cacheRepo, logRepo, 10, nil, nil).
		WithClock(func() time.Time { return queryClock })
}

func TestQueryLogsExactlyOneEntry(t *testing.T) {
	provider := "Acme Health"
	cache := &fakeRateCache{
		rows: []*model.CachedRate{
			{ID: 1, Provider: &provider, Rate: decimal.NewFromFloat(123.45), EffectiveDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		},
		hit: true,
	}
	logRepo := &fakeLogRepo{}

	svc := newTestService(cache, logRepo, &fakeCacheRepo{})

	observations, err := svc.Query(context.Background(), "GA", "99213")
	require.NoError(t, err)

	require.Len(t, observations, 1)
	assert.Equal(t, "2024-05-01", observations[0].Date)
	assert.True(t, observations[0].Rate.Equal(decimal.NewFromFloat(123.45)))

	require.Len(t, logRepo.entries, 1)
	entry := logRepo.entries[0]
	assert.Equal(t, "GA", entry.State)
	assert.Equal(t, "99213", entry.ProcedureCode)
	assert.Equal(t, 1, entry.ResultCount)
	assert.True(t, entry.CacheHit)
	assert.Equal(t, queryClock, entry.QueryDate)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", entry.ID.String())
}

func TestQueryUnknownKeyLogsEmptyResult(t *testing.T) {
	cache := &fakeRateCache{}
	logRepo := &fakeLogRepo{}

	svc := newTestService(cache, logRepo, &fakeCacheRepo{})

	observations, err := svc.Query(context.Background(), "ZZ", "00000")
	require.NoError(t, err)

	assert.NotNil(t, observations)
	assert.Empty(t, observations)
	require.Len(t, logRepo.entries, 1)
	assert.Equal(t, 0, logRepo.entries[0].ResultCount)
	assert.False(t, logRepo.entries[0].CacheHit)
}

func TestQueryLogFailureDoesNotBlockResults(t *testing.T) {
	cache := &fakeRateCache{
		rows: []*model.CachedRate{{ID: 1, Rate: decimal.NewFromInt(80)}},
		hit:  true,
	}
	logRepo := &fakeLogRepo{createErr: errors.New("insert failed")}

	svc := newTestService(cache, logRepo, &fakeCacheRepo{})

	observations, err := svc.Query(context.Background(), "GA", "99213")
	require.NoError(t, err)
	assert.Len(t, observations, 1)
}

func TestQueryPropagatesStoreError(t *testing.T) {
	cache := &fakeRateCache{err: errors.New("store down")}
	logRepo := &fakeLogRepo{}

	svc := newTestService(cache, logRepo, &fakeCacheRepo{})

	_, err := svc.Query(context.Background(), "GA", "99213")
	require.Error(t, err)
	assert.Empty(t, logRepo.entries, "failed lookups are not logged")
}

func TestStats(t *testing.T) {
	cacheRepo := &fakeCacheRepo{
		popular: []*model.PopularRate{
			{State: "GA", ProcedureCode: "99213", Accesses: 42},
			{State: "TX", ProcedureCode: "73721", Accesses: 17},
		},
	}
	logRepo := &fakeLogRepo{stats: model.CacheStats{TotalQueries: 3, CacheHits: 2}}

	svc := newTestService(&fakeRateCache{}, logRepo, cacheRepo)

	result, err := svc.Stats(context.Background())
	require.NoError(t, err)

	require.Len(t, result.PopularRates, 2)
	assert.Equal(t, "GA", result.PopularRates[0].State)
	assert.Equal(t, int64(42), result.PopularRates[0].Accesses)
	assert.InDelta(t, 66.67, result.CacheStats.HitRate, 0.001)
}

func TestHitRate(t *testing.T) {
	assert.Equal(t, float64(0), HitRate(0, 0))
	assert.Equal(t, float64(50), HitRate(1, 2))
	assert.Equal(t, 66.67, HitRate(2, 3))
	assert.Equal(t, float64(100), HitRate(5, 5))
}
