package ratecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/objectstore"
)

type fakeCacheRepo struct {
	mu         sync.Mutex
	rows       map[string][]*model.CachedRate
	getErr     error
	replaceErr error
	increments [][]int64
	nextID     int64
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{rows: make(map[string][]*model.CachedRate)}
}

func (f *fakeCacheRepo) key(state, code string) string { return state + "/" + code }

func (f *fakeCacheRepo) GetRates(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]*model.CachedRate, len(f.rows[f.key(state, procedureCode)]))
	copy(out, f.rows[f.key(state, procedureCode)])
	return out, nil
}

func (f *fakeCacheRepo) ReplaceRates(ctx context.Context, state, procedureCode string, rows []*model.CachedRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	stored := make([]*model.CachedRate, 0, len(rows))
	for _, row := range rows {
		f.nextID++
		copied := *row
		copied.ID = f.nextID
		stored = append(stored, &copied)
	}
	f.rows[f.key(state, procedureCode)] = stored
	return nil
}

func (f *fakeCacheRepo) IncrementAccess(ctx context.Context, ids []int64, accessedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments = append(f.increments, ids)
	return nil
}

func (f *fakeCacheRepo) PopularRates(ctx context.Context, limit int) ([]*model.PopularRate, error) {
	return nil, nil
}

type fakeFetcher struct {
	mu    sync.Mutex
	rows  []objectstore.SnapshotRow
	err   error
	delay time.Duration
	calls int
}

func (f *fakeFetcher) FetchRateSnapshot(ctx context.Context, state, procedureCode string) ([]objectstore.SnapshotRow, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *fakeCacheRepo, store *fakeFetcher) *Service {
	svc := NewService(repo, store, nil, Config{StalenessWindow: 24 * time.Hour}, nil, nil)
	return svc.WithClock(func() time.Time { return testClock })
}

func seedRows(repo *fakeCacheRepo, state, code string, age time.Duration, n int) {
	rows := make([]*model.CachedRate, 0, n)
	for i := 0; i < n; i++ {
		repo.nextID++
		rows = append(rows, &model.CachedRate{
			ID:            repo.nextID,
			State:         state,
			ProcedureCode: code,
			Rate:          decimal.NewFromInt(int64(100 + i)),
			LastUpdated:   testClock.Add(-age),
		})
	}
	repo.rows[repo.key(state, code)] = rows
}

func TestGetOrRefreshFreshHit(t *testing.T) {
	repo := newFakeCacheRepo()
	seedRows(repo, "GA", "99213", time.Hour, 2)
	store := &fakeFetcher{}

	svc := newTestService(repo, store)

	rows, hit, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
	require.NoError(t, err)

	assert.True(t, hit)
	assert.Len(t, rows, 2)
	assert.Equal(t, 0, store.callCount(), "fresh rows must not trigger a fetch")
	require.Len(t, repo.increments, 1)
	assert.Len(t, repo.increments[0], 2)
}

func TestGetOrRefreshStaleTriggersRefresh(t *testing.T) {
	repo := newFakeCacheRepo()
	seedRows(repo, "GA", "99213", 48*time.Hour, 1)
	provider := "Acme Health"
	store := &fakeFetcher{rows: []objectstore.SnapshotRow{
		{Provider: &provider, Rate: 123.456, Date: "2024-05-01"},
		{Rate: 99.99, Date: "2024-05-01"},
	}}

	svc := newTestService(repo, store)

	rows, hit, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, 1, store.callCount())
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Rate.Equal(decimal.NewFromFloat(123.46)), "rates round to cents on ingest, got %s", rows[0].Rate)
	assert.Equal(t, testClock, rows[0].LastUpdated)
}

func TestGetOrRefreshFetchFailureServesStale(t *testing.T) {
	repo := newFakeCacheRepo()
	seedRows(repo, "GA", "99213", 48*time.Hour, 1)
	store := &fakeFetcher{err: errors.New("bucket gone")}

	svc := newTestService(repo, store)

	rows, hit, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
	require.NoError(t, err, "refresh failures must be swallowed")

	assert.False(t, hit)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Rate.Equal(decimal.NewFromInt(100)), "stale row must survive a failed refresh")
}

func TestGetOrRefreshUnknownKeyFetchFailure(t *testing.T) {
	repo := newFakeCacheRepo()
	store := &fakeFetcher{err: errors.New("no such key")}

	svc := newTestService(repo, store)

	rows, hit, err := svc.GetOrRefresh(context.Background(), "ZZ", "00000")
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Empty(t, rows)
	assert.Empty(t, repo.increments, "nothing served, nothing counted")
}

func TestGetOrRefreshReplaceFailureServesStale(t *testing.T) {
	repo := newFakeCacheRepo()
	seedRows(repo, "GA", "99213", 48*time.Hour, 1)
	repo.replaceErr = errors.New("deadlock")
	store := &fakeFetcher{rows: []objectstore.SnapshotRow{{Rate: 50}}}

	svc := newTestService(repo, store)

	rows, _, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Rate.Equal(decimal.NewFromInt(100)))
}

func TestGetOrRefreshStoreDownIsAnError(t *testing.T) {
	repo := newFakeCacheRepo()
	repo.getErr = errors.New("connection refused")

	svc := newTestService(repo, &fakeFetcher{})

	_, _, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStoreUnavailable, apperrors.CodeOf(err))
}

func TestConcurrentRefreshSingleFetch(t *testing.T) {
	repo := newFakeCacheRepo()
	seedRows(repo, "GA", "99213", 48*time.Hour, 1)
	store := &fakeFetcher{
		rows:  []objectstore.SnapshotRow{{Rate: 55, Date: "2024-05-01"}},
		delay: 20 * time.Millisecond,
	}

	svc := newTestService(repo, store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.callCount(), "one refresh generation for concurrent misses")
}

type deniedLocker struct{}

func (deniedLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, func(), error) {
	return false, nil, nil
}

func TestRefreshSkippedWhenLockHeldElsewhere(t *testing.T) {
	repo := newFakeCacheRepo()
	seedRows(repo, "GA", "99213", 48*time.Hour, 1)
	store := &fakeFetcher{rows: []objectstore.SnapshotRow{{Rate: 55}}}

	svc := NewService(repo, store, deniedLocker{}, Config{StalenessWindow: 24 * time.Hour}, nil, nil).
		WithClock(func() time.Time { return testClock })

	rows, hit, err := svc.GetOrRefresh(context.Background(), "GA", "99213")
	require.NoError(t, err)

	assert.False(t, hit)
	assert.Equal(t, 0, store.callCount(), "another process owns the refresh")
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Rate.Equal(decimal.NewFromInt(100)))
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "GA/99213", Key("GA", "99213"))
}
