package ratecache

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"
	"github.com/claritydx/feesched-api/pkg/keymutex"
	"github.com/claritydx/feesched-api/pkg/logger"
	"github.com/claritydx/feesched-api/pkg/metrics"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/objectstore"
	"github.com/claritydx/feesched-api/internal/repository"
)

// RefreshLocker serializes refreshes of the same key across processes.
// TryLock returns false when another process holds the key.
type RefreshLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, func(), error)
}

type RateCache interface {
	GetOrRefresh(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, bool, error)
}

// Config tunes the freshness policy.
type Config struct {
	StalenessWindow time.Duration
	FetchTimeout    time.Duration
	LockTTL         time.Duration
}

// Service maintains the time-bounded cache of commercial rates. Refreshes are
// lazy, per-key serialized, and never surface failures to the caller: stale
// rows (or none) are served instead.
type Service struct {
	repo    repository.CacheRepository
	store   objectstore.SnapshotFetcher
	locks   *keymutex.KeyMutex
	rlock   RefreshLocker
	cfg     Config
	now     func() time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(
	repo repository.CacheRepository,
	store objectstore.SnapshotFetcher,
	rlock RefreshLocker,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = 24 * time.Hour
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &Service{
		repo:    repo,
		store:   store,
		locks:   keymutex.New(),
		rlock:   rlock,
		cfg:     cfg,
		now:     time.Now,
		logger:  log,
		metrics: m,
	}
}

// WithClock overrides the time source. Tests inject a fixed clock here.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetOrRefresh returns the cached rows for the key, refreshing from the
// object store first when the newest row is older than the staleness window.
// The second return value reports whether the read was a cache hit, meaning
// no refresh was attempted.
func (s *Service) GetOrRefresh(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, bool, error) {
	rows, err := s.repo.GetRates(ctx, state, procedureCode)
	if err != nil {
		return nil, false, apperrors.StoreUnavailable(err)
	}

	if s.isFresh(rows) {
		s.countHit(true)
		s.bumpAccess(ctx, rows)
		return rows, true, nil
	}

	s.countHit(false)
	s.refresh(ctx, state, procedureCode)

	rows, err = s.repo.GetRates(ctx, state, procedureCode)
	if err != nil {
		return nil, false, apperrors.StoreUnavailable(err)
	}
	s.bumpAccess(ctx, rows)
	return rows, false, nil
}

func (s *Service) isFresh(rows []*model.CachedRate) bool {
	if len(rows) == 0 {
		return false
	}
	var newest time.Time
	for _, row := range rows {
		if row.LastUpdated.After(newest) {
			newest = row.LastUpdated
		}
	}
	return s.now().Sub(newest) <= s.cfg.StalenessWindow
}

// refresh replaces the key's rows from the object store. All failures are
// logged and swallowed; the caller serves whatever is in the cache.
func (s *Service) refresh(ctx context.Context, state, procedureCode string) {
	key := Key(state, procedureCode)

	unlock := s.locks.Lock(key)
	defer unlock()

	if s.rlock != nil {
		held, release, err := s.rlock.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.logRefreshFailure(state, procedureCode, "lock", err)
		} else if !held {
			// Another process is already refreshing this key.
			return
		} else {
			defer release()
		}
	}

	// Re-check under the lock: a concurrent miss may have refreshed already.
	if rows, err := s.repo.GetRates(ctx, state, procedureCode); err == nil && s.isFresh(rows) {
		return
	}

	if s.metrics != nil {
		s.metrics.RefreshAttempts.Inc()
		timer := s.now()
		defer func() {
			s.metrics.RefreshDuration.Observe(time.Since(timer).Seconds())
		}()
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	snapshot, err := s.store.FetchRateSnapshot(fetchCtx, state, procedureCode)
	if err != nil {
		s.logRefreshFailure(state, procedureCode, "fetch", err)
		return
	}

	now := s.now()
	rows := make([]*model.CachedRate, 0, len(snapshot))
	for _, sr := range snapshot {
		rows = append(rows, &model.CachedRate{
			State:         state,
			ProcedureCode: procedureCode,
			Provider:      sr.Provider,
			Rate:          decimal.NewFromFloat(sr.Rate).Round(2),
			EffectiveDate: sr.EffectiveDate(),
			LastUpdated:   now,
		})
	}

	if err := s.repo.ReplaceRates(ctx, state, procedureCode, rows); err != nil {
		s.logRefreshFailure(state, procedureCode, "replace", err)
		return
	}
}

// bumpAccess records one access per served row. A second, independent write
// path from refresh; failures must not affect the read.
func (s *Service) bumpAccess(ctx context.Context, rows []*model.CachedRate) {
	if len(rows) == 0 {
		return
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	if err := s.repo.IncrementAccess(ctx, ids, s.now()); err != nil {
		if s.logger != nil {
			s.logger.Warn(err, "failed to increment cache access counts")
		}
	}
	if s.metrics != nil {
		s.metrics.CachedRowsServed.Add(float64(len(rows)))
	}
}

func (s *Service) countHit(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.Inc()
	} else {
		s.metrics.CacheMisses.Inc()
	}
}

func (s *Service) logRefreshFailure(state, procedureCode, reason string, err error) {
	if s.metrics != nil {
		s.metrics.RefreshFailures.WithLabelValues(reason).Inc()
	}
	if s.logger != nil {
		s.logger.ZL.Warn().
			Err(apperrors.RefreshFailure(err)).
			Str("state", state).
			Str("procedure_code", procedureCode).
			Str("reason", reason).
			Msg("cache refresh failed, serving stale data")
	}
}

var _ RateCache = (*Service)(nil)

// Key formats the cache key the way the lock and the object store expect it.
func Key(state, procedureCode string) string {
	return fmt.Sprintf("%s/%s", state, procedureCode)
}
