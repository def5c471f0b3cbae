package query

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/claritydx/feesched-api/pkg/logger"
	"github.com/claritydx/feesched-api/pkg/metrics"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
	"github.com/claritydx/feesched-api/internal/service/ratecache"
)

// RateObservation is one element of the lookup API response.
type RateObservation struct {
	Provider *string         `json:"provider"`
	Rate     decimal.Decimal `json:"rate"`
	Date     string          `json:"date"`
}

// StatsResult is the /api/stats payload.
type StatsResult struct {
	PopularRates []PopularRate    `json:"popular_rates"`
	CacheStats   model.CacheStats `json:"cache_stats"`
}

type PopularRate struct {
	State         string `json:"state"`
	ProcedureCode string `json:"procedure_code"`
	Accesses      int64  `json:"accesses"`
}

type QueryServicer interface {
	Query(ctx context.Context, state, procedureCode string) ([]RateObservation, error)
	Stats(ctx context.Context) (*StatsResult, error)
}

// Service orchestrates a lookup: consult the cache layer, then append exactly
// one query log entry. A failed log write never withholds computed results.
type Service struct {
	cache     ratecache.RateCache
	cacheRepo repository.CacheRepository
	logRepo   repository.QueryLogRepository
	topN      int
	now       func() time.Time
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(
	cache ratecache.RateCache,
	cacheRepo repository.CacheRepository,
	logRepo repository.QueryLogRepository,
	topN int,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if topN <= 0 {
		topN = 10
	}
	return &Service{
		cache:     cache,
		cacheRepo: cacheRepo,
		logRepo:   logRepo,
		topN:      topN,
		now:       time.Now,
		logger:    log,
		metrics:   m,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Query(ctx context.Context, state, procedureCode string) ([]RateObservation, error) {
	rows, hit, err := s.cache.GetOrRefresh(ctx, state, procedureCode)
	if err != nil {
		return nil, err
	}

	observations := make([]RateObservation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, RateObservation{
			Provider: row.Provider,
			Rate:     row.Rate,
			Date:     row.EffectiveDate.Format("2006-01-02"),
		})
	}

	s.logQuery(ctx, state, procedureCode, len(observations), hit)

	return observations, nil
}

func (s *Service) logQuery(ctx context.Context, state, procedureCode string, resultCount int, hit bool) {
	entry := &model.RateQuery{
		ID:            uuid.New(),
		State:         state,
		ProcedureCode: procedureCode,
		QueryDate:     s.now(),
		ResultCount:   resultCount,
		CacheHit:      hit,
	}

	if err := s.logRepo.Create(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.QueryLogFailures.Inc()
		}
		if s.logger != nil {
			s.logger.Warn(err, "failed to write query log entry")
		}
	}

	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(strconv.FormatBool(hit)).Inc()
	}
}

// Stats returns the popularity ranking and the accumulated hit-rate pair.
// Hit rate is a percentage rounded to two decimals, 0 when nothing has been
// queried yet.
func (s *Service) Stats(ctx context.Context) (*StatsResult, error) {
	popular, err := s.cacheRepo.PopularRates(ctx, s.topN)
	if err != nil {
		return nil, err
	}

	stats, err := s.logRepo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats.HitRate = HitRate(stats.CacheHits, stats.TotalQueries)

	result := &StatsResult{
		PopularRates: make([]PopularRate, 0, len(popular)),
		CacheStats:   *stats,
	}
	for _, p := range popular {
		result.PopularRates = append(result.PopularRates, PopularRate{
			State:         p.State,
			ProcedureCode: p.ProcedureCode,
			Accesses:      p.Accesses,
		})
	}
	return result, nil
}

// HitRate computes cache_hits/total as a percentage rounded to 2 decimals.
func HitRate(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*100*100) / 100
}

var _ QueryServicer = (*Service)(nil)
