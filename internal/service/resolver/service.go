package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"
	"github.com/claritydx/feesched-api/pkg/metrics"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

// ResolveRequest identifies one rate lookup. Zip is optional; without it only
// schedule-wide default rows can match and Medicare derivations fail for lack
// of a locality.
type ResolveRequest struct {
	StateCode     string
	Zip           string
	ProcedureCode string
	Modifier      *string
	ScheduleType  string
	AsOf          time.Time
}

type RateResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (*model.RateResult, error)
}

// Service resolves fee schedule and Medicare-derived rates. Pure read; it
// never mutates the store.
type Service struct {
	feeRepo      repository.FeeScheduleRepository
	jurisdiction repository.JurisdictionRepository
	medicare     repository.MedicareRepository
	refCache     *gocache.Cache
	metrics      *metrics.Metrics
}

func NewService(
	feeRepo repository.FeeScheduleRepository,
	jurisdiction repository.JurisdictionRepository,
	medicare repository.MedicareRepository,
	m *metrics.Metrics,
) *Service {
	return &Service{
		feeRepo:      feeRepo,
		jurisdiction: jurisdiction,
		medicare:     medicare,
		refCache:     gocache.New(10*time.Minute, 30*time.Minute),
		metrics:      m,
	}
}

func (s *Service) Resolve(ctx context.Context, req ResolveRequest) (*model.RateResult, error) {
	if req.ScheduleType == "" {
		req.ScheduleType = model.ScheduleTypeGeneralMedicine
	}
	if req.AsOf.IsZero() {
		req.AsOf = time.Now()
	}
	req.StateCode = strings.ToUpper(req.StateCode)

	if s.metrics != nil {
		timer := time.Now()
		defer func() {
			s.metrics.ResolverLatency.Observe(time.Since(timer).Seconds())
		}()
	}

	if isMedicareSchedule(req.ScheduleType) {
		return s.resolveMedicare(ctx, req)
	}
	return s.resolveFeeSchedule(ctx, req)
}

// resolveFeeSchedule walks the schedule for the state, preferring a row whose
// region matches the ZIP's mapped region over the schedule-wide default.
func (s *Service) resolveFeeSchedule(ctx context.Context, req ResolveRequest) (*model.RateResult, error) {
	schedule, err := s.feeRepo.GetActiveSchedule(ctx, req.StateCode, req.ScheduleType, req.AsOf)
	if err != nil {
		s.countMiss("no_active_schedule")
		return nil, err
	}

	rates, err := s.feeRepo.GetRates(ctx, schedule.ID, req.ProcedureCode, req.Modifier)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate rows: %w", err)
	}
	if len(rates) == 0 {
		s.countMiss("rate_not_found")
		return nil, apperrors.RateNotFound(req.ProcedureCode)
	}

	var region *model.Region
	if req.Zip != "" {
		// A missing mapping is not an error; it just means the default row wins.
		region, _ = s.jurisdiction.GetRegionForZip(ctx, req.StateCode, req.Zip)
	}

	rate := pickRate(rates, region)
	if rate == nil {
		s.countMiss("rate_not_found")
		return nil, apperrors.RateNotFound(req.ProcedureCode)
	}

	return &model.RateResult{
		StateCode:     req.StateCode,
		ScheduleType:  req.ScheduleType,
		ProcedureCode: req.ProcedureCode,
		Modifier:      req.Modifier,
		RegionID:      rate.RegionID,
		Rate:          rate.Rate,
		RateUnit:      rate.RateUnit,
		IsByReport:    rate.IsByReport,
		Source:        model.RateSourceFeeSchedule,
		EffectiveDate: rate.EffectiveDate,
	}, nil
}

// pickRate prefers the region-specific row over the schedule-wide default.
func pickRate(rates []*model.FeeScheduleRate, region *model.Region) *model.FeeScheduleRate {
	var fallback *model.FeeScheduleRate
	for _, r := range rates {
		if region != nil && r.RegionID != nil && *r.RegionID == region.ID {
			return r
		}
		if r.RegionID == nil && fallback == nil {
			fallback = r
		}
	}
	return fallback
}

// resolveMedicare derives the rate from RVU, GPCI and the yearly conversion
// factor: (work*work_gpci + pe*pe_gpci + mp*mp_gpci) * cf, rounded to cents.
// All three inputs must exist for the same year.
func (s *Service) resolveMedicare(ctx context.Context, req ResolveRequest) (*model.RateResult, error) {
	year := req.AsOf.Year()

	locality, err := s.localityForZip(ctx, req.Zip)
	if err != nil {
		s.countMiss("missing_reference_data")
		return nil, err
	}

	rvu, err := s.medicare.GetRVU(ctx, req.ProcedureCode, year, req.Modifier)
	if err != nil {
		s.countMiss("missing_reference_data")
		return nil, err
	}

	gpci, err := s.gpciFor(ctx, locality.LocalityCode, year)
	if err != nil {
		s.countMiss("missing_reference_data")
		return nil, err
	}

	cf, err := s.conversionFactorFor(ctx, year)
	if err != nil {
		s.countMiss("missing_reference_data")
		return nil, err
	}

	weighted := rvu.WorkRVU.Mul(gpci.WorkGPCI).
		Add(rvu.PracticeExpenseRVU.Mul(gpci.PEGPCI)).
		Add(rvu.MalpracticeRVU.Mul(gpci.MPGPCI))
	rate := weighted.Mul(cf).Round(2)

	return &model.RateResult{
		StateCode:     req.StateCode,
		ScheduleType:  req.ScheduleType,
		ProcedureCode: req.ProcedureCode,
		Modifier:      req.Modifier,
		Rate:          rate,
		RateUnit:      "1",
		Source:        model.RateSourceMedicare,
		EffectiveDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (s *Service) localityForZip(ctx context.Context, zip string) (*model.MedicareLocality, error) {
	if zip == "" {
		return nil, apperrors.MissingReferenceData("locality", 0)
	}

	cacheKey := "loc:" + zip
	if v, ok := s.refCache.Get(cacheKey); ok {
		return v.(*model.MedicareLocality), nil
	}

	loc, err := s.medicare.GetLocalityForZip(ctx, zip)
	if err != nil {
		return nil, err
	}
	s.refCache.SetDefault(cacheKey, loc)
	return loc, nil
}

func (s *Service) gpciFor(ctx context.Context, localityCode string, year int) (*model.GPCI, error) {
	cacheKey := fmt.Sprintf("gpci:%s:%d", localityCode, year)
	if v, ok := s.refCache.Get(cacheKey); ok {
		return v.(*model.GPCI), nil
	}

	gpci, err := s.medicare.GetGPCI(ctx, localityCode, year)
	if err != nil {
		return nil, err
	}
	s.refCache.SetDefault(cacheKey, gpci)
	return gpci, nil
}

func (s *Service) conversionFactorFor(ctx context.Context, year int) (decimal.Decimal, error) {
	cacheKey := fmt.Sprintf("cf:%d", year)
	if v, ok := s.refCache.Get(cacheKey); ok {
		return v.(decimal.Decimal), nil
	}

	cf, err := s.medicare.GetConversionFactor(ctx, year)
	if err != nil {
		return decimal.Zero, err
	}
	s.refCache.SetDefault(cacheKey, cf)
	return cf, nil
}

func (s *Service) countMiss(reason string) {
	if s.metrics != nil {
		s.metrics.ResolverFailures.WithLabelValues(reason).Inc()
	}
}

func isMedicareSchedule(scheduleType string) bool {
	return strings.HasPrefix(scheduleType, model.ScheduleTypeMedicare)
}
