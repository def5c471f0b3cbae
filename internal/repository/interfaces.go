package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/claritydx/feesched-api/internal/model"
)

// All repository interfaces in one file
type (
	// JurisdictionRepository handles states, regions and ZIP mappings
	JurisdictionRepository interface {
		GetState(ctx context.Context, code string) (*model.State, error)
		FindOrCreateState(ctx context.Context, code, name string, effective time.Time) (*model.State, error)
		FindOrCreateRegion(ctx context.Context, stateCode, regionType, regionCode, regionName string) (*model.Region, error)
		GetRegionForZip(ctx context.Context, stateCode, zip string) (*model.Region, error)
		MapZipToRegion(ctx context.Context, zip string, regionID int64) error
		PurgeStates(ctx context.Context, codes []string) (map[string]int64, error)
	}

	// ProcedureRepository handles the procedure code master
	ProcedureRepository interface {
		Get(ctx context.Context, code string) (*model.ProcedureCode, error)
		FindOrCreate(ctx context.Context, code, description, codeType string) (*model.ProcedureCode, error)
	}

	// FeeScheduleRepository handles fee schedules and their rate rows
	FeeScheduleRepository interface {
		GetActiveSchedule(ctx context.Context, stateCode, scheduleType string, asOf time.Time) (*model.FeeSchedule, error)
		FindOrCreateSchedule(ctx context.Context, stateCode, scheduleType string, effective time.Time) (*model.FeeSchedule, error)
		GetRates(ctx context.Context, feeScheduleID int64, procedureCode string, modifier *string) ([]*model.FeeScheduleRate, error)
		UpsertRate(ctx context.Context, rate *model.FeeScheduleRate) error
	}

	// MedicareRepository handles RVU/GPCI/conversion-factor reference data
	MedicareRepository interface {
		GetLocalityForZip(ctx context.Context, zip string) (*model.MedicareLocality, error)
		GetRVU(ctx context.Context, procedureCode string, year int, modifier *string) (*model.RVU, error)
		GetGPCI(ctx context.Context, localityCode string, year int) (*model.GPCI, error)
		GetConversionFactor(ctx context.Context, year int) (decimal.Decimal, error)
		UpsertRVU(ctx context.Context, rvu *model.RVU) error
		UpsertGPCI(ctx context.Context, gpci *model.GPCI) error
		UpsertConversionFactor(ctx context.Context, cf *model.ConversionFactor) error
	}

	// CacheRepository handles the materialized commercial-rate cache
	CacheRepository interface {
		GetRates(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, error)
		ReplaceRates(ctx context.Context, state, procedureCode string, rows []*model.CachedRate) error
		IncrementAccess(ctx context.Context, ids []int64, accessedAt time.Time) error
		PopularRates(ctx context.Context, limit int) ([]*model.PopularRate, error)
	}

	// QueryLogRepository appends and aggregates the query log
	QueryLogRepository interface {
		Create(ctx context.Context, entry *model.RateQuery) error
		Stats(ctx context.Context) (*model.CacheStats, error)
	}

	// UserRepository handles lookup users
	UserRepository interface {
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		Create(ctx context.Context, user *model.User) error
		UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	}
)
