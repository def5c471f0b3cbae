package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CachedRate is an externally observed commercial rate, bulk-replaced per
// (state, procedure_code) on refresh. AccessCount and LastAccessed mutate on
// every successful read; nothing else does outside a refresh.
type CachedRate struct {
	ID            int64           `json:"id" db:"id"`
	State         string          `json:"state" db:"state"`
	ProcedureCode string          `json:"procedure_code" db:"procedure_code"`
	Provider      *string         `json:"provider,omitempty" db:"provider"`
	Rate          decimal.Decimal `json:"rate" db:"rate"`
	EffectiveDate time.Time       `json:"effective_date" db:"effective_date"`
	LastUpdated   time.Time       `json:"last_updated" db:"last_updated"`
	AccessCount   int64           `json:"access_count" db:"access_count"`
	LastAccessed  time.Time       `json:"last_accessed" db:"last_accessed"`
}

// PopularRate is one row of the popularity ranking.
type PopularRate struct {
	State         string    `json:"state" db:"state"`
	ProcedureCode string    `json:"procedure_code" db:"procedure_code"`
	Accesses      int64     `json:"accesses" db:"accesses"`
	LastAccessed  time.Time `json:"-" db:"last_accessed"`
}

// CacheStats is the accumulated hit-rate counter pair. Both counters are
// monotonically non-decreasing.
type CacheStats struct {
	TotalQueries int64   `json:"total_queries" db:"total_queries"`
	CacheHits    int64   `json:"cache_hits" db:"cache_hits"`
	HitRate      float64 `json:"hit_rate"`
}

// CommercialRate is a raw commercial rate observation tied to a ZIP, populated
// by external loaders.
type CommercialRate struct {
	ID            int64           `json:"id" db:"id"`
	ProcedureCode string          `json:"procedure_code" db:"procedure_code"`
	Modifier      *string         `json:"modifier,omitempty" db:"modifier"`
	ZipCode       *string         `json:"zip_code,omitempty" db:"zip_code"`
	Provider      *string         `json:"provider,omitempty" db:"provider"`
	Payer         *string         `json:"payer,omitempty" db:"payer"`
	Rate          decimal.Decimal `json:"rate" db:"rate"`
	EffectiveDate *time.Time      `json:"effective_date,omitempty" db:"effective_date"`
	DataSource    *string         `json:"data_source,omitempty" db:"data_source"`
	LastUpdated   time.Time       `json:"last_updated" db:"last_updated"`
}
