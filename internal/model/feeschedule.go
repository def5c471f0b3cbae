package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Schedule types with derived-rate semantics.
const (
	ScheduleTypeGeneralMedicine = "general_medicine"
	ScheduleTypeMedicare        = "medicare"
)

// FeeSchedule is a dated, jurisdiction-scoped rate table. At most one schedule
// per (state, schedule type) may be effective at a given instant.
type FeeSchedule struct {
	ID               int64            `json:"id" db:"id"`
	StateCode        string           `json:"state_code" db:"state_code"`
	ScheduleType     string           `json:"schedule_type" db:"schedule_type"`
	EffectiveDate    time.Time        `json:"effective_date" db:"effective_date"`
	ExpirationDate   *time.Time       `json:"expiration_date,omitempty" db:"expiration_date"`
	ConversionFactor *decimal.Decimal `json:"conversion_factor,omitempty" db:"conversion_factor"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
}

// FeeScheduleRate is one rate row. The tuple (fee_schedule_id, procedure_code,
// modifier, region_id) is unique; re-import updates in place. A nil RegionID is
// the schedule-wide default, a nil Modifier is distinct from any modifier.
type FeeScheduleRate struct {
	ID            int64           `json:"id" db:"id"`
	FeeScheduleID int64           `json:"fee_schedule_id" db:"fee_schedule_id"`
	ProcedureCode string          `json:"procedure_code" db:"procedure_code"`
	Modifier      *string         `json:"modifier,omitempty" db:"modifier"`
	RegionID      *int64          `json:"region_id,omitempty" db:"region_id"`
	Rate          decimal.Decimal `json:"rate" db:"rate"`
	RateUnit      string          `json:"rate_unit" db:"rate_unit"`
	IsByReport    bool            `json:"is_by_report" db:"is_by_report"`
	EffectiveDate time.Time       `json:"effective_date" db:"effective_date"`
	LastUpdated   time.Time       `json:"last_updated" db:"last_updated"`
}

// RateResult is the resolver output. When IsByReport is set the amount is
// indicative, not contractual.
type RateResult struct {
	StateCode     string          `json:"state_code"`
	ScheduleType  string          `json:"schedule_type"`
	ProcedureCode string          `json:"procedure_code"`
	Modifier      *string         `json:"modifier,omitempty"`
	RegionID      *int64          `json:"region_id,omitempty"`
	Rate          decimal.Decimal `json:"rate"`
	RateUnit      string          `json:"rate_unit"`
	IsByReport    bool            `json:"is_by_report"`
	Source        string          `json:"source"`
	EffectiveDate time.Time       `json:"effective_date"`
}

// Rate result sources.
const (
	RateSourceFeeSchedule = "fee_schedule"
	RateSourceMedicare    = "medicare_derived"
)
