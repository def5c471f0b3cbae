package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RVU holds the Medicare relative value unit components for a procedure in a
// given year. (procedure_code, year, modifier) is the natural key.
type RVU struct {
	ProcedureCode      string          `json:"procedure_code" db:"procedure_code"`
	Year               int             `json:"year" db:"year"`
	Modifier           *string         `json:"modifier,omitempty" db:"modifier"`
	WorkRVU            decimal.Decimal `json:"work_rvu" db:"work_rvu"`
	PracticeExpenseRVU decimal.Decimal `json:"practice_expense_rvu" db:"practice_expense_rvu"`
	MalpracticeRVU     decimal.Decimal `json:"malpractice_rvu" db:"malpractice_rvu"`
	TotalRVU           decimal.Decimal `json:"total_rvu" db:"total_rvu"`
	LastUpdated        time.Time       `json:"last_updated" db:"last_updated"`
}

// GPCI holds the geographic cost indices for a Medicare locality and year.
type GPCI struct {
	LocalityCode string          `json:"locality_code" db:"locality_code"`
	Year         int             `json:"year" db:"year"`
	WorkGPCI     decimal.Decimal `json:"work_gpci" db:"work_gpci"`
	PEGPCI       decimal.Decimal `json:"pe_gpci" db:"pe_gpci"`
	MPGPCI       decimal.Decimal `json:"mp_gpci" db:"mp_gpci"`
	LocalityName *string         `json:"locality_name,omitempty" db:"locality_name"`
	LastUpdated  time.Time       `json:"last_updated" db:"last_updated"`
}

// ConversionFactor converts total weighted RVU into dollars for a year.
type ConversionFactor struct {
	Year          int             `json:"year" db:"year"`
	Factor        decimal.Decimal `json:"conversion_factor" db:"conversion_factor"`
	EffectiveDate time.Time       `json:"effective_date" db:"effective_date"`
	LastUpdated   time.Time       `json:"last_updated" db:"last_updated"`
}

// MedicareLocality maps a ZIP code to its Medicare payment locality.
type MedicareLocality struct {
	ZipCode      string  `json:"zip_code" db:"zip_code"`
	LocalityCode string  `json:"locality_code" db:"locality_code"`
	LocalityName *string `json:"locality_name,omitempty" db:"locality_name"`
}
