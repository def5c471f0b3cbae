package model

import (
	"time"

	"github.com/google/uuid"
)

// RateQuery is an append-only query log row. Never updated or deleted.
type RateQuery struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	State         string     `json:"state" db:"state"`
	ProcedureCode string     `json:"procedure_code" db:"procedure_code"`
	QueryDate     time.Time  `json:"query_date" db:"query_date"`
	ResultCount   int        `json:"result_count" db:"result_count"`
	CacheHit      bool       `json:"cache_hit" db:"cache_hit"`
}
