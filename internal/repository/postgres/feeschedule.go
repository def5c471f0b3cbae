package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

type feeScheduleRepository struct {
	BaseRepository
}

func NewFeeScheduleRepository(base BaseRepository) repository.FeeScheduleRepository {
	return &feeScheduleRepository{base}
}

// GetActiveSchedule returns the schedule whose effective window contains asOf.
// A null expiration date means open-ended.
func (r *feeScheduleRepository) GetActiveSchedule(ctx context.Context, stateCode, scheduleType string, asOf time.Time) (*model.FeeSchedule, error) {
	query := `
		SELECT * FROM fee_schedules
		WHERE state_code = $1
		  AND schedule_type = $2
		  AND effective_date <= $3
		  AND (expiration_date IS NULL OR expiration_date >= $3)
		ORDER BY effective_date DESC
		LIMIT 1
	`

	var schedule model.FeeSchedule
	if err := r.GetDB().GetContext(ctx, &schedule, query, stateCode, scheduleType, asOf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NoActiveSchedule(stateCode, scheduleType)
		}
		return nil, fmt.Errorf("failed to get active schedule: %w", err)
	}
	return &schedule, nil
}

// FindOrCreateSchedule returns the non-expired schedule for the key, creating
// one when none covers the current date. Single statement, race-free across
// concurrent importers.
func (r *feeScheduleRepository) FindOrCreateSchedule(ctx context.Context, stateCode, scheduleType string, effective time.Time) (*model.FeeSchedule, error) {
	query := `
		WITH existing AS (
			SELECT * FROM fee_schedules
			WHERE state_code = $1
			  AND schedule_type = $2
			  AND (expiration_date IS NULL OR expiration_date >= $3)
		), ins AS (
			INSERT INTO fee_schedules (state_code, schedule_type, effective_date)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (SELECT 1 FROM existing)
			ON CONFLICT (state_code, schedule_type) WHERE expiration_date IS NULL DO NOTHING
			RETURNING *
		)
		SELECT * FROM existing
		UNION ALL
		SELECT * FROM ins
		LIMIT 1
	`

	var schedule model.FeeSchedule
	if err := r.GetDB().GetContext(ctx, &schedule, query, stateCode, scheduleType, effective); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the insert race; the winner's row is now visible.
			return r.GetActiveSchedule(ctx, stateCode, scheduleType, effective)
		}
		return nil, fmt.Errorf("failed to find or create fee schedule: %w", err)
	}
	return &schedule, nil
}

func (r *feeScheduleRepository) GetRates(ctx context.Context, feeScheduleID int64, procedureCode string, modifier *string) ([]*model.FeeScheduleRate, error) {
	query := `
		SELECT * FROM fee_schedule_rates
		WHERE fee_schedule_id = $1
		  AND procedure_code = $2
		  AND (modifier = $3 OR (modifier IS NULL AND $3 IS NULL))
	`

	var rates []*model.FeeScheduleRate
	if err := r.GetDB().SelectContext(ctx, &rates, query, feeScheduleID, procedureCode, modifier); err != nil {
		return nil, fmt.Errorf("failed to get fee schedule rates: %w", err)
	}
	return rates, nil
}

// UpsertRate inserts or updates the row identified by the natural key
// (fee_schedule_id, procedure_code, modifier, region_id). The unique index
// treats nulls as equal, so re-imports update in place instead of duplicating.
func (r *feeScheduleRepository) UpsertRate(ctx context.Context, rate *model.FeeScheduleRate) error {
	query := `
		INSERT INTO fee_schedule_rates (
			fee_schedule_id, procedure_code, modifier, region_id,
			rate, rate_unit, is_by_report, effective_date, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (fee_schedule_id, procedure_code, modifier, region_id)
		DO UPDATE SET
			rate = EXCLUDED.rate,
			rate_unit = EXCLUDED.rate_unit,
			is_by_report = EXCLUDED.is_by_report,
			last_updated = NOW()
	`

	_, err := r.GetDB().ExecContext(ctx, query,
		rate.FeeScheduleID,
		rate.ProcedureCode,
		rate.Modifier,
		rate.RegionID,
		rate.Rate,
		rate.RateUnit,
		rate.IsByReport,
		rate.EffectiveDate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fee schedule rate: %w", err)
	}
	return nil
}
