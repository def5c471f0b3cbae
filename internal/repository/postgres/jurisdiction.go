package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

type jurisdictionRepository struct {
	BaseRepository
}

func NewJurisdictionRepository(base BaseRepository) repository.JurisdictionRepository {
	return &jurisdictionRepository{base}
}

func (r *jurisdictionRepository) GetState(ctx context.Context, code string) (*model.State, error) {
	query := `SELECT * FROM states WHERE state_code = $1`

	var state model.State
	if err := r.GetDB().GetContext(ctx, &state, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("state", err)
		}
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return &state, nil
}

// FindOrCreateState inserts the state if absent and returns the stored row.
// The insert and fallback select run as one statement, so two concurrent
// importers cannot race each other into a duplicate.
func (r *jurisdictionRepository) FindOrCreateState(ctx context.Context, code, name string, effective time.Time) (*model.State, error) {
	query := `
		WITH ins AS (
			INSERT INTO states (state_code, state_name, effective_date)
			VALUES ($1, $2, $3)
			ON CONFLICT (state_code) DO NOTHING
			RETURNING *
		)
		SELECT * FROM ins
		UNION ALL
		SELECT * FROM states WHERE state_code = $1
		LIMIT 1
	`

	var state model.State
	if err := r.GetDB().GetContext(ctx, &state, query, code, name, effective); err != nil {
		return nil, fmt.Errorf("failed to find or create state: %w", err)
	}
	return &state, nil
}

func (r *jurisdictionRepository) FindOrCreateRegion(ctx context.Context, stateCode, regionType, regionCode, regionName string) (*model.Region, error) {
	query := `
		WITH ins AS (
			INSERT INTO regions (state_code, region_type, region_code, region_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (state_code, region_type, region_code) DO NOTHING
			RETURNING *
		)
		SELECT * FROM ins
		UNION ALL
		SELECT * FROM regions
		WHERE state_code = $1 AND region_type = $2 AND region_code = $3
		LIMIT 1
	`

	var region model.Region
	if err := r.GetDB().GetContext(ctx, &region, query, stateCode, regionType, regionCode, regionName); err != nil {
		return nil, fmt.Errorf("failed to find or create region: %w", err)
	}
	return &region, nil
}

func (r *jurisdictionRepository) GetRegionForZip(ctx context.Context, stateCode, zip string) (*model.Region, error) {
	query := `
		SELECT r.region_id, r.state_code, r.region_type, r.region_code, r.region_name
		FROM regions r
		JOIN zip_region_map zrm ON zrm.region_id = r.region_id
		WHERE zrm.zip_code = $1 AND r.state_code = $2
	`

	var region model.Region
	if err := r.GetDB().GetContext(ctx, &region, query, zip, stateCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("region", err)
		}
		return nil, fmt.Errorf("failed to get region for zip: %w", err)
	}
	return &region, nil
}

func (r *jurisdictionRepository) MapZipToRegion(ctx context.Context, zip string, regionID int64) error {
	query := `
		INSERT INTO zip_region_map (zip_code, region_id)
		VALUES ($1, $2)
		ON CONFLICT (zip_code, region_id) DO NOTHING
	`
	if _, err := r.GetDB().ExecContext(ctx, query, zip, regionID); err != nil {
		return fmt.Errorf("failed to map zip to region: %w", err)
	}
	return nil
}

// PurgeStates removes everything owned by the given states inside one
// transaction: rates, schedules, ZIP mappings, regions, ZIP codes and finally
// the states themselves. The query log is append-only and is left alone.
// Identifier lists are bound as array parameters, never interpolated.
func (r *jurisdictionRepository) PurgeStates(ctx context.Context, codes []string) (map[string]int64, error) {
	counts := make(map[string]int64)

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct {
			table string
			query string
		}{
			{"fee_schedule_rates", `
				DELETE FROM fee_schedule_rates
				WHERE fee_schedule_id IN (SELECT id FROM fee_schedules WHERE state_code = ANY($1))
				   OR region_id IN (SELECT region_id FROM regions WHERE state_code = ANY($1))`},
			{"fee_schedules", `DELETE FROM fee_schedules WHERE state_code = ANY($1)`},
			{"zip_region_map", `
				DELETE FROM zip_region_map
				WHERE region_id IN (SELECT region_id FROM regions WHERE state_code = ANY($1))`},
			{"regions", `DELETE FROM regions WHERE state_code = ANY($1)`},
			{"zip_codes", `DELETE FROM zip_codes WHERE state_code = ANY($1)`},
			{"states", `DELETE FROM states WHERE state_code = ANY($1)`},
		}

		for _, step := range steps {
			res, err := tx.ExecContext(ctx, step.query, pq.Array(codes))
			if err != nil {
				return fmt.Errorf("failed to purge %s: %w", step.table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to count purged %s rows: %w", step.table, err)
			}
			counts[step.table] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
