package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

type cacheRepository struct {
	BaseRepository
}

func NewCacheRepository(base BaseRepository) repository.CacheRepository {
	return &cacheRepository{base}
}

func (r *cacheRepository) GetRates(ctx context.Context, state, procedureCode string) ([]*model.CachedRate, error) {
	query := `
		SELECT * FROM cached_rates
		WHERE state = $1 AND procedure_code = $2
		ORDER BY provider, effective_date DESC
	`

	var rows []*model.CachedRate
	if err := r.GetDB().SelectContext(ctx, &rows, query, state, procedureCode); err != nil {
		return nil, fmt.Errorf("failed to get cached rates: %w", err)
	}
	return rows, nil
}

// ReplaceRates swaps all rows for the key in one transaction. Readers see
// either the previous generation or the new one, never a mix.
func (r *cacheRepository) ReplaceRates(ctx context.Context, state, procedureCode string, rows []*model.CachedRate) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		deleteQuery := `DELETE FROM cached_rates WHERE state = $1 AND procedure_code = $2`
		if _, err := tx.ExecContext(ctx, deleteQuery, state, procedureCode); err != nil {
			return fmt.Errorf("failed to delete stale cache rows: %w", err)
		}

		insertQuery := `
			INSERT INTO cached_rates (
				state, procedure_code, provider, rate, effective_date,
				last_updated, access_count, last_accessed
			) VALUES ($1, $2, $3, $4, $5, $6, 0, $6)
		`
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, insertQuery,
				state, procedureCode, row.Provider, row.Rate, row.EffectiveDate, row.LastUpdated,
			); err != nil {
				return fmt.Errorf("failed to insert cache row: %w", err)
			}
		}
		return nil
	})
}

// IncrementAccess bumps access counters for the served rows. The increment
// happens at the storage layer, so concurrent reads never lose updates.
func (r *cacheRepository) IncrementAccess(ctx context.Context, ids []int64, accessedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE cached_rates
		SET access_count = access_count + 1, last_accessed = $2
		WHERE id = ANY($1)
	`
	if _, err := r.GetDB().ExecContext(ctx, query, pq.Array(ids), accessedAt); err != nil {
		return fmt.Errorf("failed to increment access counts: %w", err)
	}
	return nil
}

func (r *cacheRepository) PopularRates(ctx context.Context, limit int) ([]*model.PopularRate, error) {
	query := `
		SELECT state, procedure_code,
		       SUM(access_count) AS accesses,
		       MAX(last_accessed) AS last_accessed
		FROM cached_rates
		GROUP BY state, procedure_code
		ORDER BY accesses DESC, last_accessed DESC
		LIMIT $1
	`

	var rows []*model.PopularRate
	if err := r.GetDB().SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get popular rates: %w", err)
	}
	return rows, nil
}
