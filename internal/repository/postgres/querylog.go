package postgres

import (
	"context"
	"fmt"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

type queryLogRepository struct {
	BaseRepository
}

func NewQueryLogRepository(base BaseRepository) repository.QueryLogRepository {
	return &queryLogRepository{base}
}

func (r *queryLogRepository) Create(ctx context.Context, entry *model.RateQuery) error {
	query := `
		INSERT INTO rate_queries (id, user_id, state, procedure_code, query_date, result_count, cache_hit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.GetDB().ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.State, entry.ProcedureCode,
		entry.QueryDate, entry.ResultCount, entry.CacheHit,
	)
	if err != nil {
		return fmt.Errorf("failed to create query log entry: %w", err)
	}
	return nil
}

func (r *queryLogRepository) Stats(ctx context.Context) (*model.CacheStats, error) {
	query := `
		SELECT COUNT(*) AS total_queries,
		       COUNT(*) FILTER (WHERE cache_hit) AS cache_hits
		FROM rate_queries
	`

	var stats model.CacheStats
	if err := r.GetDB().GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get query stats: %w", err)
	}
	return &stats, nil
}
