package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

type procedureRepository struct {
	BaseRepository
}

func NewProcedureRepository(base BaseRepository) repository.ProcedureRepository {
	return &procedureRepository{base}
}

func (r *procedureRepository) Get(ctx context.Context, code string) (*model.ProcedureCode, error) {
	query := `SELECT * FROM procedure_codes WHERE procedure_code = $1`

	var proc model.ProcedureCode
	if err := r.GetDB().GetContext(ctx, &proc, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("procedure code", err)
		}
		return nil, fmt.Errorf("failed to get procedure code: %w", err)
	}
	return &proc, nil
}

func (r *procedureRepository) FindOrCreate(ctx context.Context, code, description, codeType string) (*model.ProcedureCode, error) {
	query := `
		WITH ins AS (
			INSERT INTO procedure_codes (procedure_code, description, code_type)
			VALUES ($1, $2, $3)
			ON CONFLICT (procedure_code) DO NOTHING
			RETURNING *
		)
		SELECT * FROM ins
		UNION ALL
		SELECT * FROM procedure_codes WHERE procedure_code = $1
		LIMIT 1
	`

	var proc model.ProcedureCode
	if err := r.GetDB().GetContext(ctx, &proc, query, code, description, codeType); err != nil {
		return nil, fmt.Errorf("failed to find or create procedure code: %w", err)
	}
	return &proc, nil
}
