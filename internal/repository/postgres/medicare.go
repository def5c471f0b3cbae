package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

type medicareRepository struct {
	BaseRepository
}

func NewMedicareRepository(base BaseRepository) repository.MedicareRepository {
	return &medicareRepository{base}
}

func (r *medicareRepository) GetLocalityForZip(ctx context.Context, zip string) (*model.MedicareLocality, error) {
	query := `SELECT * FROM medicare_locality_map WHERE zip_code = $1`

	var loc model.MedicareLocality
	if err := r.GetDB().GetContext(ctx, &loc, query, zip); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("medicare locality", err)
		}
		return nil, fmt.Errorf("failed to get locality for zip: %w", err)
	}
	return &loc, nil
}

func (r *medicareRepository) GetRVU(ctx context.Context, procedureCode string, year int, modifier *string) (*model.RVU, error) {
	query := `
		SELECT * FROM cms_rvu
		WHERE procedure_code = $1
		  AND year = $2
		  AND (modifier = $3 OR (modifier IS NULL AND $3 IS NULL))
	`

	var rvu model.RVU
	if err := r.GetDB().GetContext(ctx, &rvu, query, procedureCode, year, modifier); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.MissingReferenceData("RVU", year)
		}
		return nil, fmt.Errorf("failed to get RVU: %w", err)
	}
	return &rvu, nil
}

func (r *medicareRepository) GetGPCI(ctx context.Context, localityCode string, year int) (*model.GPCI, error) {
	query := `SELECT * FROM cms_gpci WHERE locality_code = $1 AND year = $2`

	var gpci model.GPCI
	if err := r.GetDB().GetContext(ctx, &gpci, query, localityCode, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.MissingReferenceData("GPCI", year)
		}
		return nil, fmt.Errorf("failed to get GPCI: %w", err)
	}
	return &gpci, nil
}

func (r *medicareRepository) GetConversionFactor(ctx context.Context, year int) (decimal.Decimal, error) {
	query := `SELECT conversion_factor FROM cms_conversion_factors WHERE year = $1`

	var cf decimal.Decimal
	if err := r.GetDB().GetContext(ctx, &cf, query, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, apperrors.MissingReferenceData("conversion factor", year)
		}
		return decimal.Zero, fmt.Errorf("failed to get conversion factor: %w", err)
	}
	return cf, nil
}

func (r *medicareRepository) UpsertRVU(ctx context.Context, rvu *model.RVU) error {
	query := `
		INSERT INTO cms_rvu (
			procedure_code, year, modifier,
			work_rvu, practice_expense_rvu, malpractice_rvu, total_rvu, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (procedure_code, year, modifier)
		DO UPDATE SET
			work_rvu = EXCLUDED.work_rvu,
			practice_expense_rvu = EXCLUDED.practice_expense_rvu,
			malpractice_rvu = EXCLUDED.malpractice_rvu,
			total_rvu = EXCLUDED.total_rvu,
			last_updated = NOW()
	`

	_, err := r.GetDB().ExecContext(ctx, query,
		rvu.ProcedureCode, rvu.Year, rvu.Modifier,
		rvu.WorkRVU, rvu.PracticeExpenseRVU, rvu.MalpracticeRVU, rvu.TotalRVU,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert RVU: %w", err)
	}
	return nil
}

func (r *medicareRepository) UpsertGPCI(ctx context.Context, gpci *model.GPCI) error {
	query := `
		INSERT INTO cms_gpci (
			locality_code, year, work_gpci, pe_gpci, mp_gpci, locality_name, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (locality_code, year)
		DO UPDATE SET
			work_gpci = EXCLUDED.work_gpci,
			pe_gpci = EXCLUDED.pe_gpci,
			mp_gpci = EXCLUDED.mp_gpci,
			locality_name = EXCLUDED.locality_name,
			last_updated = NOW()
	`

	_, err := r.GetDB().ExecContext(ctx, query,
		gpci.LocalityCode, gpci.Year, gpci.WorkGPCI, gpci.PEGPCI, gpci.MPGPCI, gpci.LocalityName,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert GPCI: %w", err)
	}
	return nil
}

func (r *medicareRepository) UpsertConversionFactor(ctx context.Context, cf *model.ConversionFactor) error {
	query := `
		INSERT INTO cms_conversion_factors (year, conversion_factor, effective_date, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (year)
		DO UPDATE SET
			conversion_factor = EXCLUDED.conversion_factor,
			effective_date = EXCLUDED.effective_date,
			last_updated = NOW()
	`

	_, err := r.GetDB().ExecContext(ctx, query, cf.Year, cf.Factor, cf.EffectiveDate)
	if err != nil {
		return fmt.Errorf("failed to upsert conversion factor: %w", err)
	}
	return nil
}
