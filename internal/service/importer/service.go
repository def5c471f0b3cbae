package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/claritydx/feesched-api/pkg/logger"

	"github.com/claritydx/feesched-api/internal/model"
	"github.com/claritydx/feesched-api/internal/repository"
)

// Service imports fee schedule CSV drops. Every referenced state, schedule,
// procedure and region is created on first sight; rate rows upsert by their
// natural key so re-running a file never duplicates.
type Service struct {
	jurisdiction repository.JurisdictionRepository
	procedures   repository.ProcedureRepository
	feeSchedules repository.FeeScheduleRepository
	logger       *logger.Logger
	now          func() time.Time
}

func NewService(
	jurisdiction repository.JurisdictionRepository,
	procedures repository.ProcedureRepository,
	feeSchedules repository.FeeScheduleRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		jurisdiction: jurisdiction,
		procedures:   procedures,
		feeSchedules: feeSchedules,
		logger:       log,
		now:          time.Now,
	}
}

// ParseFilename extracts the state code and schedule type from a drop file
// name: "<schedule_type>_XX.csv", with an optional "import_" prefix. XX is a
// two-letter state code.
func ParseFilename(name string) (stateCode, scheduleType string, err error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("filename %q does not end with a _XX state code", name)
	}

	last := strings.ToUpper(parts[len(parts)-1])
	if len(last) != 2 || !isAlpha(last) {
		return "", "", fmt.Errorf("filename %q does not end with a _XX state code", name)
	}

	scheduleParts := parts[:len(parts)-1]
	if strings.EqualFold(scheduleParts[0], "import") {
		scheduleParts = scheduleParts[1:]
	}
	if len(scheduleParts) == 0 {
		return "", "", fmt.Errorf("filename %q carries no schedule type", name)
	}

	return last, strings.ToLower(strings.Join(scheduleParts, "_")), nil
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ImportFile loads one CSV drop and returns the number of rate rows imported.
func (s *Service) ImportFile(ctx context.Context, path string) (int, error) {
	stateCode, scheduleType, err := ParseFilename(path)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open drop file: %w", err)
	}
	defer f.Close()

	return s.importCSV(ctx, f, stateCode, scheduleType)
}

// ImportReader imports CSV content for an already-identified state and
// schedule type. Used by the admin import endpoint and by tests.
func (s *Service) ImportReader(ctx context.Context, r io.Reader, stateCode, scheduleType string) (int, error) {
	return s.importCSV(ctx, r, stateCode, scheduleType)
}

func (s *Service) importCSV(ctx context.Context, r io.Reader, stateCode, scheduleType string) (int, error) {
	if _, err := s.jurisdiction.FindOrCreateState(ctx, stateCode, stateCode, s.now()); err != nil {
		return 0, err
	}

	schedule, err := s.feeSchedules.FindOrCreateSchedule(ctx, stateCode, scheduleType, s.now())
	if err != nil {
		return 0, err
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["proc_cd"]; !ok {
		return 0, fmt.Errorf("CSV header missing proc_cd column")
	}

	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if err := s.importRow(ctx, schedule, stateCode, cols, record); err != nil {
			return imported, err
		}
		imported++
	}

	if s.logger != nil {
		s.logger.ZL.Info().
			Str("state", stateCode).
			Str("schedule_type", scheduleType).
			Int("rows", imported).
			Msg("fee schedule import complete")
	}
	return imported, nil
}

func (s *Service) importRow(ctx context.Context, schedule *model.FeeSchedule, stateCode string, cols map[string]int, record []string) error {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	procCode := field("proc_cd")
	if procCode == "" {
		return fmt.Errorf("row missing procedure code")
	}

	if _, err := s.procedures.FindOrCreate(ctx, procCode, field("description"), "CPT"); err != nil {
		return err
	}

	var regionID *int64
	regionType := field("region_type")
	regionValue := field("region_value")
	if regionType != "" && regionType != "state" && regionValue != "" {
		regionName := fmt.Sprintf("%s %s %s", stateCode, regionType, regionValue)
		region, err := s.jurisdiction.FindOrCreateRegion(ctx, stateCode, regionType, regionValue, regionName)
		if err != nil {
			return err
		}
		regionID = &region.ID
	}

	var modifier *string
	if m := field("modifier"); m != "" {
		modifier = &m
	}

	rate := decimal.Zero
	if raw := field("rate"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid rate %q for procedure %s: %w", raw, procCode, err)
		}
		rate = parsed
	}

	rateUnit := field("rate_unit")
	if rateUnit == "" {
		rateUnit = "1"
	}

	return s.feeSchedules.UpsertRate(ctx, &model.FeeScheduleRate{
		FeeScheduleID: schedule.ID,
		ProcedureCode: procCode,
		Modifier:      modifier,
		RegionID:      regionID,
		Rate:          rate,
		RateUnit:      rateUnit,
		IsByReport:    isTruthy(field("is_by_report")),
		EffectiveDate: s.now(),
	})
}

func isTruthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "t", "yes", "y":
		return true
	}
	return false
}

// ProcessPending imports every CSV in dropDir, moving each file to
// processedDir or errorDir with a timestamp prefix so re-drops never collide.
func (s *Service) ProcessPending(ctx context.Context, dropDir, processedDir, errorDir string) error {
	if processedDir == "" {
		processedDir = filepath.Join(dropDir, "processed")
	}
	if errorDir == "" {
		errorDir = filepath.Join(dropDir, "error")
	}
	for _, dir := range []string{dropDir, processedDir, errorDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dropDir, "*.csv"))
	if err != nil {
		return fmt.Errorf("failed to list drop folder: %w", err)
	}

	for _, path := range files {
		dest := processedDir
		if _, err := s.ImportFile(ctx, path); err != nil {
			dest = errorDir
			if s.logger != nil {
				s.logger.Error(err, "failed to import drop file "+filepath.Base(path))
			}
		}

		stamped := fmt.Sprintf("%s_%s", s.now().Format("20060102150405"), filepath.Base(path))
		if err := os.Rename(path, filepath.Join(dest, stamped)); err != nil {
			return fmt.Errorf("failed to move processed file: %w", err)
		}
	}
	return nil
}
