package admin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"
	"github.com/claritydx/feesched-api/pkg/logger"

	"github.com/claritydx/feesched-api/internal/repository"
)

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

type AdminServicer interface {
	PurgeStates(ctx context.Context, codes []string) (map[string]int64, error)
}

// Service covers the destructive admin operations. Purges cascade through
// schedules, rates, regions and ZIP mappings in a single transaction; the
// query log is never touched.
type Service struct {
	jurisdiction repository.JurisdictionRepository
	logger       *logger.Logger
}

func NewService(jurisdiction repository.JurisdictionRepository, log *logger.Logger) *Service {
	return &Service{jurisdiction: jurisdiction, logger: log}
}

func (s *Service) PurgeStates(ctx context.Context, codes []string) (map[string]int64, error) {
	if len(codes) == 0 {
		return nil, apperrors.NewBadRequest("no state codes given", nil)
	}

	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if !stateCodePattern.MatchString(code) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("invalid state code %q", code), nil)
		}
		normalized = append(normalized, code)
	}

	deleted, err := s.jurisdiction.PurgeStates(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.ZL.Info().
			Strs("states", normalized).
			Interface("deleted", deleted).
			Msg("state purge complete")
	}
	return deleted, nil
}

var _ AdminServicer = (*Service)(nil)
