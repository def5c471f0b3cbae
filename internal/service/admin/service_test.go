package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
)

type fakeJurisdictionRepo struct {
	purged [][]string
}

func (f *fakeJurisdictionRepo) GetState(ctx context.Context, code string) (*model.State, error) {
	return nil, apperrors.NewNotFound("state", nil)
}

func (f *fakeJurisdictionRepo) FindOrCreateState(ctx context.Context, code, name string, effective time.Time) (*model.State, error) {
	return nil, nil
}

func (f *fakeJurisdictionRepo) FindOrCreateRegion(ctx context.Context, stateCode, regionType, regionCode, regionName string) (*model.Region, error) {
	return nil, nil
}

func (f *fakeJurisdictionRepo) GetRegionForZip(ctx context.Context, stateCode, zip string) (*model.Region, error) {
	return nil, apperrors.NewNotFound("region", nil)
}

func (f *fakeJurisdictionRepo) MapZipToRegion(ctx context.Context, zip string, regionID int64) error {
	return nil
}

func (f *fakeJurisdictionRepo) PurgeStates(ctx context.Context, codes []string) (map[string]int64, error) {
	f.purged = append(f.purged, codes)
	return map[string]int64{"fee_schedules": 2, "states": int64(len(codes))}, nil
}

func TestPurgeStatesNormalizesCodes(t *testing.T) {
	repo := &fakeJurisdictionRepo{}
	svc := NewService(repo, nil)

	deleted, err := svc.PurgeStates(context.Background(), []string{" ga ", "tx"})
	require.NoError(t, err)

	require.Len(t, repo.purged, 1)
	assert.Equal(t, []string{"GA", "TX"}, repo.purged[0])
	assert.Equal(t, int64(2), deleted["states"])
}

func TestPurgeStatesRejectsBadCodes(t *testing.T) {
	repo := &fakeJurisdictionRepo{}
	svc := NewService(repo, nil)

	for _, code := range []string{"G", "GAA", "G1", "GA; DROP TABLE states"} {
		_, err := svc.PurgeStates(context.Background(), []string{code})
		require.Error(t, err, "code %q must be rejected", code)
		assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	}
	assert.Empty(t, repo.purged, "nothing reaches the database")
}

func TestPurgeStatesRejectsEmptyList(t *testing.T) {
	svc := NewService(&fakeJurisdictionRepo{}, nil)

	_, err := svc.PurgeStates(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}
