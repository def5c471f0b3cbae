package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/model"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name         string
		stateCode    string
		scheduleType string
		wantErr      bool
	}{
		{"general_medicine_GA.csv", "GA", "general_medicine", false},
		{"import_general_medicine_ga.csv", "GA", "general_medicine", false},
		{"anesthesia_TX.csv", "TX", "anesthesia", false},
		{"physical_therapy_ca.csv", "CA", "physical_therapy", false},
		{"/drop/dir/general_medicine_NY.csv", "NY", "general_medicine", false},
		{"rates.csv", "", "", true},
		{"general_medicine_GAX.csv", "", "", true},
		{"general_medicine_12.csv", "", "", true},
		{"import_GA.csv", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, scheduleType, err := ParseFilename(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.stateCode, state)
			assert.Equal(t, tt.scheduleType, scheduleType)
		})
	}
}

type fakeJurisdictionRepo struct {
	states  []string
	regions []string
}

func (f *fakeJurisdictionRepo) GetState(ctx context.Context, code string) (*model.State, error) {
	return nil, apperrors.NewNotFound("state", nil)
}

func (f *fakeJurisdictionRepo) FindOrCreateState(ctx context.Context, code, name string, effective time.Time) (*model.State, error) {
	f.states = append(f.states, code)
	return &model.State{Code: code, Name: name}, nil
}

func (f *fakeJurisdictionRepo) FindOrCreateRegion(ctx context.Context, stateCode, regionType, regionCode, regionName string) (*model.Region, error) {
	f.regions = append(f.regions, stateCode+"/"+regionType+"/"+regionCode)
	return &model.Region{ID: int64(len(f.regions)), StateCode: stateCode, RegionType: regionType, RegionCode: regionCode}, nil
}

func (f *fakeJurisdictionRepo) GetRegionForZip(ctx context.Context, stateCode, zip string) (*model.Region, error) {
	return nil, apperrors.NewNotFound("region", nil)
}

func (f *fakeJurisdictionRepo) MapZipToRegion(ctx context.Context, zip string, regionID int64) error {
	return nil
}

func (f *fakeJurisdictionRepo) PurgeStates(ctx context.Context, codes []string) (map[string]int64, error) {
	return nil, nil
}

type fakeProcedureRepo struct {
	codes []string
}

func (f *fakeProcedureRepo) Get(ctx context.Context, code string) (*model.ProcedureCode, error) {
	return nil, apperrors.NewNotFound("procedure code", nil)
}

func (f *fakeProcedureRepo) FindOrCreate(ctx context.Context, code, description, codeType string) (*model.ProcedureCode, error) {
	f.codes = append(f.codes, code)
	return &model.ProcedureCode{Code: code, Description: description, CodeType: codeType}, nil
}

type fakeFeeScheduleRepo struct {
	upserts []*model.FeeScheduleRate
}

func (f *fakeFeeScheduleRepo) GetActiveSchedule(ctx context.Context, stateCode, scheduleType string, asOf time.Time) (*model.FeeSchedule, error) {
	return nil, apperrors.NoActiveSchedule(stateCode, scheduleType)
}

func (f *fakeFeeScheduleRepo) FindOrCreateSchedule(ctx context.Context, stateCode, scheduleType string, effective time.Time) (*model.FeeSchedule, error) {
	return &model.FeeSchedule{ID: 1, StateCode: stateCode, ScheduleType: scheduleType, EffectiveDate: effective}, nil
}

func (f *fakeFeeScheduleRepo) GetRates(ctx context.Context, feeScheduleID int64, procedureCode string, modifier *string) ([]*model.FeeScheduleRate, error) {
	return nil, nil
}

func (f *fakeFeeScheduleRepo) UpsertRate(ctx context.Context, rate *model.FeeScheduleRate) error {
	f.upserts = append(f.upserts, rate)
	return nil
}

const sampleCSV = `proc_cd,description,modifier,region_type,region_value,rate,rate_unit,is_by_report
99213,Office visit established,,state,,75.00,1,false
99213,Office visit established,,district,2,82.50,1,false
99213,Office visit established,26,state,,55.25,1,false
22899,Unlisted procedure spine,,state,,0,1,true
`

func TestImportReader(t *testing.T) {
	jur := &fakeJurisdictionRepo{}
	proc := &fakeProcedureRepo{}
	fee := &fakeFeeScheduleRepo{}
	svc := NewService(jur, proc, fee, nil)

	n, err := svc.ImportReader(context.Background(), strings.NewReader(sampleCSV), "GA", "general_medicine")
	require.NoError(t, err)

	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"GA"}, jur.states)
	assert.Equal(t, []string{"GA/district/2"}, jur.regions)
	require.Len(t, fee.upserts, 4)

	first := fee.upserts[0]
	assert.Equal(t, "99213", first.ProcedureCode)
	assert.Nil(t, first.Modifier)
	assert.Nil(t, first.RegionID)
	assert.True(t, first.Rate.Equal(decimal.RequireFromString("75.00")))

	regional := fee.upserts[1]
	require.NotNil(t, regional.RegionID)

	modified := fee.upserts[2]
	require.NotNil(t, modified.Modifier)
	assert.Equal(t, "26", *modified.Modifier)

	byReport := fee.upserts[3]
	assert.True(t, byReport.IsByReport)
	assert.True(t, byReport.Rate.IsZero())
}

func TestImportReaderRejectsBadHeader(t *testing.T) {
	svc := NewService(&fakeJurisdictionRepo{}, &fakeProcedureRepo{}, &fakeFeeScheduleRepo{}, nil)

	_, err := svc.ImportReader(context.Background(), strings.NewReader("code,rate\n99213,75\n"), "GA", "general_medicine")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proc_cd")
}

func TestImportReaderRejectsBadRate(t *testing.T) {
	svc := NewService(&fakeJurisdictionRepo{}, &fakeProcedureRepo{}, &fakeFeeScheduleRepo{}, nil)

	csv := "proc_cd,rate\n99213,not-a-number\n"
	_, err := svc.ImportReader(context.Background(), strings.NewReader(csv), "GA", "general_medicine")
	require.Error(t, err)
}

func TestProcessPendingMovesFiles(t *testing.T) {
	dropDir := t.TempDir()
	processedDir := filepath.Join(dropDir, "processed")
	errorDir := filepath.Join(dropDir, "error")

	good := filepath.Join(dropDir, "general_medicine_GA.csv")
	require.NoError(t, os.WriteFile(good, []byte(sampleCSV), 0o644))

	bad := filepath.Join(dropDir, "general_medicine_TX.csv")
	require.NoError(t, os.WriteFile(bad, []byte("wrong,header\n1,2\n"), 0o644))

	svc := NewService(&fakeJurisdictionRepo{}, &fakeProcedureRepo{}, &fakeFeeScheduleRepo{}, nil)

	require.NoError(t, svc.ProcessPending(context.Background(), dropDir, processedDir, errorDir))

	processed, err := filepath.Glob(filepath.Join(processedDir, "*_general_medicine_GA.csv"))
	require.NoError(t, err)
	assert.Len(t, processed, 1)

	failed, err := filepath.Glob(filepath.Join(errorDir, "*_general_medicine_TX.csv"))
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	remaining, err := filepath.Glob(filepath.Join(dropDir, "*.csv"))
	require.NoError(t, err)
	assert.Empty(t, remaining, "drop folder is drained")
}
