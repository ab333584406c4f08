package xlsx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uatkit/uat/internal/types"
)

type fakeStore struct {
	cycle    *types.Cycle
	tests    []*types.TestCase
	progress []*types.TesterProgress
	queue    []*types.RetestItem
}

func (f *fakeStore) GetCycle(_ context.Context, id string) (*types.Cycle, error) {
	if f.cycle == nil || f.cycle.CycleID != id {
		return nil, types.ErrCycleNotFound
	}
	return f.cycle, nil
}

func (f *fakeStore) GetGateStatus(context.Context, string) (types.GateStatus, error) {
	return types.GateStatus{Total: 7, Completed: 7, ReadyForSignoff: true}, nil
}

func (f *fakeStore) GetTesterProgress(context.Context, string) ([]*types.TesterProgress, error) {
	return f.progress, nil
}

func (f *fakeStore) GetRetestQueue(context.Context, string) ([]*types.RetestItem, error) {
	return f.queue, nil
}

func (f *fakeStore) ListCycleTests(context.Context, string, types.TestFilter) ([]*types.TestCase, error) {
	return f.tests, nil
}

func newStore() *fakeStore {
	return &fakeStore{
		cycle: &types.Cycle{
			CycleID:     "UAT-NCCN-0001",
			Name:        "NCCN Q1 2026",
			UATType:     types.UATRuleValidation,
			Status:      types.CycleReview,
			ProgramName: "NCCN Rules",
			GatePassed:  true,
			TotalTests:  3,
			Passed:      1,
			Failed:      1,
			NotRun:      1,
		},
		tests: []*types.TestCase{
			{TestID: "T-001", ProfileID: "P-1", Title: "Breast 45", Status: types.TestPass, TestedBy: "erin"},
			{TestID: "T-002", ProfileID: "P-2", Title: "Colon 50", Status: types.TestFail, TestedBy: "erin", DefectID: "BUG-1", DevStatus: types.DevPending},
			{TestID: "T-003", ProfileID: "P-3", Title: "Prostate 60", Status: types.TestNotRun},
		},
		progress: []*types.TesterProgress{
			{AssignedTo: "erin", TotalTests: 3, Completed: 2, Passed: 1, Failed: 1, NotRun: 1},
		},
		queue: []*types.RetestItem{
			{TestID: "T-002", ProfileID: "P-2", Title: "Colon 50", InitialStatus: "Fail", InitialTester: "erin", DefectID: "BUG-1", DevStatus: types.DevPending},
		},
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	e := New(newStore(), nil)
	e.now = func() time.Time { return time.Date(2026, 3, 14, 9, 5, 7, 0, time.UTC) }

	res, err := e.Export(context.Background(), Options{CycleID: "UAT-NCCN-0001", OutputDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "UAT_Results_UAT-NCCN-0001_20260314_090507.xlsx"), res.Path)
	assert.Equal(t, Sheets, res.Sheets)
	assert.Equal(t, 3, res.Tests)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Retest)

	f, err := excelize.OpenFile(res.Path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, Sheets, f.GetSheetList())

	get := func(sheet, cell string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "UAT CYCLE RESULTS", get(SheetSummary, "A1"))
	assert.Equal(t, "UAT-NCCN-0001", get(SheetSummary, "B3"))
	assert.Equal(t, "N/A", get(SheetSummary, "B8"))
	assert.Equal(t, "3", get(SheetSummary, "B12"))
	assert.Equal(t, "67%", get(SheetSummary, "B17"))
	assert.Equal(t, "50.0%", get(SheetSummary, "B18"))
	assert.Equal(t, "7/7", get(SheetSummary, "B21"))
	assert.Equal(t, "Yes", get(SheetSummary, "B22"))
	assert.Equal(t, "Pending", get(SheetSummary, "B25"))

	rows, err := f.GetRows(SheetTests)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, testHeaders, rows[0])
	assert.Equal(t, "T-002", rows[2][0])
	assert.Equal(t, "Fail", rows[2][7])

	passStyle, err := f.GetCellStyle(SheetTests, "H2")
	require.NoError(t, err)
	failStyle, err := f.GetCellStyle(SheetTests, "H3")
	require.NoError(t, err)
	plainStyle, err := f.GetCellStyle(SheetTests, "H4")
	require.NoError(t, err)
	assert.NotEqual(t, passStyle, failStyle)
	assert.NotEqual(t, failStyle, plainStyle)

	rows, err = f.GetRows(SheetTesters)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "erin", rows[1][0])
	assert.Equal(t, "67%", rows[1][7])

	rows, err = f.GetRows(SheetFailed)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "T-002", rows[1][0])
	assert.Equal(t, "BUG-1", rows[1][5])
	assert.Equal(t, "pending", rows[1][7])
	assert.Equal(t, "erin", rows[1][9])

	rows, err = f.GetRows(SheetRetest)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Fail", rows[1][5])
}

func TestExportCustomName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	res, err := New(newStore(), nil).Export(context.Background(), Options{
		CycleID:   "UAT-NCCN-0001",
		OutputDir: dir,
		FileName:  "results.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results.xlsx"), res.Path)
	assert.FileExists(t, res.Path)
}

func TestExportErrors(t *testing.T) {
	_, err := New(newStore(), nil).Export(context.Background(), Options{})
	assert.EqualError(t, err, "cycle ID is required")

	_, err = New(newStore(), nil).Export(context.Background(), Options{CycleID: "missing", OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrCycleNotFound)
}
