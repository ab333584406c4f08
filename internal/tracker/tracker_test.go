package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/uatkit/uat/internal/storage"
	"github.com/uatkit/uat/internal/types"
)

var fixedNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// The store's connection opener lives until the store is closed in Cleanup
var leakOpts = goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener")

func seed(t *testing.T) (storage.Storage, string) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{Path: filepath.Join(t.TempDir(), "uat.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cycleID, err := store.CreateCycle(ctx, &types.NewCycle{
		Name:             "ONB Questionnaire v1",
		UATType:          types.UATFeature,
		TargetLaunchDate: "2026-04-01",
		ClinicalPM:       "Kim Childers",
	}, "test")
	require.NoError(t, err)

	require.NoError(t, store.UpsertWorkflowSection(ctx, &types.WorkflowSection{
		Code: "GRX", Name: "Genetic Results", Guidance: "Use the GRX sample patient.", DisplayOrder: 2,
	}))
	require.NoError(t, store.UpsertWorkflowSection(ctx, &types.WorkflowSection{
		Code: "P4M", Name: "Patient Intake", DisplayOrder: 1,
	}))
	require.NoError(t, store.UpsertWorkflowSection(ctx, &types.WorkflowSection{
		Code: "EDGE", Name: "Edge Cases", DisplayOrder: 5,
	}))

	tests := []struct {
		id, section string
		order       int
	}{
		{"ONB-001", "GRX", 1},
		{"ONB-002", "P4M", 2},
		{"ONB-003", "P4M", 1},
		{"ONB-004", "", 0},
	}
	for _, tc := range tests {
		require.NoError(t, store.CreateTestCase(ctx, &types.TestCase{
			TestID: tc.id, Title: "Check " + tc.id, Category: "FORM",
			TestSteps: "Open </script><script>alert(1)</script>",
		}))
		require.NoError(t, store.AssignTestToCycle(ctx, tc.id, cycleID, "", ""))
		if tc.section != "" {
			require.NoError(t, store.SetTestWorkflow(ctx, tc.id, tc.section, tc.order))
		}
	}
	require.NoError(t, store.ReplaceAssignments(ctx, cycleID, []types.Assignment{
		{TestID: "ONB-001", AssignedTo: "kim.childers@example.com", Type: types.AssignPrimary},
		{TestID: "ONB-002", AssignedTo: "kim.childers@example.com", Type: types.AssignPrimary},
		{TestID: "ONB-003", AssignedTo: "lily@example.com", Type: types.AssignPrimary},
		{TestID: "ONB-004", AssignedTo: "lily@example.com", Type: types.AssignPrimary},
		{TestID: "ONB-003", AssignedTo: "kim.childers@example.com", Type: types.AssignCrossCheck},
	}, "test"))
	require.NoError(t, store.RecordTestResult(ctx, &types.TestResult{
		TestID: "ONB-003", Status: types.TestPass, TestedBy: "lily@example.com",
	}))
	return store, cycleID
}

func newGenerator(store Store) *Generator {
	g := New(store, nil)
	g.now = func() time.Time { return fixedNow }
	return g
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestGenerate(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts)

	store, cycleID := seed(t)
	out := t.TempDir()

	res, err := newGenerator(store).Generate(context.Background(), Options{
		CycleID: cycleID, OutputDir: out, FormID: "mqeekjjz",
	})
	require.NoError(t, err)

	dir := filepath.Join(out, Slug(cycleID))
	assert.Equal(t, dir, res.Dir)
	assert.Equal(t, filepath.Join(out, "index.html"), res.Home)
	require.Len(t, res.Trackers, 2)

	kim := res.Trackers[0]
	assert.Equal(t, "kim.childers@example.com", kim.Tester)
	assert.Equal(t, "Kim Childers", kim.Name)
	assert.Equal(t, filepath.Join(dir, "kim-childers.html"), kim.Path)
	assert.Equal(t, 2, kim.Tests)
	assert.Equal(t, 1, kim.CrossChecks)
	assert.Equal(t, "Lily", res.Trackers[1].Name)

	page := readFile(t, kim.Path)
	assert.Contains(t, page, "<title>ONB Questionnaire v1 - Kim Childers</title>")
	assert.Contains(t, page, `"formspree_id":"mqeekjjz"`)
	assert.Contains(t, page, `"localStorage_key":"uat_`+Slug(cycleID)+`_kim-childers"`)
	assert.Contains(t, page, `"assignment_type":"cross_check"`)
	assert.NotContains(t, page, "</script><script>alert(1)")

	// P4M (order 1) sorts ahead of GRX (order 2); ONB-003 before ONB-002 by workflow order
	p4m := strings.Index(page, `"code":"P4M"`)
	grx := strings.Index(page, `"code":"GRX"`)
	assert.True(t, p4m >= 0 && grx > p4m)
	assert.Less(t, strings.Index(page, `"test_id":"ONB-003"`), strings.Index(page, `"test_id":"ONB-002"`))
	assert.NotContains(t, page, `"code":"EDGE"`)

	lily := readFile(t, res.Trackers[1].Path)
	assert.Contains(t, lily, `"code":"FORM"`)
	assert.Contains(t, lily, `"test_status":"Pass"`)

	index := readFile(t, res.Index)
	assert.Contains(t, index, `href="kim-childers.html"`)
	assert.Contains(t, index, "2 tests assigned + 1 cross-checks")
	assert.Contains(t, index, "2 testers | 4 tests")
	assert.Contains(t, index, "Clinical PM: Kim Childers")

	dash := readFile(t, res.Dashboard)
	assert.Contains(t, dash, "Execution: 25%")
	assert.Contains(t, dash, "Recommendation: CONDITIONAL GO")
	assert.Contains(t, dash, "lily@example.com")

	home := readFile(t, res.Home)
	assert.Contains(t, home, Slug(cycleID)+"/index.html")
	assert.Contains(t, home, "2 testers | 4 tests")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), "temp file left behind: %s", e.Name())
	}
}

func TestGenerateWithoutForm(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts)

	store, cycleID := seed(t)
	res, err := newGenerator(store).Generate(context.Background(), Options{CycleID: cycleID, OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Contains(t, readFile(t, res.Trackers[0].Path), `"formspree_id":null`)
}

func TestGenerateValidation(t *testing.T) {
	store, cycleID := seed(t)
	g := newGenerator(store)

	_, err := g.Generate(context.Background(), Options{OutputDir: t.TempDir()})
	assert.EqualError(t, err, "cycle ID is required")

	_, err = g.Generate(context.Background(), Options{CycleID: cycleID})
	assert.EqualError(t, err, "output directory is required")

	_, err = g.Generate(context.Background(), Options{CycleID: "UAT-NOPE", OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrCycleNotFound)
}

func TestExportWorkflow(t *testing.T) {
	store, cycleID := seed(t)

	exp, err := newGenerator(store).ExportWorkflow(context.Background(), cycleID)
	require.NoError(t, err)

	assert.Equal(t, cycleID, exp.CycleID)
	assert.Equal(t, "workflow", exp.Structure)
	assert.Equal(t, "2026-03-14T10:00:00Z", exp.ExportedDate)
	assert.Equal(t, 3, exp.TotalTests)
	require.Len(t, exp.Sections, 2)
	assert.Equal(t, "P4M", exp.Sections[0].Code)
	assert.Equal(t, 2, exp.Sections[0].TestCount)
	assert.Equal(t, "ONB-003", exp.Sections[0].Tests[0].TestID)
	assert.Equal(t, "Pass", exp.Sections[0].Tests[0].TestStatus)
	assert.Equal(t, "GRX", exp.Sections[1].Code)
	assert.Equal(t, "Use the GRX sample patient.", exp.Sections[1].Guidance)

	path := filepath.Join(t.TempDir(), "out", WorkflowFileName(cycleID))
	require.NoError(t, exp.Save(path))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(readFile(t, path)), &decoded))
	assert.Equal(t, "workflow", decoded["structure"])
	assert.Equal(t, cycleID, decoded["cycle_id"])
	assert.Len(t, decoded["sections"], 2)

	var buf bytes.Buffer
	require.NoError(t, exp.Encode(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"cycle_id\""))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Kim Childers", DisplayName("kim.childers@example.com"))
	assert.Equal(t, "Lily", DisplayName("LILY@example.com"))
	assert.Equal(t, "Dr. Reyes", DisplayName("Dr. Reyes"))
	assert.Equal(t, "Unassigned", DisplayName(""))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "kim-childers", Slug("Kim Childers"))
	assert.Equal(t, "uat-nccn-q4-2025", Slug("UAT-NCCN-Q4-2025"))
	assert.Equal(t, "obrien-jr", Slug("  O'Brien -- Jr. "))
	assert.Equal(t, "snake_case", Slug("snake_case"))
}

func TestGenerateSharedLocalPart(t *testing.T) {
	defer goleak.VerifyNone(t, leakOpts)

	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{Path: filepath.Join(t.TempDir(), "uat.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cycleID, err := store.CreateCycle(ctx, &types.NewCycle{Name: "Two Clinics", UATType: types.UATFeature}, "test")
	require.NoError(t, err)
	for i, tester := range []string{"j.smith@clinic-a.org", "j.smith@clinic-b.org"} {
		id := fmt.Sprintf("TC-%d", i+1)
		require.NoError(t, store.CreateTestCase(ctx, &types.TestCase{TestID: id, Title: "Check " + id}))
		require.NoError(t, store.AssignTestToCycle(ctx, id, cycleID, tester, types.AssignPrimary))
	}

	res, err := newGenerator(store).Generate(ctx, Options{CycleID: cycleID, OutputDir: t.TempDir()})
	require.NoError(t, err)
	require.Len(t, res.Trackers, 2)

	a, b := res.Trackers[0], res.Trackers[1]
	assert.Equal(t, filepath.Join(res.Dir, "j-smith.html"), a.Path)
	assert.Equal(t, filepath.Join(res.Dir, "j-smith-2.html"), b.Path)

	pageA, pageB := readFile(t, a.Path), readFile(t, b.Path)
	assert.Contains(t, pageA, "TC-1")
	assert.NotContains(t, pageA, "TC-2")
	assert.Contains(t, pageB, "TC-2")
	assert.Contains(t, pageA, `"localStorage_key":"uat_`+Slug(cycleID)+`_j-smith"`)
	assert.Contains(t, pageB, `"localStorage_key":"uat_`+Slug(cycleID)+`_j-smith-2"`)
}

func TestPageSlugs(t *testing.T) {
	got := pageSlugs([]string{"Erin@example.com", "erin@example.org", "index@example.com", "Dashboard", "", "erin-2@example.com"})
	assert.Equal(t, []string{"erin", "erin-2", "index-2", "dashboard-2", "unassigned", "erin-2-2"}, got)
}
