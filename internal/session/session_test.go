package session

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uatkit/uat/internal/storage"
	"github.com/uatkit/uat/internal/types"
)

// scriptReader replays canned input lines, then reports EOF
type scriptReader struct {
	lines   []string
	prompts []string
	closed  bool
}

func (r *scriptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) SetPrompt(p string) { r.prompts = append(r.prompts, p) }
func (r *scriptReader) Close() error       { r.closed = true; return nil }

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func setup(t *testing.T) (storage.Storage, string) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{Path: filepath.Join(t.TempDir(), "uat.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cycleID, err := store.CreateCycle(ctx, &types.NewCycle{Name: "Session Cycle", UATType: types.UATFeature}, "test")
	require.NoError(t, err)

	for _, id := range []string{"S-001", "S-002", "S-003", "S-004"} {
		require.NoError(t, store.CreateTestCase(ctx, &types.TestCase{
			TestID: id, Title: "Check " + id, TestSteps: "step one\nstep two", ExpectedResults: "works",
		}))
		require.NoError(t, store.AssignTestToCycle(ctx, id, cycleID, "erin", types.AssignPrimary))
	}
	require.NoError(t, store.AssignTestToCycle(ctx, "S-004", cycleID, "mo", types.AssignPrimary))
	require.NoError(t, store.RecordTestResult(ctx, &types.TestResult{
		TestID: "S-003", Status: types.TestPass, TestedBy: "erin",
	}))
	return store, cycleID
}

func TestRun(t *testing.T) {
	store, cycleID := setup(t)
	ctx := context.Background()

	reader := &scriptReader{lines: []string{
		"", "huh", "f", "button missing", "BUG-7", // S-001
		"n", // S-002 deferred
	}}
	var out bytes.Buffer
	s, err := New(&Config{Store: store, CycleID: cycleID, Tester: "erin", Out: &out, Reader: reader})
	require.NoError(t, err)

	sum, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 1, Deferred: 1}, sum)
	assert.True(t, reader.closed)

	assert.Contains(t, out.String(), "2 test(s) not yet run for erin")
	assert.Contains(t, out.String(), "[1/2] S-001  Check S-001")
	assert.Contains(t, out.String(), "    step two")
	assert.Contains(t, out.String(), `unknown action "huh"`)
	assert.Contains(t, out.String(), "S-001 → Fail")
	assert.Contains(t, reader.prompts, "Defect ID (optional): ")

	tc, err := store.GetTestCase(ctx, "S-001")
	require.NoError(t, err)
	assert.Equal(t, types.TestFail, tc.Status)
	assert.Equal(t, "erin", tc.TestedBy)
	assert.Equal(t, "BUG-7", tc.DefectID)

	tc, err = store.GetTestCase(ctx, "S-002")
	require.NoError(t, err)
	assert.Equal(t, types.TestNotRun, types.NormalizeTestStatus(string(tc.Status)))
}

func TestRunQuit(t *testing.T) {
	store, cycleID := setup(t)
	ctx := context.Background()

	reader := &scriptReader{lines: []string{"p", "", "q"}}
	var out bytes.Buffer
	s, err := New(&Config{Store: store, CycleID: cycleID, Tester: "erin", Out: &out, Reader: reader})
	require.NoError(t, err)

	sum, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Passed: 1, Remaining: 1}, sum)
	assert.Contains(t, out.String(), "Remaining: 1")

	tc, err := store.GetTestCase(ctx, "S-001")
	require.NoError(t, err)
	assert.Equal(t, types.TestPass, tc.Status)
}

func TestRunAllTesters(t *testing.T) {
	store, cycleID := setup(t)
	ctx := context.Background()

	// End of input after the last answer ends the session
	reader := &scriptReader{lines: []string{"s", "", "b", "waiting on env", "p"}}
	var out bytes.Buffer
	s, err := New(&Config{Store: store, CycleID: cycleID, Actor: "cli:uat", Out: &out, Reader: reader})
	require.NoError(t, err)

	sum, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Passed: 1, Blocked: 1, Skipped: 1}, sum)
	assert.Contains(t, out.String(), "3 test(s) not yet run for all testers")

	tc, err := store.GetTestCase(ctx, "S-004")
	require.NoError(t, err)
	assert.Equal(t, types.TestPass, tc.Status)
	assert.Equal(t, "mo", tc.TestedBy)
}

func TestRunNothingToDo(t *testing.T) {
	store, cycleID := setup(t)
	reader := &scriptReader{}
	var out bytes.Buffer
	s, err := New(&Config{Store: store, CycleID: cycleID, Tester: "nobody", Out: &out, Reader: reader})
	require.NoError(t, err)

	sum, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Total())
	assert.Contains(t, out.String(), "0 test(s) not yet run for nobody")
}

func TestNewValidation(t *testing.T) {
	_, err := New(&Config{CycleID: "UAT-1"})
	assert.EqualError(t, err, "storage is required")

	store, _ := setup(t)
	_, err = New(&Config{Store: store})
	assert.EqualError(t, err, "cycle ID is required")

	s, err := New(&Config{Store: store, CycleID: "UAT-MISSING", Reader: &scriptReader{}})
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrCycleNotFound)
}
