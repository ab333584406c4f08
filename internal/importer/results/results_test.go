package results

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uatkit/uat/internal/storage"
	"github.com/uatkit/uat/internal/types"
)

func newStore(t *testing.T, testIDs ...string) storage.Storage {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{Path: filepath.Join(t.TempDir(), "uat.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cycleID, err := store.CreateCycle(ctx, &types.NewCycle{Name: "Results", UATType: types.UATFeature}, "test")
	require.NoError(t, err)
	for _, id := range testIDs {
		require.NoError(t, store.CreateTestCase(ctx, &types.TestCase{TestID: id, Title: id}))
		require.NoError(t, store.AssignTestToCycle(ctx, id, cycleID, "", ""))
	}
	return store
}

func TestDecode(t *testing.T) {
	p, err := Decode(strings.NewReader(`{
		"tester": "kim",
		"sync_type": "auto_10pm",
		"synced_at": "2026-03-01T22:00:00Z",
		"results": [{"test_id": "T-1", "test_status": "Pass"}, {"test_id": "T-2", "status": "Fail", "notes": "x"}]
	}`))
	require.NoError(t, err)
	assert.True(t, p.IsProgressSync())
	assert.Equal(t, "Pass", p.Results[0].status())
	assert.Equal(t, "Fail", p.Results[1].status())

	_, err = Decode(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestImportFinal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, "T-1", "T-2", "T-3")

	payload := &Payload{
		Tester:      "kim",
		SubmittedAt: "2026-03-02T09:00:00Z",
		Results: []Result{
			{TestID: "T-1", Status: "Pass", Notes: "ok"},
			{TestID: "T-2", Status: "Not_Run"},
			{TestID: "T-3", TestStatus: "fail", TestedDate: "2026-03-01"},
			{TestID: "T-9", Status: "Pass"},
			{TestID: "", Status: "Pass"},
			{TestID: "T-1", Status: "Maybe"},
		},
	}
	sum, err := New(store, nil).Import(ctx, payload, Options{Source: "results.json"})
	require.NoError(t, err)
	assert.False(t, sum.Partial)
	assert.Equal(t, SyncFinal, sum.SyncType)
	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, 3, sum.Updated, "final imports write Not Run too")
	assert.Equal(t, 1, sum.NotFound)
	assert.Len(t, sum.Errors, 3)

	tc, err := store.GetTestCase(ctx, "T-3")
	require.NoError(t, err)
	assert.Equal(t, types.TestFail, tc.Status)
	assert.Equal(t, "2026-03-01", tc.TestedDate)

	tc, err = store.GetTestCase(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02T09:00:00Z", tc.TestedDate)
	assert.Equal(t, "kim", tc.TestedBy)

	entries, err := store.GetAuditTrail(ctx, "batch-import-6", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "IMPORT", entries[0].Action)
	assert.Equal(t, "Imported 3 results, 0 skipped, 1 not found", entries[0].NewValue)
	assert.Equal(t, "JSON final from results.json", entries[0].ChangeReason)
}

func TestImportProgressSync(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, "T-1", "T-2")
	im := New(store, nil)

	_, err := im.Import(ctx, &Payload{Tester: "lily", Results: []Result{
		{TestID: "T-1", Status: "Fail", Notes: "crash on save"},
		{TestID: "T-2", Status: "Pass"},
	}}, Options{})
	require.NoError(t, err)

	sum, err := im.Import(ctx, &Payload{Tester: "lily", SyncType: SyncManual, Results: []Result{
		{TestID: "T-1", Status: "Pass", Notes: "fixed"},
		{TestID: "T-2", Status: "Not Run"},
	}}, Options{})
	require.NoError(t, err)
	assert.True(t, sum.Partial)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Skipped)

	tc, err := store.GetTestCase(ctx, "T-2")
	require.NoError(t, err)
	assert.Equal(t, types.TestPass, tc.Status, "partial sync keeps earlier result")

	tc, err = store.GetTestCase(ctx, "T-1")
	require.NoError(t, err)
	assert.Equal(t, "crash on save\n[lily] fixed", tc.ExecutionNotes)

	entries, err := store.GetAuditTrail(ctx, "batch-sync-2", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SYNC", entries[0].Action)
}

func TestImportEmpty(t *testing.T) {
	store := newStore(t)
	_, err := New(store, nil).Import(context.Background(), &Payload{Tester: "x"}, Options{})
	assert.EqualError(t, err, "no results found")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tester":"a","results":[{"test_id":"T-1","status":"Pass"}]}`), 0o644))
	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Tester)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorContains(t, err, "file not found")
}
