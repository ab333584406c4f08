package signoff

import (
	"archive/zip"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gomutex/godocx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uatkit/uat/internal/stats"
	"github.com/uatkit/uat/internal/storage"
	"github.com/uatkit/uat/internal/types"
)

var fixedNow = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func documentXML(t *testing.T, path string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(b)
		}
	}
	t.Fatal("document.xml missing")
	return ""
}

func seed(t *testing.T) (storage.Storage, string) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewStorage(ctx, &storage.Config{Path: filepath.Join(t.TempDir(), "uat.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.CreateProgram(ctx, &types.Program{ProgramID: "P-ONB", Name: "Onboarding", Prefix: "ONB"}, "admin"))
	cycleID, err := store.CreateCycle(ctx, &types.NewCycle{
		Name: "Onboarding Release 2", UATType: types.UATFeature, ProgramPrefix: "ONB",
		ClinicalPM: "Dr. Reyes", TargetLaunchDate: "2026-06-01",
	}, "test")
	require.NoError(t, err)

	require.NoError(t, store.CreateStory(ctx, "P-ONB", &types.Story{
		StoryID: "ONB-1", Title: "Patient intake", UserStory: "As a patient I can register",
		AcceptanceCriteria: "Form saves",
	}))
	for _, tc := range []*types.TestCase{
		{TestID: "ONB-1-TC1", StoryID: "ONB-1", Title: "Register", ComplianceFramework: "HIPAA"},
		{TestID: "ONB-1-TC2", StoryID: "ONB-1", Title: "Audit log", ComplianceFramework: "Part11"},
		{TestID: "ONB-X-TC1", Title: "Orphan check"},
	} {
		require.NoError(t, store.CreateTestCase(ctx, tc))
		require.NoError(t, store.AssignTestToCycle(ctx, tc.TestID, cycleID, "qa@example.org", types.AssignPrimary))
	}
	require.NoError(t, store.RecordTestResult(ctx, &types.TestResult{TestID: "ONB-1-TC1", Status: types.TestPass, TestedBy: "qa@example.org"}))
	require.NoError(t, store.RecordTestResult(ctx, &types.TestResult{
		TestID: "ONB-1-TC2", Status: types.TestFail, TestedBy: "qa@example.org",
		DefectID: "BUG-12", DefectDescription: "Audit row missing <user>",
	}))
	return store, cycleID
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	store, cycleID := seed(t)
	g := NewGenerator(store, nil)
	g.now = func() time.Time { return fixedNow }

	out := t.TempDir()
	sum, err := g.Generate(ctx, Options{
		CycleID: cycleID, ClientName: "Kim Childers", ClientTitle: "Clinical Program Manager", OutputDir: out,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "UAT_SignOff_ONB_Kim_Childers_2026-05-04.docx"), sum.Path)
	assert.Equal(t, "Onboarding", sum.ProgramName)
	assert.Equal(t, 1, sum.Stories)
	assert.Equal(t, stats.Tally{Total: 3, Passed: 1, Failed: 1, NotRun: 1}, sum.Tally)
	assert.InDelta(t, 50.0, sum.PassRate, 0.001)
	assert.Equal(t, stats.RecommendNoGo, sum.Recommendation)
	assert.Equal(t, 1, sum.Defects)
	assert.Equal(t, 2, sum.ComplianceTests)

	doc := documentXML(t, sum.Path)
	for _, want := range []string{
		"UAT Sign-Off Package",
		"Executive Summary",
		"ONB-1: Patient intake",
		"As a patient I can register",
		"Unlinked Test Cases",
		"Orphan check",
		"Appendix A: Defect Log",
		"Audit row missing &lt;user&gt;",
		"Appendix B: Compliance Matrix",
		"HIPAA",
		"Part11",
		"Final Sign-Off",
		"Kim Childers, Clinical Program Manager",
		"Clinical PM Approval",
		"Dr. Reyes",
	} {
		assert.Contains(t, doc, want)
	}
	assert.Less(t, strings.Index(doc, "HIPAA"), strings.Index(doc, "Part11"), "frameworks sorted")

	text := sum.String()
	assert.Contains(t, text, "Pass Rate: 50.0%")
	assert.Contains(t, text, "Recommendation: NO-GO")
	assert.Contains(t, text, "Appendix B: Compliance matrix (2 tagged tests)")

	entries, err := store.GetAuditTrail(ctx, cycleID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Sign-Off Package Generated", entries[0].Action)
}

func TestGenerateValidation(t *testing.T) {
	ctx := context.Background()
	store, cycleID := seed(t)
	g := NewGenerator(store, nil)

	_, err := g.Generate(ctx, Options{CycleID: cycleID, ClientName: "K", Format: "pdf", OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = g.Generate(ctx, Options{CycleID: cycleID, OutputDir: t.TempDir()})
	assert.ErrorContains(t, err, "client name")

	_, err = g.Generate(ctx, Options{CycleID: "UAT-NOPE", ClientName: "K", OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrCycleNotFound)
}

func TestFileName(t *testing.T) {
	c := &types.Cycle{}
	assert.Equal(t, "UAT_SignOff_UAT_O_Brien__Jr__2026-05-04.docx", FileName(c, "O'Brien, Jr.", fixedNow))
	c.ProgramPrefix = "NCCN"
	assert.Equal(t, "UAT_SignOff_NCCN_Kim_2026-05-04.docx", FileName(c, "Kim", fixedNow))
}

func TestBuildWithoutDefectsOrCompliance(t *testing.T) {
	data := &types.SignoffData{
		Cycle: &types.Cycle{CycleID: "UAT-X-1", Name: "Empty"},
	}
	doc, err := Build(data, Options{ClientName: "K"}, fixedNow)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "x.docx")
	require.NoError(t, Save(doc, path))

	xml := documentXML(t, path)
	assert.Contains(t, xml, "No defects were logged during this cycle.")
	assert.Contains(t, xml, "No test cases in this cycle are tagged with a compliance framework.")
	assert.Contains(t, xml, "CONDITIONAL GO")
	assert.Contains(t, xml, "Clinical Program Manager")
	assert.NotContains(t, xml, "Unlinked Test Cases")
}

func TestBuildLayout(t *testing.T) {
	data := &types.SignoffData{
		Cycle: &types.Cycle{CycleID: "UAT-X-2", Name: "Layout", ProgramName: "Onboarding"},
		Stories: []*types.Story{{
			StoryID: "S-1", Title: "Intake", AcceptanceCriteria: "Form saves\nAudit row written",
		}},
		Tests: []*types.TestCase{
			{TestID: "S-1-TC1", StoryID: "S-1", Title: "Save", Status: types.TestFail},
		},
	}
	doc, err := Build(data, Options{ClientName: "K"}, fixedNow)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "layout.docx")
	require.NoError(t, Save(doc, path))

	// Reopens with the same library
	_, err = godocx.OpenDocument(path)
	require.NoError(t, err)

	xml := documentXML(t, path)
	assert.Contains(t, xml, `w:val="Title"`)
	assert.Contains(t, xml, `w:val="Heading1"`)
	assert.Contains(t, xml, `w:val="TableGrid"`)
	assert.Contains(t, xml, `w:fill="`+statusFills[types.TestFail]+`"`)
	assert.Contains(t, xml, `w:fill="`+headerFill+`"`)
	assert.Contains(t, xml, `w:type="page"`)
	assert.Less(t, strings.Index(xml, "Form saves"), strings.Index(xml, "Audit row written"))
	assert.NotContains(t, xml, "Form saves\nAudit")
}
