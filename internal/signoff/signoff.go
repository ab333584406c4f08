// Package signoff builds the client sign-off package for a UAT cycle: a
// Word document with the executive summary, per-story approval sections,
// defect log, compliance matrix and signature page.
package signoff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/stats"
	"github.com/uatkit/uat/internal/types"
)

// ErrUnsupportedFormat is returned for output formats other than docx
var ErrUnsupportedFormat = errors.New("unsupported output format")

// FormatDOCX is the only rendered format
const FormatDOCX = "docx"

// Status fills used in test tables
var statusFills = map[types.TestStatus]string{
	types.TestPass:    "C6EFCE",
	types.TestFail:    "FFC7CE",
	types.TestBlocked: "FFEB9C",
	types.TestSkipped: "F2F2F2",
	types.TestNotRun:  "F2F2F2",
}

var recommendationColors = map[stats.Recommendation]string{
	stats.RecommendGo:            "006100",
	stats.RecommendConditionalGo: "9C5700",
	stats.RecommendNoGo:          "C00000",
}

// Options selects the cycle and the client the package is prepared for
type Options struct {
	CycleID     string
	ClientName  string
	ClientTitle string
	Format      string // defaults to docx
	OutputDir   string
}

// Summary describes a generated package
type Summary struct {
	Path            string               `json:"path"`
	CycleID         string               `json:"cycle_id"`
	CycleName       string               `json:"cycle_name"`
	ProgramName     string               `json:"program_name"`
	ClientName      string               `json:"client_name"`
	ClientTitle     string               `json:"client_title"`
	Stories         int                  `json:"stories"`
	Tally           stats.Tally          `json:"tally"`
	PassRate        float64              `json:"pass_rate"`
	Recommendation  stats.Recommendation `json:"recommendation"`
	Defects         int                  `json:"defects"`
	ComplianceTests int                  `json:"compliance_tests"`
}

// String renders the summary printed after generation
func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "UAT Sign-Off Package Generated\n")
	fmt.Fprintf(&b, "==============================\n\n")
	fmt.Fprintf(&b, "Cycle: %s (%s)\n", s.CycleName, s.CycleID)
	fmt.Fprintf(&b, "Program: %s\n", s.ProgramName)
	fmt.Fprintf(&b, "Client: %s, %s\n\n", s.ClientName, s.ClientTitle)
	fmt.Fprintf(&b, "Test Summary:\n")
	fmt.Fprintf(&b, "  Total Stories: %d\n", s.Stories)
	fmt.Fprintf(&b, "  Total Test Cases: %d\n", s.Tally.Total)
	fmt.Fprintf(&b, "  ✓ Passed: %d\n", s.Tally.Passed)
	fmt.Fprintf(&b, "  ✗ Failed: %d\n", s.Tally.Failed)
	fmt.Fprintf(&b, "  ⊘ Blocked: %d\n", s.Tally.Blocked)
	fmt.Fprintf(&b, "  ○ Not Run: %d\n", s.Tally.NotRun)
	fmt.Fprintf(&b, "  Pass Rate: %.1f%%\n\n", s.PassRate)
	fmt.Fprintf(&b, "Recommendation: %s\n\n", s.Recommendation)
	fmt.Fprintf(&b, "Document Contents:\n")
	fmt.Fprintf(&b, "  - Cover page\n")
	fmt.Fprintf(&b, "  - Executive summary\n")
	fmt.Fprintf(&b, "  - %d user story sign-off sections\n", s.Stories)
	fmt.Fprintf(&b, "  - Appendix A: Defect log (%d defects)\n", s.Defects)
	fmt.Fprintf(&b, "  - Appendix B: Compliance matrix (%d tagged tests)\n", s.ComplianceTests)
	fmt.Fprintf(&b, "  - Final sign-off page\n\n")
	fmt.Fprintf(&b, "File: %s\n", s.Path)
	return b.String()
}

// Store provides the data a package is assembled from
type Store interface {
	GetSignoffData(ctx context.Context, cycleID string) (*types.SignoffData, error)
	LogAudit(ctx context.Context, entry *types.AuditEntry) error
}

// Generator renders sign-off packages
type Generator struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator creates a generator. A nil logger disables logging.
func NewGenerator(store Store, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: store, logger: logger, now: time.Now}
}

// Generate writes the sign-off package and returns its summary
func (g *Generator) Generate(ctx context.Context, opts Options) (*Summary, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatDOCX
	}
	if format != FormatDOCX {
		return nil, fmt.Errorf("%w: %s (only docx is supported)", ErrUnsupportedFormat, format)
	}
	if strings.TrimSpace(opts.ClientName) == "" {
		return nil, fmt.Errorf("client name is required")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}

	data, err := g.store.GetSignoffData(ctx, opts.CycleID)
	if err != nil {
		return nil, err
	}

	now := g.now()
	tally := stats.FromTests(data.Tests)
	sum := &Summary{
		Path:            filepath.Join(opts.OutputDir, FileName(data.Cycle, opts.ClientName, now)),
		CycleID:         data.Cycle.CycleID,
		CycleName:       data.Cycle.Name,
		ProgramName:     data.Cycle.ProgramName,
		ClientName:      opts.ClientName,
		ClientTitle:     opts.ClientTitle,
		Stories:         len(data.Stories),
		Tally:           tally,
		PassRate:        tally.PassRate(),
		Recommendation:  stats.Recommend(tally),
		Defects:         len(data.Defects),
		ComplianceTests: countCompliance(data.Tests),
	}

	doc, err := Build(data, opts, now)
	if err != nil {
		return nil, err
	}
	if err := Save(doc, sum.Path); err != nil {
		return nil, err
	}

	if err := g.store.LogAudit(ctx, &types.AuditEntry{
		RecordType:   types.RecordCycle,
		RecordID:     data.Cycle.CycleID,
		Action:       "Sign-Off Package Generated",
		NewValue:     filepath.Base(sum.Path),
		ChangedBy:    "signoff_generator",
		ChangeReason: fmt.Sprintf("Prepared for %s; recommendation %s", opts.ClientName, sum.Recommendation),
	}); err != nil {
		return nil, err
	}

	g.logger.Info("generated sign-off package",
		zap.String("cycle_id", sum.CycleID),
		zap.String("path", sum.Path),
		zap.String("recommendation", string(sum.Recommendation)))
	return sum, nil
}

// FileName is UAT_SignOff_<prefix>_<client>_<date>.docx with every
// non-alphanumeric character in the client name replaced by '_'
func FileName(c *types.Cycle, clientName string, now time.Time) string {
	prefix := c.ProgramPrefix
	if prefix == "" {
		prefix = "UAT"
	}
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, clientName)
	return fmt.Sprintf("UAT_SignOff_%s_%s_%s.docx", prefix, safe, now.Format(types.DateLayout))
}

// Build lays out the sign-off document
func Build(data *types.SignoffData, opts Options, now time.Time) (*docx.RootDoc, error) {
	c := data.Cycle
	tally := stats.FromTests(data.Tests)
	rec := stats.Recommend(tally)

	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	w := &writer{doc: doc}

	// Cover page
	w.heading(0, "UAT Sign-Off Package")
	w.centered(orDash(c.ProgramName), 16, true)
	w.centered(c.Name, 14, false)
	w.table(nil, [][]cell{
		{{text: "Cycle ID", bold: true}, {text: c.CycleID}},
		{{text: "UAT Type", bold: true}, {text: string(c.UATType)}},
		{{text: "Target Launch", bold: true}, {text: orDash(c.TargetLaunchDate)}},
		{{text: "Clinical PM", bold: true}, {text: orDash(c.ClinicalPM)}},
		{{text: "Prepared For", bold: true}, {text: clientLine(opts)}},
		{{text: "Generated", bold: true}, {text: now.Format(types.DateLayout)}},
	})
	doc.AddPageBreak()

	// Executive summary
	w.heading(1, "Executive Summary")
	doc.AddParagraph(fmt.Sprintf(
		"This package summarizes user acceptance testing for %s and requests client sign-off.", c.Name))
	w.table([]string{"Metric", "Count"}, [][]cell{
		{{text: "User Stories"}, {text: fmt.Sprint(len(data.Stories))}},
		{{text: "Total Test Cases"}, {text: fmt.Sprint(tally.Total)}},
		{{text: "Passed"}, {text: fmt.Sprint(tally.Passed), fill: statusFills[types.TestPass]}},
		{{text: "Failed"}, {text: fmt.Sprint(tally.Failed), fill: statusFills[types.TestFail]}},
		{{text: "Blocked"}, {text: fmt.Sprint(tally.Blocked), fill: statusFills[types.TestBlocked]}},
		{{text: "Not Run"}, {text: fmt.Sprint(tally.NotRun)}},
	})
	w.label("Pass Rate: ").AddText(fmt.Sprintf("%.1f%%", tally.PassRate()))
	w.label("Recommendation: ").AddText(string(rec)).Bold(true).Color(recommendationColors[rec]).Size(14)
	doc.AddEmptyParagraph().AddText(stats.Rationale(tally)).Italic(true)
	doc.AddPageBreak()

	// Story sections
	w.heading(1, "User Story Sign-Off")
	byStory := make(map[string][]*types.TestCase)
	known := make(map[string]bool, len(data.Stories))
	for _, st := range data.Stories {
		known[st.StoryID] = true
	}
	var unlinked []*types.TestCase
	for _, t := range data.Tests {
		if t.StoryID != "" && known[t.StoryID] {
			byStory[t.StoryID] = append(byStory[t.StoryID], t)
		} else {
			unlinked = append(unlinked, t)
		}
	}

	for _, st := range data.Stories {
		w.heading(2, fmt.Sprintf("%s: %s", st.StoryID, st.Title))
		if st.UserStory != "" {
			doc.AddEmptyParagraph().AddText(st.UserStory).Italic(true)
		}
		if st.AcceptanceCriteria != "" {
			w.label("Acceptance Criteria")
			w.lines(st.AcceptanceCriteria)
		}
		storyTests := byStory[st.StoryID]
		w.testTable(storyTests)
		storyTally := stats.FromTests(storyTests)
		doc.AddParagraph(fmt.Sprintf("%d of %d passed", storyTally.Passed, storyTally.Total))
		doc.AddParagraph("☐ Approved    ☐ Approved with conditions    ☐ Rejected")
		doc.AddParagraph("Reviewer initials: ________    Date: ____________")
	}

	if len(unlinked) > 0 {
		w.heading(2, "Unlinked Test Cases")
		doc.AddParagraph("Test cases in this cycle that are not linked to a user story.")
		w.testTable(unlinked)
	}
	doc.AddPageBreak()

	// Appendix A
	w.heading(1, "Appendix A: Defect Log")
	if len(data.Defects) == 0 {
		doc.AddParagraph("No defects were logged during this cycle.")
	} else {
		rows := make([][]cell, 0, len(data.Defects))
		for _, d := range data.Defects {
			rows = append(rows, []cell{
				{text: d.DefectID}, {text: d.TestID}, {text: orDash(d.Description)},
				{text: orDash(string(d.DevStatus))}, {text: orDash(d.DevNotes)},
			})
		}
		w.table([]string{"Defect", "Test", "Description", "Dev Status", "Dev Notes"}, rows)
	}

	// Appendix B
	w.heading(1, "Appendix B: Compliance Matrix")
	groups := complianceGroups(data.Tests)
	if len(groups) == 0 {
		doc.AddParagraph("No test cases in this cycle are tagged with a compliance framework.")
	}
	frameworks := make([]string, 0, len(groups))
	for f := range groups {
		frameworks = append(frameworks, f)
	}
	sort.Strings(frameworks)
	for _, f := range frameworks {
		w.heading(2, f)
		w.testTable(groups[f])
	}
	doc.AddPageBreak()

	// Final sign-off
	w.heading(1, "Final Sign-Off")
	doc.AddParagraph(fmt.Sprintf(
		"By signing below, the reviewers confirm that user acceptance testing for %s is complete "+
			"and accept the recommendation recorded in this package.", c.Name))
	w.label("Recommendation: ").AddText(string(rec)).Bold(true).Color(recommendationColors[rec])
	doc.AddParagraph("☐ GO    ☐ CONDITIONAL GO    ☐ NO-GO")
	w.signature("Client Approval", clientLine(opts))
	pm := c.ClinicalPM
	if pm == "" {
		pm = "Clinical Program Manager"
	}
	w.signature("Clinical PM Approval", pm)
	if w.err != nil {
		return nil, w.err
	}
	return doc, nil
}

// Save writes doc to path via a temp file and rename
func Save(doc *docx.RootDoc, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".signoff-*.docx")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := doc.Write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func complianceGroups(tests []*types.TestCase) map[string][]*types.TestCase {
	groups := make(map[string][]*types.TestCase)
	for _, t := range tests {
		if f := strings.TrimSpace(t.ComplianceFramework); f != "" {
			groups[f] = append(groups[f], t)
		}
	}
	return groups
}

func countCompliance(tests []*types.TestCase) int {
	n := 0
	for _, t := range tests {
		if strings.TrimSpace(t.ComplianceFramework) != "" {
			n++
		}
	}
	return n
}

func clientLine(opts Options) string {
	if opts.ClientTitle == "" {
		return opts.ClientName
	}
	return opts.ClientName + ", " + opts.ClientTitle
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
