// Package tracker generates the static HTML pages testers work from: one
// tracker per tester, an index of testers, a progress dashboard and a
// landing page listing every cycle. Trackers keep progress in the
// browser's localStorage and submit results through Formspree.
package tracker

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uatkit/uat/internal/stats"
	"github.com/uatkit/uat/internal/types"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// writeLimit bounds concurrent page writes
const writeLimit = 4

const (
	defaultSectionOrder = 99
	otherSection        = "OTHER"
)

var sectionIcons = map[string]string{
	"P4M":   "🩺",
	"PR4M":  "🔬",
	"GRX":   "🧬",
	"DRAFT": "💾",
	"EDGE":  "🔍",
	"AUTH":  "🔐",
	"DASH":  "📊",
	"NCCN":  "📋",
	"POS":   "✅",
	"NEG":   "❌",
	"DEP":   "⚠️",
}

// Store is the read side of storage tracker generation needs
type Store interface {
	GetCycle(ctx context.Context, id string) (*types.Cycle, error)
	ListCycles(ctx context.Context, filter types.CycleFilter) ([]*types.Cycle, error)
	ListTesters(ctx context.Context, cycleID string) ([]string, error)
	ListCycleTests(ctx context.Context, cycleID string, filter types.TestFilter) ([]*types.TestCase, error)
	ListCrossChecks(ctx context.Context, cycleID, tester string) ([]*types.TestCase, error)
	GetTesterProgress(ctx context.Context, cycleID string) ([]*types.TesterProgress, error)
	ListWorkflowSections(ctx context.Context) ([]*types.WorkflowSection, error)
	ListSectionTests(ctx context.Context, cycleID, sectionCode string) ([]*types.TestCase, error)
}

// Options selects the cycle and where its pages go
type Options struct {
	CycleID   string
	OutputDir string
	FormID    string // Formspree form; empty disables in-page submission
}

// TrackerFile describes one generated tester page
type TrackerFile struct {
	Tester      string `json:"tester"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	Tests       int    `json:"tests"`
	CrossChecks int    `json:"cross_checks"`
}

// Result lists every file a run wrote
type Result struct {
	Dir       string        `json:"dir"`
	Home      string        `json:"home"`
	Index     string        `json:"index"`
	Dashboard string        `json:"dashboard"`
	Trackers  []TrackerFile `json:"trackers"`
}

// Generator renders tracker pages from storage
type Generator struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a generator. A nil logger disables logging.
func New(store Store, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{store: store, logger: logger, now: time.Now}
}

// page is one file to render
type page struct {
	path     string
	template string
	data     interface{}
}

// Generate writes all pages for a cycle. Data is read up front and the
// pages are rendered and written concurrently.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Result, error) {
	if opts.CycleID == "" {
		return nil, fmt.Errorf("cycle ID is required")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	cycle, err := g.store.GetCycle(ctx, opts.CycleID)
	if err != nil {
		return nil, err
	}
	sections, err := g.store.ListWorkflowSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow sections: %w", err)
	}
	testers, err := g.store.ListTesters(ctx, cycle.CycleID)
	if err != nil {
		return nil, err
	}

	generated := g.now().UTC().Format("2006-01-02 15:04 MST")
	dir := filepath.Join(opts.OutputDir, Slug(cycle.CycleID))
	res := &Result{
		Dir:       dir,
		Home:      filepath.Join(opts.OutputDir, "index.html"),
		Index:     filepath.Join(dir, "index.html"),
		Dashboard: filepath.Join(dir, "dashboard.html"),
	}

	slugs := pageSlugs(testers)
	var work []page
	total := 0
	for i, tester := range testers {
		primary, err := g.store.ListCycleTests(ctx, cycle.CycleID, types.TestFilter{AssignedTo: tester})
		if err != nil {
			return nil, fmt.Errorf("failed to list tests for %s: %w", tester, err)
		}
		cross, err := g.store.ListCrossChecks(ctx, cycle.CycleID, tester)
		if err != nil {
			return nil, fmt.Errorf("failed to list cross-checks for %s: %w", tester, err)
		}
		data := buildTrackerPage(cycle, tester, slugs[i], primary, cross, sections, opts.FormID, generated)
		file := TrackerFile{
			Tester:      tester,
			Name:        data.TesterName,
			Path:        filepath.Join(dir, data.File),
			Tests:       len(primary),
			CrossChecks: len(cross),
		}
		res.Trackers = append(res.Trackers, file)
		work = append(work, page{path: file.Path, template: "tracker.html.tmpl", data: data})
		total += len(primary)
	}

	work = append(work, page{path: res.Index, template: "index.html.tmpl", data: indexPage{
		Cycle:      cycle,
		TargetDate: targetDate(cycle),
		Testers:    res.Trackers,
		TotalTests: total,
	}})

	dash, err := g.dashboardPage(ctx, cycle, generated)
	if err != nil {
		return nil, err
	}
	work = append(work, page{path: res.Dashboard, template: "dashboard.html.tmpl", data: dash})

	home, err := g.homePage(ctx)
	if err != nil {
		return nil, err
	}
	work = append(work, page{path: res.Home, template: "home.html.tmpl", data: home})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(writeLimit)
	for _, p := range work {
		p := p
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return render(p)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.logger.Info("generated trackers",
		zap.String("cycle_id", cycle.CycleID),
		zap.String("dir", dir),
		zap.Int("testers", len(res.Trackers)))
	return res, nil
}

func render(p page) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, p.template, p.data); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(p.path), err)
	}
	return writeAtomic(p.path, buf.Bytes())
}

// writeAtomic replaces path so readers never see a partial page
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// trackerConfig is the UAT_CONFIG object embedded in a tracker page
type trackerConfig struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	TargetDate      string  `json:"target_date"`
	TesterDefault   string  `json:"tester_default"`
	TesterEmail     string  `json:"tester_email"`
	FormspreeID     *string `json:"formspree_id"`
	LocalStorageKey string  `json:"localStorage_key"`
}

// sectionData is one WORKFLOW_SECTIONS entry
type sectionData struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Guidance    string `json:"guidance"`
	Icon        string `json:"icon"`
	order       int
}

// testData is one TEST_CASES_DATA entry
type testData struct {
	TestID              string `json:"test_id"`
	Title               string `json:"title"`
	WorkflowSection     string `json:"workflow_section"`
	WorkflowOrder       int    `json:"workflow_order"`
	Category            string `json:"category,omitempty"`
	TestType            string `json:"test_type"`
	TestSteps           string `json:"test_steps"`
	ExpectedResults     string `json:"expected_results"`
	Prerequisites       string `json:"prerequisites"`
	Priority            string `json:"priority"`
	ComplianceFramework string `json:"compliance_framework,omitempty"`
	AssignmentType      string `json:"assignment_type"`
	ProfileID           string `json:"profile_id,omitempty"`
	Platform            string `json:"platform,omitempty"`
	TargetRule          string `json:"target_rule,omitempty"`
	PatientConditions   string `json:"patient_conditions,omitempty"`
	TestStatus          string `json:"test_status"`
}

type trackerPage struct {
	Cycle      *types.Cycle
	TesterName string
	TargetDate string
	File       string
	Generated  string
	Config     trackerConfig
	Sections   []sectionData
	Tests      []testData
}

func buildTrackerPage(cycle *types.Cycle, tester, slug string, primary, cross []*types.TestCase,
	catalog []*types.WorkflowSection, formID, generated string) *trackerPage {
	name := DisplayName(tester)

	known := make(map[string]*types.WorkflowSection, len(catalog))
	for _, sec := range catalog {
		known[sec.Code] = sec
	}

	var tests []testData
	add := func(tc *types.TestCase, assignment types.AssignmentType) {
		tests = append(tests, testData{
			TestID:              tc.TestID,
			Title:               tc.Title,
			WorkflowSection:     sectionCode(tc),
			WorkflowOrder:       tc.WorkflowOrder,
			Category:            tc.Category,
			TestType:            orDefault(tc.TestType, "happy_path"),
			TestSteps:           tc.TestSteps,
			ExpectedResults:     tc.ExpectedResults,
			Prerequisites:       tc.Prerequisites,
			Priority:            orDefault(tc.Priority, "Should Have"),
			ComplianceFramework: tc.ComplianceFramework,
			AssignmentType:      string(assignment),
			ProfileID:           tc.ProfileID,
			Platform:            tc.Platform,
			TargetRule:          tc.TargetRule,
			PatientConditions:   tc.PatientConditions,
			TestStatus:          string(types.NormalizeTestStatus(string(tc.Status))),
		})
	}
	for _, tc := range primary {
		assignment := tc.AssignmentType
		if assignment == "" {
			assignment = types.AssignPrimary
		}
		add(tc, assignment)
	}
	for _, tc := range cross {
		add(tc, types.AssignCrossCheck)
	}

	seen := make(map[string]bool)
	var sections []sectionData
	for _, t := range tests {
		if seen[t.WorkflowSection] {
			continue
		}
		seen[t.WorkflowSection] = true
		sections = append(sections, describeSection(t.WorkflowSection, known[t.WorkflowSection]))
	}
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].order != sections[j].order {
			return sections[i].order < sections[j].order
		}
		return sections[i].Code < sections[j].Code
	})

	order := make(map[string]int, len(sections))
	for i, sec := range sections {
		order[sec.Code] = i
	}
	sort.SliceStable(tests, func(i, j int) bool {
		a, b := tests[i], tests[j]
		if order[a.WorkflowSection] != order[b.WorkflowSection] {
			return order[a.WorkflowSection] < order[b.WorkflowSection]
		}
		if a.WorkflowOrder != b.WorkflowOrder {
			return a.WorkflowOrder < b.WorkflowOrder
		}
		return a.TestID < b.TestID
	})

	cfg := trackerConfig{
		ID:              cycle.CycleID + "-" + slug,
		Name:            cycle.Name,
		TargetDate:      targetDate(cycle),
		TesterDefault:   name,
		TesterEmail:     tester,
		LocalStorageKey: "uat_" + Slug(cycle.CycleID) + "_" + slug,
	}
	if formID != "" {
		cfg.FormspreeID = &formID
	}

	return &trackerPage{
		Cycle:      cycle,
		TesterName: name,
		TargetDate: cfg.TargetDate,
		File:       slug + ".html",
		Generated:  generated,
		Config:     cfg,
		Sections:   sections,
		Tests:      tests,
	}
}

func sectionCode(tc *types.TestCase) string {
	switch {
	case tc.WorkflowSection != "":
		return tc.WorkflowSection
	case tc.Category != "":
		return tc.Category
	}
	return otherSection
}

func describeSection(code string, sec *types.WorkflowSection) sectionData {
	out := sectionData{
		Code:        code,
		Name:        code,
		Description: fmt.Sprintf("Tests in %s category", code),
		Guidance:    "Complete these tests in order.",
		Icon:        "📝",
		order:       defaultSectionOrder,
	}
	if icon, ok := sectionIcons[code]; ok {
		out.Icon = icon
	}
	if sec == nil {
		return out
	}
	out.Name = orDefault(sec.Name, code)
	out.Description = orDefault(sec.Description, out.Description)
	out.Guidance = orDefault(sec.Guidance, out.Guidance)
	out.order = sec.DisplayOrder
	return out
}

type indexPage struct {
	Cycle      *types.Cycle
	TargetDate string
	Testers    []TrackerFile
	TotalTests int
}

// File is the tracker's name relative to the cycle directory
func (t TrackerFile) File() string {
	return filepath.Base(t.Path)
}

type testerRow struct {
	Name       string
	Email      string
	Pct        int
	Passed     int
	Failed     int
	Blocked    int
	NotRun     int
	LastTested string
	RowClass   string
}

type dashboardPage struct {
	Cycle          *types.Cycle
	TargetDate     string
	Generated      string
	Tally          stats.Tally
	ExecutionPct   int
	PassRate       string
	Recommendation stats.Recommendation
	Testers        []testerRow
}

func (g *Generator) dashboardPage(ctx context.Context, cycle *types.Cycle, generated string) (*dashboardPage, error) {
	progress, err := g.store.GetTesterProgress(ctx, cycle.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tester progress: %w", err)
	}
	t := stats.FromCycle(cycle)
	dash := &dashboardPage{
		Cycle:          cycle,
		TargetDate:     targetDate(cycle),
		Generated:      generated,
		Tally:          t,
		ExecutionPct:   t.ExecutionPct(),
		PassRate:       fmt.Sprintf("%.1f", t.PassRate()),
		Recommendation: stats.Recommend(t),
	}
	for _, tp := range progress {
		row := testerRow{
			Name:       DisplayName(tp.AssignedTo),
			Email:      tp.AssignedTo,
			Pct:        tp.CompletionPct(),
			Passed:     tp.Passed,
			Failed:     tp.Failed,
			Blocked:    tp.Blocked,
			NotRun:     tp.NotRun,
			LastTested: truncateDate(tp.LastTested),
		}
		switch {
		case row.Pct == 100:
			row.RowClass = "done"
		case row.Failed > 0:
			row.RowClass = "failing"
		}
		dash.Testers = append(dash.Testers, row)
	}
	sort.SliceStable(dash.Testers, func(i, j int) bool { return dash.Testers[i].Email < dash.Testers[j].Email })
	return dash, nil
}

type homeCycle struct {
	Folder     string
	Name       string
	Status     string
	TargetDate string
	Testers    int
	Tests      int
}

func (g *Generator) homePage(ctx context.Context) ([]homeCycle, error) {
	cycles, err := g.store.ListCycles(ctx, types.CycleFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	out := make([]homeCycle, 0, len(cycles))
	for _, c := range cycles {
		testers, err := g.store.ListTesters(ctx, c.CycleID)
		if err != nil {
			return nil, err
		}
		out = append(out, homeCycle{
			Folder:     Slug(c.CycleID),
			Name:       c.Name,
			Status:     orDefault(string(c.Status), string(types.CyclePlanning)),
			TargetDate: targetDate(c),
			Testers:    len(testers),
			Tests:      c.TotalTests,
		})
	}
	return out, nil
}

// DisplayName turns an email address into a readable name
// ("kim.childers@example.com" → "Kim Childers"). Plain names pass through.
func DisplayName(tester string) string {
	if tester == "" {
		return "Unassigned"
	}
	local, _, found := strings.Cut(tester, "@")
	if !found {
		return tester
	}
	words := strings.Fields(strings.NewReplacer(".", " ", "_", " ").Replace(local))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// pageSlugs names each tester's page after their display name. Testers
// whose names slug the same get -2, -3... in order, and the cycle's own
// index and dashboard names are never handed out.
func pageSlugs(testers []string) []string {
	taken := map[string]bool{"index": true, "dashboard": true}
	out := make([]string, len(testers))
	for i, tester := range testers {
		base := Slug(DisplayName(tester))
		if base == "" {
			base = "tester"
		}
		slug := base
		for n := 2; taken[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		taken[slug] = true
		out[i] = slug
	}
	return out
}

// Slug makes a lowercase, hyphenated file name fragment
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return b.String()
}

func targetDate(c *types.Cycle) string {
	return orDefault(c.TargetLaunchDate, "TBD")
}

func truncateDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
