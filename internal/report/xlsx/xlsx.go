// Package xlsx exports a cycle's results to an Excel workbook for
// stakeholders who do not use the CLI.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/stats"
	"github.com/uatkit/uat/internal/types"
)

// Sheet names in workbook order
const (
	SheetSummary = "Summary"
	SheetTests   = "All Tests"
	SheetTesters = "By Tester"
	SheetFailed  = "Failed Tests"
	SheetRetest  = "Retest Queue"
)

// Sheets lists every sheet the export writes
var Sheets = []string{SheetSummary, SheetTests, SheetTesters, SheetFailed, SheetRetest}

const (
	headerFill  = "366092"
	passFill    = "C6EFCE"
	failFill    = "FFC7CE"
	blockedFill = "FFEB9C"
)

var (
	testHeaders = []string{
		"Test ID", "Profile ID", "Title", "Platform", "Change ID",
		"Target Rule", "Test Type", "Status", "Tested By", "Tested Date",
		"Notes", "Defect ID",
	}
	testerHeaders = []string{
		"Tester", "Total", "Completed", "Passed", "Failed", "Blocked",
		"Not Run", "Completion %", "Last Tested",
	}
	failedHeaders = []string{
		"Test ID", "Profile ID", "Title", "Platform", "Target Rule",
		"Defect ID", "Defect Description", "Dev Status", "Dev Notes",
		"Tested By", "Notes",
	}
	retestHeaders = []string{
		"Test ID", "Profile ID", "Title", "Platform", "Target Rule",
		"Initial Status", "Initial Tester", "Defect ID", "Dev Status", "Dev Notes",
		"Retest Status", "Retest By", "Retest Date", "Retest Notes",
	}
)

// statusColumn is the 1-based Status column on the All Tests sheet
const statusColumn = 8

// Store is the read side of storage the export needs
type Store interface {
	GetCycle(ctx context.Context, id string) (*types.Cycle, error)
	GetGateStatus(ctx context.Context, cycleID string) (types.GateStatus, error)
	GetTesterProgress(ctx context.Context, cycleID string) ([]*types.TesterProgress, error)
	GetRetestQueue(ctx context.Context, cycleID string) ([]*types.RetestItem, error)
	ListCycleTests(ctx context.Context, cycleID string, filter types.TestFilter) ([]*types.TestCase, error)
}

// Options selects the cycle and where the workbook goes
type Options struct {
	CycleID   string
	OutputDir string
	FileName  string // defaults to UAT_Results_<cycle>_<timestamp>.xlsx
}

// Result describes a written workbook
type Result struct {
	Path   string   `json:"file_path"`
	Sheets []string `json:"sheets"`
	Tests  int      `json:"test_count"`
	Failed int      `json:"failed_count"`
	Retest int      `json:"retest_count"`
}

// Exporter writes cycle workbooks
type Exporter struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an exporter. A nil logger disables logging.
func New(store Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, logger: logger, now: time.Now}
}

// FileName is the default workbook name for a cycle
func FileName(cycleID string, now time.Time) string {
	return fmt.Sprintf("UAT_Results_%s_%s.xlsx", cycleID, now.Format("20060102_150405"))
}

// Export writes the workbook and reports what went into it
func (e *Exporter) Export(ctx context.Context, opts Options) (*Result, error) {
	if opts.CycleID == "" {
		return nil, fmt.Errorf("cycle ID is required")
	}
	cycle, err := e.store.GetCycle(ctx, opts.CycleID)
	if err != nil {
		return nil, err
	}
	gate, err := e.store.GetGateStatus(ctx, cycle.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get gate status: %w", err)
	}
	progress, err := e.store.GetTesterProgress(ctx, cycle.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tester progress: %w", err)
	}
	queue, err := e.store.GetRetestQueue(ctx, cycle.CycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get retest queue: %w", err)
	}
	tests, err := e.store.ListCycleTests(ctx, cycle.CycleID, types.TestFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}

	var failed []*types.TestCase
	for _, tc := range tests {
		if tc.Status == types.TestFail {
			failed = append(failed, tc)
		}
	}

	dir := opts.OutputDir
	if dir == "" {
		dir = "outputs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	name := opts.FileName
	if name == "" {
		name = FileName(cycle.CycleID, e.now())
	}
	path := filepath.Join(dir, name)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	w, err := newWriter(f)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, sheet := range Sheets[1:] {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}
	}

	steps := []func() error{
		func() error { return w.summary(cycle, gate) },
		func() error { return w.allTests(tests) },
		func() error { return w.byTester(progress) },
		func() error { return w.failedTests(failed) },
		func() error { return w.retestQueue(queue) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("failed to save workbook: %w", err)
	}
	e.logger.Info("exported cycle results",
		zap.String("cycle_id", cycle.CycleID),
		zap.String("path", path),
		zap.Int("tests", len(tests)))

	return &Result{
		Path:   path,
		Sheets: append([]string(nil), Sheets...),
		Tests:  len(tests),
		Failed: len(failed),
		Retest: len(queue),
	}, nil
}

// writer holds the workbook and its shared styles
type writer struct {
	f       *excelize.File
	section int
	header  int
	cell    int
	fills   map[types.TestStatus]int
	failRow int
}

func newWriter(f *excelize.File) (*writer, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	w := &writer{f: f, fills: make(map[types.TestStatus]int)}

	var err error
	if w.section, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if w.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   solid(headerFill),
		Border: border,
	}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if w.cell, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	for status, color := range map[types.TestStatus]string{
		types.TestPass:    passFill,
		types.TestFail:    failFill,
		types.TestBlocked: blockedFill,
	} {
		id, err := f.NewStyle(&excelize.Style{Fill: solid(color), Border: border})
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		w.fills[status] = id
	}
	w.failRow = w.fills[types.TestFail]
	return w, nil
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

func (w *writer) summary(c *types.Cycle, gate types.GateStatus) error {
	t := stats.FromCycle(c)
	decision := string(c.Decision)
	if decision == "" {
		decision = "Pending"
	}
	rows := [][]interface{}{
		{"UAT CYCLE RESULTS"},
		{},
		{"Cycle ID", c.CycleID},
		{"Name", c.Name},
		{"Type", string(c.UATType)},
		{"Status", string(c.Status)},
		{"Program", orNA(c.ProgramName)},
		{"Clinical PM", orNA(c.ClinicalPM)},
		{"Target Launch", orNA(c.TargetLaunchDate)},
		{},
		{"TEST PROGRESS"},
		{"Total Tests", t.Total},
		{"Passed", t.Passed},
		{"Failed", t.Failed},
		{"Blocked", t.Blocked},
		{"Not Run", t.NotRun},
		{"Execution %", fmt.Sprintf("%d%%", t.ExecutionPct())},
		{"Pass Rate", fmt.Sprintf("%.1f%%", t.PassRate())},
		{},
		{"PRE-UAT GATE"},
		{"Items Complete", fmt.Sprintf("%d/%d", gate.Completed, gate.Total)},
		{"Gate Passed", yesNo(c.GatePassed)},
		{},
		{"GO/NO-GO DECISION"},
		{"Decision", decision},
		{"Signed By", orNA(c.DecisionSignedBy)},
		{"Date", orNA(c.DecisionDate)},
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := w.row(SheetSummary, i+1, row, 0); err != nil {
			return err
		}
		if len(row) == 1 {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := w.f.SetCellStyle(SheetSummary, cell, cell, w.section); err != nil {
				return fmt.Errorf("failed to style %s!%s: %w", SheetSummary, cell, err)
			}
		}
	}
	if err := w.f.SetColWidth(SheetSummary, "A", "A", 20); err != nil {
		return err
	}
	return w.f.SetColWidth(SheetSummary, "B", "B", 40)
}

func (w *writer) allTests(tests []*types.TestCase) error {
	if err := w.headers(SheetTests, testHeaders, 15); err != nil {
		return err
	}
	for i, tc := range tests {
		row := []interface{}{
			tc.TestID, tc.ProfileID, tc.Title, tc.Platform, tc.ChangeID,
			tc.TargetRule, tc.TestType, string(tc.Status), tc.TestedBy, tc.TestedDate,
			tc.ExecutionNotes, tc.DefectID,
		}
		if err := w.row(SheetTests, i+2, row, w.cell); err != nil {
			return err
		}
		if fill, ok := w.fills[tc.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(statusColumn, i+2)
			if err := w.f.SetCellStyle(SheetTests, cell, cell, fill); err != nil {
				return fmt.Errorf("failed to style %s!%s: %w", SheetTests, cell, err)
			}
		}
	}
	return nil
}

func (w *writer) byTester(progress []*types.TesterProgress) error {
	if err := w.headers(SheetTesters, testerHeaders, 12); err != nil {
		return err
	}
	for i, tp := range progress {
		tester := tp.AssignedTo
		if tester == "" {
			tester = "Unassigned"
		}
		row := []interface{}{
			tester, tp.TotalTests, tp.Completed, tp.Passed, tp.Failed, tp.Blocked,
			tp.NotRun, fmt.Sprintf("%d%%", tp.CompletionPct()), tp.LastTested,
		}
		if err := w.row(SheetTesters, i+2, row, w.cell); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) failedTests(failed []*types.TestCase) error {
	if err := w.headers(SheetFailed, failedHeaders, 15); err != nil {
		return err
	}
	for i, tc := range failed {
		row := []interface{}{
			tc.TestID, tc.ProfileID, tc.Title, tc.Platform, tc.TargetRule,
			tc.DefectID, tc.DefectDescription, string(tc.DevStatus), tc.DevNotes,
			tc.TestedBy, tc.ExecutionNotes,
		}
		if err := w.row(SheetFailed, i+2, row, w.failRow); err != nil {
			return err
		}
	}
	return nil
}

func (w *writer) retestQueue(queue []*types.RetestItem) error {
	if err := w.headers(SheetRetest, retestHeaders, 15); err != nil {
		return err
	}
	for i, item := range queue {
		row := []interface{}{
			item.TestID, item.ProfileID, item.Title, item.Platform, item.TargetRule,
			item.InitialStatus, item.InitialTester, item.DefectID, string(item.DevStatus), item.DevNotes,
			item.RetestStatus, item.RetestBy, item.RetestDate, item.RetestNotes,
		}
		if err := w.row(SheetRetest, i+2, row, w.cell); err != nil {
			return err
		}
	}
	return nil
}

// headers writes a styled header row and sizes each column to fit
func (w *writer) headers(sheet string, headers []string, minWidth int) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := w.row(sheet, 1, row, w.header); err != nil {
		return err
	}
	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(sheet, col, col, float64(max(len(h)+2, minWidth))); err != nil {
			return fmt.Errorf("failed to size %s!%s: %w", sheet, col, err)
		}
	}
	return nil
}

// row writes values starting in column A; style 0 leaves cells unstyled
func (w *writer) row(sheet string, rowNum int, values []interface{}, style int) error {
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, start, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	if style == 0 {
		return nil
	}
	end, err := excelize.CoordinatesToCellName(len(values), rowNum)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(sheet, start, end, style); err != nil {
		return fmt.Errorf("failed to style %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
