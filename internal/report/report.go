// Package report renders the plain-text views of UAT cycles: the cycle
// summary, the dashboard, multi-cycle progress, the gate checklist, the
// failing-test queue and NCCN rule coverage.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/gates"
	"github.com/uatkit/uat/internal/lifecycle"
	"github.com/uatkit/uat/internal/stats"
	"github.com/uatkit/uat/internal/types"
)

const (
	rule     = "=================================================="
	wideRule = "================================================================"

	progressWidth = 40
	testerWidth   = 20
	retestPreview = 5
)

var (
	sectionBar = strings.Repeat("─", 50)
	changeBar  = strings.Repeat("─", 40)
)

// Store is the read side of storage the reports need
type Store interface {
	GetCycle(ctx context.Context, id string) (*types.Cycle, error)
	ListCycles(ctx context.Context, filter types.CycleFilter) ([]*types.Cycle, error)
	ActiveCycles(ctx context.Context, programPrefix string) ([]*types.Cycle, error)
	GetGateItems(ctx context.Context, cycleID string) ([]*types.GateItem, error)
	GetGateStatus(ctx context.Context, cycleID string) (types.GateStatus, error)
	GetTesterProgress(ctx context.Context, cycleID string) ([]*types.TesterProgress, error)
	GetRetestQueue(ctx context.Context, cycleID string) ([]*types.RetestItem, error)
	GetRuleCoverage(ctx context.Context, cycleID string) ([]*types.RuleCoverage, error)
}

// Reporter renders text reports from storage
type Reporter struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates a reporter. A nil logger disables logging.
func New(store Store, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{store: store, logger: logger, now: time.Now}
}

// CycleSummary is the compact status of one cycle
func (r *Reporter) CycleSummary(ctx context.Context, cycleID string) (string, error) {
	cycle, err := r.store.GetCycle(ctx, cycleID)
	if err != nil {
		return "", err
	}
	gate, err := r.store.GetGateStatus(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get gate status: %w", err)
	}
	progress, err := r.store.GetTesterProgress(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get tester progress: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nUAT Cycle Summary\n%s\n\n", rule)
	fmt.Fprintf(&b, "Cycle ID: %s\n", cycle.CycleID)
	fmt.Fprintf(&b, "Name: %s\n", cycle.Name)
	fmt.Fprintf(&b, "Type: %s\n", cycle.UATType)
	fmt.Fprintf(&b, "Status: %s\n", strings.ToUpper(string(cycle.Status)))
	fmt.Fprintf(&b, "Program: %s [%s]\n", orNA(cycle.ProgramName), orNA(cycle.ProgramPrefix))

	if days, ok := cycle.DaysToLaunch(r.now()); ok {
		switch {
		case days > 0:
			fmt.Fprintf(&b, "Target Launch: %s (%d days away)\n", cycle.TargetLaunchDate, days)
		case days == 0:
			fmt.Fprintf(&b, "Target Launch: %s (TODAY)\n", cycle.TargetLaunchDate)
		default:
			fmt.Fprintf(&b, "Target Launch: %s (%d days OVERDUE)\n", cycle.TargetLaunchDate, -days)
		}
	}
	if cycle.ClinicalPM != "" {
		fmt.Fprintf(&b, "Clinical PM: %s\n", cycle.ClinicalPM)
	}

	t := stats.FromCycle(cycle)
	if t.Total > 0 {
		fmt.Fprintf(&b, "\nTest Progress\n%s\n", sectionBar)
		fmt.Fprintf(&b, "Total Tests: %d\n", t.Total)
		fmt.Fprintf(&b, "  Passed:  %4d (%d%%)\n", t.Passed, stats.Percent(t.Passed, t.Total))
		fmt.Fprintf(&b, "  Failed:  %4d (%d%%)\n", t.Failed, stats.Percent(t.Failed, t.Total))
		fmt.Fprintf(&b, "  Blocked: %4d (%d%%)\n", t.Blocked, stats.Percent(t.Blocked, t.Total))
		fmt.Fprintf(&b, "  Not Run: %4d (%d%%)\n", t.NotRun, stats.Percent(t.NotRun, t.Total))
		fmt.Fprintf(&b, "\nExecution: %d%%\nPass Rate: %.1f%%\n", t.ExecutionPct(), t.PassRate())
	}

	fmt.Fprintf(&b, "\nPre-UAT Gate\n%s\n", sectionBar)
	fmt.Fprintf(&b, "Items Complete: %d/%d\n", gate.Completed, gate.Total)
	fmt.Fprintf(&b, "Required Pending: %d\n", gate.RequiredPending)
	fmt.Fprintf(&b, "Gate Passed: %s\n", yesNo(cycle.GatePassed))

	if len(progress) > 0 {
		fmt.Fprintf(&b, "\nTester Progress\n%s\n", sectionBar)
		for _, tp := range progress {
			fmt.Fprintf(&b, "  %s: %d%% (%d/%d)\n", testerName(tp.AssignedTo), tp.CompletionPct(), tp.Passed, tp.TotalTests)
		}
	}

	if cycle.Decision != "" {
		fmt.Fprintf(&b, "\nGo/No-Go Decision: %s\n", strings.ToUpper(string(cycle.Decision)))
		fmt.Fprintf(&b, "  Signed by: %s\n", orNA(cycle.DecisionSignedBy))
	}
	return b.String(), nil
}

// Dashboard is the full status board for one cycle
func (r *Reporter) Dashboard(ctx context.Context, cycleID string) (string, error) {
	cycle, err := r.store.GetCycle(ctx, cycleID)
	if err != nil {
		return "", err
	}
	gate, err := r.store.GetGateStatus(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get gate status: %w", err)
	}
	progress, err := r.store.GetTesterProgress(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get tester progress: %w", err)
	}
	queue, err := r.store.GetRetestQueue(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get retest queue: %w", err)
	}
	r.logger.Debug("rendering dashboard",
		zap.String("cycle_id", cycleID),
		zap.Int("testers", len(progress)),
		zap.Int("retest", len(queue)))

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n  UAT CYCLE DASHBOARD\n%s\n", wideRule, wideRule)
	fmt.Fprintf(&b, "  %s\n", truncate(cycle.Name, 55))
	fmt.Fprintf(&b, "  %s | %s | Status: %s\n", orNA(cycle.ProgramPrefix), cycle.UATType, strings.ToUpper(string(cycle.Status)))
	fmt.Fprintf(&b, "%s\n", wideRule)

	if days, ok := cycle.DaysToLaunch(r.now()); ok {
		b.WriteString(LaunchWarning(cycle.TargetLaunchDate, days))
		b.WriteString("\n")
	}

	t := stats.FromCycle(cycle)
	fmt.Fprintf(&b, "\nTEST PROGRESS\n%s\nTotal Tests: %d\n", sectionBar, t.Total)
	if t.Total > 0 {
		fmt.Fprintf(&b, "[%s]\n\n", ProgressBar(t, progressWidth))
		fmt.Fprintf(&b, "  Passed:   %4d (%3d%%) #\n", t.Passed, stats.Percent(t.Passed, t.Total))
		fmt.Fprintf(&b, "  Failed:   %4d (%3d%%) X\n", t.Failed, stats.Percent(t.Failed, t.Total))
		fmt.Fprintf(&b, "  Blocked:  %4d (%3d%%) !\n", t.Blocked, stats.Percent(t.Blocked, t.Total))
		fmt.Fprintf(&b, "  Not Run:  %4d (%3d%%) .\n", t.NotRun, stats.Percent(t.NotRun, t.Total))
		fmt.Fprintf(&b, "\nExecution: %d%% | Pass Rate: %.1f%%\n", t.ExecutionPct(), t.PassRate())
	}

	if len(progress) > 0 {
		fmt.Fprintf(&b, "\nTESTER PROGRESS\n%s\n", sectionBar)
		for _, tp := range progress {
			pct := tp.CompletionPct()
			fmt.Fprintf(&b, "  %-20s [%s] %3d%%\n", truncate(testerName(tp.AssignedTo), testerWidth), Bar(pct, testerWidth), pct)
			fmt.Fprintf(&b, "    %d pass / %d fail / %d pending\n", tp.Passed, tp.Failed, tp.NotRun)
		}
	}

	if len(queue) > 0 {
		fmt.Fprintf(&b, "\nRETEST QUEUE (%d tests)\n%s\n", len(queue), sectionBar)
		for _, item := range queue[:min(retestPreview, len(queue))] {
			fmt.Fprintf(&b, "  %s %s\n", lifecycle.DevBadge(item.DevStatus), item.TestID)
			if item.DefectID != "" {
				fmt.Fprintf(&b, "         Defect: %s\n", item.DefectID)
			}
		}
		if len(queue) > retestPreview {
			fmt.Fprintf(&b, "  ... and %d more\n", len(queue)-retestPreview)
		}
	}

	fmt.Fprintf(&b, "\nPRE-UAT GATE\n%s\n", sectionBar)
	fmt.Fprintf(&b, "  Items: %d/%d complete\n", gate.Completed, gate.Total)
	fmt.Fprintf(&b, "  Required Pending: %d\n", gate.RequiredPending)
	fmt.Fprintf(&b, "  Gate Passed: %s\n", strings.ToUpper(yesNo(cycle.GatePassed)))

	if cycle.Decision != "" {
		fmt.Fprintf(&b, "\nGO/NO-GO DECISION\n%s\n", sectionBar)
		fmt.Fprintf(&b, "  Decision: %s\n", lifecycle.DecisionBanner(cycle.Decision))
		fmt.Fprintf(&b, "  Signed by: %s\n", orNA(cycle.DecisionSignedBy))
		fmt.Fprintf(&b, "  Date: %s\n", orNA(cycle.DecisionDate))
		if cycle.DecisionNotes != "" {
			fmt.Fprintf(&b, "  Notes: %s\n", truncate(cycle.DecisionNotes, 60))
		}
	}
	return b.String(), nil
}

// LaunchWarning escalates as the launch date approaches
func LaunchWarning(target string, days int) string {
	switch {
	case days > 7:
		return fmt.Sprintf("Target Launch: %s (%d days)", target, days)
	case days > 0:
		return fmt.Sprintf("!!! %d DAYS TO LAUNCH !!!", days)
	case days == 0:
		return "!!! TARGET LAUNCH DATE IS TODAY !!!"
	}
	return fmt.Sprintf("*** %d DAYS PAST TARGET LAUNCH ***", -days)
}

// ProgressBar draws a tally as #, X, ! and . segments. Segments are
// floored and the remainder is padded with not-run dots.
func ProgressBar(t stats.Tally, width int) string {
	if t.Total == 0 {
		return strings.Repeat(".", width)
	}
	pass := width * t.Passed / t.Total
	fail := width * t.Failed / t.Total
	blocked := width * t.Blocked / t.Total
	rest := width - pass - fail - blocked
	return strings.Repeat("#", pass) + strings.Repeat("X", fail) +
		strings.Repeat("!", blocked) + strings.Repeat(".", rest)
}

// Bar draws a completion percentage
func Bar(pct, width int) string {
	pct = max(0, min(100, pct))
	filled := width * pct / 100
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

// ActiveCycles lists cycles that are neither complete nor cancelled
func (r *Reporter) ActiveCycles(ctx context.Context, programPrefix string) (string, error) {
	cycles, err := r.store.ActiveCycles(ctx, programPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to list active cycles: %w", err)
	}
	if len(cycles) == 0 {
		return "No active UAT cycles found.\n", nil
	}

	now := r.now()
	var b strings.Builder
	fmt.Fprintf(&b, "Active UAT Cycles (%d)\n%s\n\n", len(cycles), rule)
	for _, c := range cycles {
		fmt.Fprintf(&b, "%s %s\n", lifecycle.Badge(c.Status), c.CycleID)
		fmt.Fprintf(&b, "    %s\n", c.Name)
		fmt.Fprintf(&b, "    Type: %s", c.UATType)
		if c.ProgramPrefix != "" {
			fmt.Fprintf(&b, " | Program: %s", c.ProgramPrefix)
		}
		if days, ok := c.DaysToLaunch(now); ok {
			fmt.Fprintf(&b, " | %dd to launch", days)
		}
		b.WriteString("\n")
		if c.TotalTests > 0 {
			t := stats.FromCycle(c)
			fmt.Fprintf(&b, "    Progress: %d%% (%d/%d)\n", t.ExecutionPct(), t.Passed, t.Total)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ProgressReport summarizes every cycle matching the filter
func (r *Reporter) ProgressReport(ctx context.Context, filter types.CycleFilter) (string, error) {
	cycles, err := r.store.ListCycles(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("failed to list cycles: %w", err)
	}
	if len(cycles) == 0 {
		msg := "No UAT cycles found"
		if filter.ProgramPrefix != "" {
			msg += " for program " + filter.ProgramPrefix
		}
		if filter.Status != "" {
			msg += " with status " + string(filter.Status)
		}
		return msg + "\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nUAT PROGRESS REPORT\n%s\n", wideRule)
	if filter.ProgramPrefix != "" {
		fmt.Fprintf(&b, "Program: %s\n", filter.ProgramPrefix)
	}
	if filter.Status != "" {
		fmt.Fprintf(&b, "Status: %s\n", filter.Status)
	}
	fmt.Fprintf(&b, "Cycles: %d\n\n", len(cycles))

	var overall stats.Tally
	for _, c := range cycles {
		overall.Merge(stats.FromCycle(c))
	}
	if overall.Total > 0 {
		fmt.Fprintf(&b, "Total Tests: %d\n", overall.Total)
		fmt.Fprintf(&b, "Overall Pass Rate: %.1f%%\n\n", overall.PassRate())
	}

	now := r.now()
	for _, c := range cycles {
		fmt.Fprintf(&b, "%s %s\n", lifecycle.Badge(c.Status), c.CycleID)
		fmt.Fprintf(&b, "  %s\n", c.Name)
		if c.TotalTests > 0 {
			t := stats.FromCycle(c)
			fmt.Fprintf(&b, "  Progress: %d%% (%d/%d)\n", t.ExecutionPct(), t.Passed, t.Total)
		}
		if days, ok := c.DaysToLaunch(now); ok {
			if days >= 0 {
				fmt.Fprintf(&b, "  Launch: %d days\n", days)
			} else {
				fmt.Fprintf(&b, "  Launch: %d days OVERDUE\n", -days)
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GateChecklist renders the pre-UAT checklist grouped by category
func (r *Reporter) GateChecklist(ctx context.Context, cycleID string) (string, error) {
	items, err := r.store.GetGateItems(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get gate items: %w", err)
	}
	if len(items) == 0 {
		return fmt.Sprintf("No gate items found for cycle %s\n", cycleID), nil
	}
	st := gates.Evaluate(items)

	var b strings.Builder
	fmt.Fprintf(&b, "Pre-UAT Gate Checklist\n%s\n", rule)
	fmt.Fprintf(&b, "Status: %d/%d complete\n", st.Completed, st.Total)
	fmt.Fprintf(&b, "Ready for sign-off: %s\n", yesNo(st.ReadyForSignoff))

	groups := gates.GroupByCategory(items)
	for _, cat := range gates.CategoryOrder {
		group := groups[cat]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", cat.Title())
		for _, item := range group {
			fmt.Fprintf(&b, "  %d. [%s] %s", item.ItemID, gates.Icon(item), item.Text)
			if item.Complete && item.CompletedBy != "" {
				fmt.Fprintf(&b, " (by %s)", item.CompletedBy)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\nLegend: ✓ = complete, * = required pending, ○ = optional pending\n")
	return b.String(), nil
}

// FailingTests lists the retest queue in full
func (r *Reporter) FailingTests(ctx context.Context, cycleID string) (string, error) {
	queue, err := r.store.GetRetestQueue(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get retest queue: %w", err)
	}
	if len(queue) == 0 {
		return fmt.Sprintf("No failing tests in cycle %s\n", cycleID), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Failing Tests - Retest Queue (%d)\n%s\n\n", len(queue), rule)
	for _, item := range queue {
		fmt.Fprintf(&b, "[%s] %s\n", item.TestID, item.InitialStatus)
		title := item.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "  %s\n", truncate(title, 60))
		if item.InitialTester != "" {
			fmt.Fprintf(&b, "  Tester: %s\n", item.InitialTester)
		}
		if item.DefectID != "" {
			fmt.Fprintf(&b, "  Defect: %s\n", item.DefectID)
		}
		if item.DevStatus != "" {
			fmt.Fprintf(&b, "  Dev Status: %s %s\n", lifecycle.DevBadge(item.DevStatus), item.DevStatus)
		}
		if item.RetestStatus != "" {
			fmt.Fprintf(&b, "  Retest: %s\n", item.RetestStatus)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// RuleCoverage shows profile coverage per NCCN rule, grouped by change
func (r *Reporter) RuleCoverage(ctx context.Context, cycleID string) (string, error) {
	rows, err := r.store.GetRuleCoverage(ctx, cycleID)
	if err != nil {
		return "", fmt.Errorf("failed to get rule coverage: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No NCCN rule coverage data for cycle %s\n", cycleID), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\nNCCN RULE COVERAGE REPORT\n%s\nCycle: %s\n%s\n", wideRule, cycleID, wideRule)
	current := "\x00"
	for _, row := range rows {
		if row.ChangeID != current {
			current = row.ChangeID
			fmt.Fprintf(&b, "\nChange: %s (%s)\n%s\n", orNA(row.ChangeID), orDefault(row.ChangeType, "Unknown"), changeBar)
		}
		fmt.Fprintf(&b, "  %s [%s]: %d/%d (%d%%)\n", row.TargetRule, orDefault(row.Platform, "?"),
			row.Passed, row.TotalProfiles, stats.Percent(row.Passed, row.TotalProfiles))
		if row.PositiveTests+row.NegativeTests+row.DeprecTests > 0 {
			fmt.Fprintf(&b, "    POS: %d | NEG: %d | DEP: %d\n", row.PositiveTests, row.NegativeTests, row.DeprecTests)
		}
		if row.Failed > 0 {
			fmt.Fprintf(&b, "    ** %d FAILED **\n", row.Failed)
		}
	}
	return b.String(), nil
}

func testerName(s string) string {
	if s == "" {
		return "Unassigned"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
