// Package stats aggregates test execution results into the counts,
// percentages and Go/No-Go recommendation shown in reports.
package stats

import (
	"strconv"

	"github.com/uatkit/uat/internal/types"
)

// Tally counts test results for a cycle, story or tester.
// Passed+Failed+Blocked+NotRun always equals Total; Skipped is a subset
// of NotRun kept for execution percentages.
type Tally struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Blocked int `json:"blocked"`
	NotRun  int `json:"not_run"`
	Skipped int `json:"skipped"`
}

// Add counts one result
func (t *Tally) Add(status types.TestStatus) {
	t.Total++
	switch types.NormalizeTestStatus(string(status)) {
	case types.TestPass:
		t.Passed++
	case types.TestFail:
		t.Failed++
	case types.TestBlocked:
		t.Blocked++
	case types.TestSkipped:
		t.Skipped++
		t.NotRun++
	default:
		t.NotRun++
	}
}

// Merge adds another tally into t
func (t *Tally) Merge(o Tally) {
	t.Total += o.Total
	t.Passed += o.Passed
	t.Failed += o.Failed
	t.Blocked += o.Blocked
	t.NotRun += o.NotRun
	t.Skipped += o.Skipped
}

// FromTests tallies a slice of test cases
func FromTests(tests []*types.TestCase) Tally {
	var t Tally
	for _, tc := range tests {
		t.Add(tc.Status)
	}
	return t
}

// FromCycle builds a tally from the counts on a cycle summary row
func FromCycle(c *types.Cycle) Tally {
	return Tally{
		Total:   c.TotalTests,
		Passed:  c.Passed,
		Failed:  c.Failed,
		Blocked: c.Blocked,
		NotRun:  c.NotRun,
		Skipped: c.Skipped,
	}
}

// Executed counts tests that were run, skips included
func (t Tally) Executed() int {
	return t.Passed + t.Failed + t.Blocked + t.Skipped
}

// PassRate is the share of passes among tests with a definitive outcome
func (t Tally) PassRate() float64 {
	denom := t.Passed + t.Failed + t.Blocked
	if denom == 0 {
		return 0
	}
	return 100 * float64(t.Passed) / float64(denom)
}

// ExecutionPct is the rounded share of executed tests
func (t Tally) ExecutionPct() int {
	return Percent(t.Executed(), t.Total)
}

// Percent returns round(100*part/whole), or 0 for an empty whole
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}

// Recommendation is the Go/No-Go verdict derived from a tally
type Recommendation string

const (
	RecommendGo            Recommendation = "GO"
	RecommendConditionalGo Recommendation = "CONDITIONAL GO"
	RecommendNoGo          Recommendation = "NO-GO"
)

// Recommend derives a recommendation: any failure blocks launch, any
// blocked or unexecuted test makes it conditional.
func Recommend(t Tally) Recommendation {
	switch {
	case t.Failed > 0:
		return RecommendNoGo
	case t.Blocked > 0 || t.NotRun > 0 || t.Total == 0:
		return RecommendConditionalGo
	default:
		return RecommendGo
	}
}

// Rationale explains a recommendation in one sentence
func Rationale(t Tally) string {
	switch Recommend(t) {
	case RecommendNoGo:
		return pluralize(t.Failed, "test case failed", "test cases failed") +
			"; defects must be resolved and retested before launch."
	case RecommendConditionalGo:
		if t.Total == 0 {
			return "No test cases were executed in this cycle."
		}
		return "No failures, but " + pluralize(t.Blocked, "test is", "tests are") +
			" blocked and " + pluralize(t.NotRun, "test was", "tests were") + " not run."
	default:
		return "All test cases passed."
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
