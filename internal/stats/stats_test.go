package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/uatkit/uat/internal/types"
)

func TestTallyAdd(t *testing.T) {
	var tally Tally
	for _, s := range []types.TestStatus{"Pass", "Fail", "Blocked", "Skipped", "Not Run", "Not_Run", "", "bogus", "passed"} {
		tally.Add(s)
	}
	want := Tally{Total: 9, Passed: 2, Failed: 1, Blocked: 1, NotRun: 5, Skipped: 1}
	if diff := cmp.Diff(want, tally); diff != "" {
		t.Errorf("tally mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, tally.Total, tally.Passed+tally.Failed+tally.Blocked+tally.NotRun)
}

func TestFromTestsAndMerge(t *testing.T) {
	a := FromTests([]*types.TestCase{{Status: types.TestPass}, {Status: types.TestFail}})
	b := FromCycle(&types.Cycle{TotalTests: 3, Passed: 1, Blocked: 1, NotRun: 1, Skipped: 1})
	a.Merge(b)
	assert.Equal(t, Tally{Total: 5, Passed: 2, Failed: 1, Blocked: 1, NotRun: 1, Skipped: 1}, a)
}

func TestRates(t *testing.T) {
	tally := Tally{Total: 8, Passed: 3, Failed: 1, Blocked: 0, NotRun: 4, Skipped: 1}
	assert.Equal(t, 5, tally.Executed())
	assert.Equal(t, 63, tally.ExecutionPct())
	assert.InDelta(t, 75.0, tally.PassRate(), 0.001)

	assert.Zero(t, Tally{}.PassRate())
	assert.Zero(t, Tally{}.ExecutionPct())
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Zero(t, Percent(5, 0))
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name  string
		tally Tally
		want  Recommendation
		why   string
	}{
		{"all pass", Tally{Total: 2, Passed: 2}, RecommendGo, "All test cases passed."},
		{"failure", Tally{Total: 3, Passed: 1, Failed: 2}, RecommendNoGo,
			"2 test cases failed; defects must be resolved and retested before launch."},
		{"blocked", Tally{Total: 3, Passed: 2, Blocked: 1}, RecommendConditionalGo,
			"No failures, but 1 test is blocked and 0 tests were not run."},
		{"not run", Tally{Total: 3, Passed: 1, NotRun: 2}, RecommendConditionalGo,
			"No failures, but 0 tests are blocked and 2 tests were not run."},
		{"empty", Tally{}, RecommendConditionalGo, "No test cases were executed in this cycle."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Recommend(tt.tally))
			assert.Equal(t, tt.why, Rationale(tt.tally))
		})
	}
}
