// Package assign balances a cycle's tests across testers. Each tester
// owns a contiguous batch of tests and cross-checks the start of the next
// tester's batch.
package assign

import (
	"fmt"
	"sort"

	"github.com/uatkit/uat/internal/types"
)

// DefaultCrossCheckMax caps how many tests each tester cross-checks
const DefaultCrossCheckMax = 10

// TesterLoad summarizes one tester's share of a plan
type TesterLoad struct {
	Tester      string
	Primary     int
	CrossChecks int
}

// Plan is a complete assignment of a cycle's tests
type Plan struct {
	Assignments    []types.Assignment
	PerTester      int
	CrossCheckSize int
	Loads          []TesterLoad
}

// Build splits testIDs across testers. crossCheckMax <= 0 uses
// DefaultCrossCheckMax. Tests are sorted first so the plan is stable for
// a given set of IDs.
func Build(testIDs, testers []string, crossCheckMax int) (*Plan, error) {
	if len(testers) == 0 {
		return nil, fmt.Errorf("no testers given")
	}
	if len(testIDs) == 0 {
		return nil, fmt.Errorf("no tests to assign")
	}
	seen := make(map[string]bool, len(testers))
	for _, t := range testers {
		if t == "" {
			return nil, fmt.Errorf("tester name cannot be empty")
		}
		if seen[t] {
			return nil, fmt.Errorf("duplicate tester: %s", t)
		}
		seen[t] = true
	}
	if crossCheckMax <= 0 {
		crossCheckMax = DefaultCrossCheckMax
	}

	tests := append([]string(nil), testIDs...)
	sort.Strings(tests)

	n := len(testers)
	perTester := len(tests) / n
	remainder := len(tests) % n
	crossCount := min(crossCheckMax, perTester/4)
	if n == 1 {
		crossCount = 0
	}

	plan := &Plan{PerTester: perTester, CrossCheckSize: crossCount}
	starts := make([]int, n+1)
	for i := range testers {
		count := perTester
		if i < remainder {
			count++
		}
		starts[i+1] = starts[i] + count
	}

	for i, tester := range testers {
		for _, id := range tests[starts[i]:starts[i+1]] {
			plan.Assignments = append(plan.Assignments, types.Assignment{
				TestID: id, AssignedTo: tester, Type: types.AssignPrimary,
			})
		}
	}

	for i, tester := range testers {
		next := (i + 1) % n
		batch := tests[starts[next]:starts[next+1]]
		k := min(crossCount, len(batch))
		for _, id := range batch[:k] {
			plan.Assignments = append(plan.Assignments, types.Assignment{
				TestID: id, AssignedTo: tester, Type: types.AssignCrossCheck,
			})
		}
		plan.Loads = append(plan.Loads, TesterLoad{
			Tester:      tester,
			Primary:     starts[i+1] - starts[i],
			CrossChecks: k,
		})
	}
	return plan, nil
}
