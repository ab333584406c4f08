package assign

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uatkit/uat/internal/types"
)

func testIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		// reverse order to prove Build sorts
		ids[i] = fmt.Sprintf("NCCN-%03d", n-i)
	}
	return ids
}

func TestBuildDistribution(t *testing.T) {
	testers := []string{"kim", "lily", "sarah", "maria"}
	plan, err := Build(testIDs(42), testers, 0)
	require.NoError(t, err)

	assert.Equal(t, 10, plan.PerTester)
	assert.Equal(t, 2, plan.CrossCheckSize)
	assert.Equal(t, []TesterLoad{
		{"kim", 11, 2},
		{"lily", 11, 2},
		{"sarah", 10, 2},
		{"maria", 10, 2},
	}, plan.Loads)

	primary := make(map[string]string)
	for _, a := range plan.Assignments {
		if a.Type == types.AssignPrimary {
			_, dup := primary[a.TestID]
			require.False(t, dup, "test %s has two primaries", a.TestID)
			primary[a.TestID] = a.AssignedTo
		}
	}
	assert.Len(t, primary, 42)
	assert.Equal(t, "kim", primary["NCCN-001"])
	assert.Equal(t, "kim", primary["NCCN-011"])
	assert.Equal(t, "lily", primary["NCCN-012"])
	assert.Equal(t, "maria", primary["NCCN-042"])

	for _, a := range plan.Assignments {
		if a.Type == types.AssignCrossCheck {
			assert.NotEqual(t, primary[a.TestID], a.AssignedTo, "tester cross-checks own test %s", a.TestID)
		}
	}
}

func TestBuildCrossChecksWrap(t *testing.T) {
	plan, err := Build(testIDs(200), []string{"a", "b"}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCrossCheckMax, plan.CrossCheckSize)

	var bCross []string
	for _, a := range plan.Assignments {
		if a.Type == types.AssignCrossCheck && a.AssignedTo == "b" {
			bCross = append(bCross, a.TestID)
		}
	}
	// b wraps around to the start of a's batch
	require.Len(t, bCross, 10)
	assert.Equal(t, "NCCN-001", bCross[0])
	assert.Equal(t, "NCCN-010", bCross[9])

	plan, err = Build(testIDs(200), []string{"a", "b"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.CrossCheckSize)
}

func TestBuildSmallCycles(t *testing.T) {
	plan, err := Build(testIDs(3), []string{"a", "b", "c", "d"}, 0)
	require.NoError(t, err)
	assert.Len(t, plan.Assignments, 3)
	assert.Zero(t, plan.CrossCheckSize)
	assert.Equal(t, 0, plan.Loads[3].Primary)

	plan, err = Build(testIDs(40), []string{"solo"}, 0)
	require.NoError(t, err)
	assert.Len(t, plan.Assignments, 40)
	assert.Zero(t, plan.Loads[0].CrossChecks)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(testIDs(5), nil, 0)
	assert.Error(t, err)
	_, err = Build(nil, []string{"a"}, 0)
	assert.Error(t, err)
	_, err = Build(testIDs(5), []string{"a", "a"}, 0)
	assert.ErrorContains(t, err, "duplicate tester")
	_, err = Build(testIDs(5), []string{"a", ""}, 0)
	assert.Error(t, err)
}
