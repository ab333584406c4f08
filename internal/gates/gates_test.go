package gates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uatkit/uat/internal/types"
)

func TestDefaultItems(t *testing.T) {
	tests := []struct {
		uatType   types.UATType
		wantCount int
		signOff   string
	}{
		{types.UATRuleValidation, 7, "Clinical PM approval for test start"},
		{types.UATFeature, 6, "Product Owner approval for test start"},
		{types.UATRegression, 5, "Release Manager approval"},
	}

	for _, tt := range tests {
		t.Run(string(tt.uatType), func(t *testing.T) {
			items := DefaultItems(tt.uatType)
			require.Len(t, items, tt.wantCount)

			last := items[len(items)-1]
			assert.Equal(t, types.GateSignOff, last.Category)
			assert.Equal(t, tt.signOff, last.Text)

			for _, item := range items {
				assert.True(t, item.Category.IsValid(), "category %q", item.Category)
				assert.True(t, item.Required)
				assert.GreaterOrEqual(t, item.Sequence, 1)
			}
		})
	}
}

func TestDefaultItemsReturnsCopy(t *testing.T) {
	items := DefaultItems(types.UATFeature)
	items[0].Text = "changed"
	assert.Equal(t, "Feature deployed to QA environment", DefaultItems(types.UATFeature)[0].Text)
}

func TestEvaluate(t *testing.T) {
	items := []*types.GateItem{
		{Required: true, Complete: true},
		{Required: true},
		{Required: true},
		{Required: false},
	}

	st := Evaluate(items)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 2, st.RequiredPending)
	assert.False(t, st.ReadyForSignoff)

	err := CheckReady(st)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrGateNotReady))
	assert.Contains(t, err.Error(), "2 required item(s) still pending")

	items[1].Complete = true
	items[2].Complete = true
	st = Evaluate(items)
	assert.True(t, st.ReadyForSignoff, "optional items do not block sign-off")
	assert.NoError(t, CheckReady(st))
}

func TestEvaluateEmpty(t *testing.T) {
	st := Evaluate(nil)
	assert.Equal(t, types.GateStatus{ReadyForSignoff: true}, st)
}

func TestIcon(t *testing.T) {
	assert.Equal(t, "✓", Icon(&types.GateItem{Complete: true, Required: true}))
	assert.Equal(t, "*", Icon(&types.GateItem{Required: true}))
	assert.Equal(t, "○", Icon(&types.GateItem{}))
}

func TestGroupByCategory(t *testing.T) {
	items := []*types.GateItem{
		{ItemID: 1, Category: types.GateCriticalPath},
		{ItemID: 2, Category: types.GateSignOff},
		{ItemID: 3, Category: types.GateCriticalPath},
	}
	groups := GroupByCategory(items)
	require.Len(t, groups[types.GateCriticalPath], 2)
	assert.Equal(t, int64(3), groups[types.GateCriticalPath][1].ItemID)
	assert.Len(t, groups[types.GateSignOff], 1)
}
