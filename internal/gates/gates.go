// Package gates holds the pre-UAT gate checklists. A cycle cannot start
// testing until every required item is complete and the gate is signed off.
package gates

import (
	"fmt"

	"github.com/uatkit/uat/internal/types"
)

// Template is one default checklist item created with a new cycle
type Template struct {
	Category types.GateCategory
	Sequence int
	Text     string
	Required bool
}

// CategoryOrder is the order categories appear on a rendered checklist
var CategoryOrder = []types.GateCategory{
	types.GateFeatureDeployment,
	types.GateCriticalPath,
	types.GateEnvironment,
	types.GateBlockerCheck,
	types.GateSignOff,
}

var ruleValidationItems = []Template{
	{types.GateFeatureDeployment, 1, "NCCN rules deployed to QA environment", true},
	{types.GateFeatureDeployment, 2, "All rule IDs verified in system", true},
	{types.GateCriticalPath, 1, "Patient registration flow tested", true},
	{types.GateCriticalPath, 2, "Test profiles created and validated", true},
	{types.GateEnvironment, 1, "QA environment stable and accessible", true},
	{types.GateBlockerCheck, 1, "No critical defects in backlog", true},
	{types.GateSignOff, 1, "Clinical PM approval for test start", true},
}

var featureItems = []Template{
	{types.GateFeatureDeployment, 1, "Feature deployed to QA environment", true},
	{types.GateFeatureDeployment, 2, "Feature flags configured correctly", true},
	{types.GateCriticalPath, 1, "Core happy path verified", true},
	{types.GateEnvironment, 1, "QA environment stable and accessible", true},
	{types.GateBlockerCheck, 1, "No critical defects blocking feature", true},
	{types.GateSignOff, 1, "Product Owner approval for test start", true},
}

var regressionItems = []Template{
	{types.GateFeatureDeployment, 1, "Release candidate deployed to QA", true},
	{types.GateCriticalPath, 1, "Smoke tests passing", true},
	{types.GateEnvironment, 1, "QA environment mirrors production", true},
	{types.GateBlockerCheck, 1, "No P0/P1 defects open", true},
	{types.GateSignOff, 1, "Release Manager approval", true},
}

// DefaultItems returns the checklist created for a new cycle of the given type.
// The returned slice is a copy and safe to modify.
func DefaultItems(uatType types.UATType) []Template {
	var src []Template
	switch uatType {
	case types.UATRuleValidation:
		src = ruleValidationItems
	case types.UATFeature:
		src = featureItems
	default:
		src = regressionItems
	}
	out := make([]Template, len(src))
	copy(out, src)
	return out
}

// Evaluate summarizes checklist completion
func Evaluate(items []*types.GateItem) types.GateStatus {
	var st types.GateStatus
	for _, item := range items {
		st.Total++
		if item.Complete {
			st.Completed++
		} else if item.Required {
			st.RequiredPending++
		}
	}
	st.ReadyForSignoff = st.RequiredPending == 0
	return st
}

// CheckReady returns ErrGateNotReady when required items are still open
func CheckReady(st types.GateStatus) error {
	if st.ReadyForSignoff {
		return nil
	}
	return fmt.Errorf("%w: %d required item(s) still pending", types.ErrGateNotReady, st.RequiredPending)
}

// Icon is the checklist marker for an item
func Icon(item *types.GateItem) string {
	switch {
	case item.Complete:
		return "✓"
	case item.Required:
		return "*"
	}
	return "○"
}

// GroupByCategory buckets items by category, preserving their order
func GroupByCategory(items []*types.GateItem) map[types.GateCategory][]*types.GateItem {
	groups := make(map[types.GateCategory][]*types.GateItem)
	for _, item := range items {
		groups[item.Category] = append(groups[item.Category], item)
	}
	return groups
}
