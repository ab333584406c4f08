// Package lifecycle describes how a UAT cycle moves through its phases.
//
// Phase flow:
// - planning → validation → kickoff → testing → review
// - review → retesting → decision (retest loop is optional)
// - decision → complete (a "go" decision completes the cycle)
// - any phase → cancelled
package lifecycle

import (
	"fmt"
	"time"

	"github.com/uatkit/uat/internal/types"
)

// phaseDateColumns maps a status to the uat_cycles column stamped when
// the cycle enters it
var phaseDateColumns = map[types.CycleStatus]string{
	types.CycleValidation: "validation_start",
	types.CycleKickoff:    "kickoff_date",
	types.CycleTesting:    "testing_start",
	types.CycleReview:     "review_date",
	types.CycleRetesting:  "retest_start",
	types.CycleDecision:   "go_nogo_date",
}

// PhaseDateColumn returns the date column for a status, if it has one
func PhaseDateColumn(status types.CycleStatus) (string, bool) {
	col, ok := phaseDateColumns[status]
	return col, ok
}

// StatusUpdates builds the sparse column updates for entering a status.
// phaseDate defaults to today's date.
func StatusUpdates(status types.CycleStatus, phaseDate string, now time.Time) (map[string]interface{}, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidStatus, status)
	}
	updates := map[string]interface{}{"status": string(status)}
	if col, ok := PhaseDateColumn(status); ok {
		if phaseDate == "" {
			phaseDate = now.Format(types.DateLayout)
		} else if _, err := time.Parse(types.DateLayout, phaseDate); err != nil {
			return nil, fmt.Errorf("phase date must be YYYY-MM-DD (got %q)", phaseDate)
		}
		updates[col] = phaseDate
	}
	return updates, nil
}

// DecisionStatus returns the status a decision moves the cycle into.
// Only "go" closes the cycle; other decisions leave the status alone.
func DecisionStatus(d types.Decision) (types.CycleStatus, bool) {
	if d == types.DecisionGo {
		return types.CycleComplete, true
	}
	return "", false
}

// Badge is the compact status marker used in cycle listings
func Badge(status types.CycleStatus) string {
	switch status {
	case types.CyclePlanning:
		return "[PLAN]"
	case types.CycleValidation:
		return "[VAL ]"
	case types.CycleKickoff:
		return "[KICK]"
	case types.CycleTesting:
		return "[TEST]"
	case types.CycleReview:
		return "[REV ]"
	case types.CycleRetesting:
		return "[RTST]"
	case types.CycleDecision:
		return "[DEC ]"
	case types.CycleComplete:
		return "[DONE]"
	case types.CycleCancelled:
		return "[CANC]"
	}
	return "[????]"
}

// DevBadge is the marker used for a failed test's developer status
func DevBadge(status types.DevStatus) string {
	switch status {
	case types.DevPending, "":
		return "[---]"
	case types.DevInvestigating:
		return "[INV]"
	case types.DevFixed:
		return "[FIX]"
	case types.DevWontFix:
		return "[WNT]"
	case types.DevNotABug:
		return "[NAB]"
	}
	return "[???]"
}

// DecisionBanner is the short decision wording used on dashboards
func DecisionBanner(d types.Decision) string {
	switch d {
	case types.DecisionGo:
		return "GO - Approved"
	case types.DecisionConditionalGo:
		return "CONDITIONAL GO"
	case types.DecisionNoGo:
		return "NO-GO - Blocked"
	}
	return string(d)
}
