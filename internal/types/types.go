package types

import (
	"errors"
	"strings"
)

// Sentinel errors returned by storage and workflow operations
var (
	ErrCycleNotFound    = errors.New("cycle not found")
	ErrGateItemNotFound = errors.New("gate item not found")
	ErrTestNotFound     = errors.New("test case not found")
	ErrGateNotReady     = errors.New("gate not ready for sign-off")
	ErrInvalidDecision  = errors.New("invalid decision")
	ErrInvalidStatus    = errors.New("invalid status")
)

// UATType categorizes what a cycle is validating
type UATType string

const (
	UATFeature        UATType = "feature"
	UATRuleValidation UATType = "rule_validation"
	UATRegression     UATType = "regression"
)

// IsValid checks if the UAT type value is valid
func (t UATType) IsValid() bool {
	switch t {
	case UATFeature, UATRuleValidation, UATRegression:
		return true
	}
	return false
}

// CycleStatus represents where a cycle is in its lifecycle
type CycleStatus string

const (
	CyclePlanning   CycleStatus = "planning"
	CycleValidation CycleStatus = "validation"
	CycleKickoff    CycleStatus = "kickoff"
	CycleTesting    CycleStatus = "testing"
	CycleReview     CycleStatus = "review"
	CycleRetesting  CycleStatus = "retesting"
	CycleDecision   CycleStatus = "decision"
	CycleComplete   CycleStatus = "complete"
	CycleCancelled  CycleStatus = "cancelled"
)

// AllCycleStatuses lists statuses in workflow order
var AllCycleStatuses = []CycleStatus{
	CyclePlanning, CycleValidation, CycleKickoff, CycleTesting, CycleReview,
	CycleRetesting, CycleDecision, CycleComplete, CycleCancelled,
}

// IsValid checks if the status value is valid
func (s CycleStatus) IsValid() bool {
	for _, st := range AllCycleStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further work happens in this status
func (s CycleStatus) IsTerminal() bool {
	return s == CycleComplete || s == CycleCancelled
}

// TestStatus is the execution result of a test case
type TestStatus string

const (
	TestPass    TestStatus = "Pass"
	TestFail    TestStatus = "Fail"
	TestBlocked TestStatus = "Blocked"
	TestSkipped TestStatus = "Skipped"
	TestNotRun  TestStatus = "Not Run"
)

// IsValid checks if the test status value is valid
func (s TestStatus) IsValid() bool {
	switch s {
	case TestPass, TestFail, TestBlocked, TestSkipped, TestNotRun:
		return true
	}
	return false
}

// NormalizeTestStatus maps tracker spellings onto canonical statuses.
// "Not_Run", "not run" and the empty string all become TestNotRun; an
// unrecognized value is returned unchanged (and fails IsValid).
func NormalizeTestStatus(raw string) TestStatus {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(strings.ReplaceAll(s, "_", " ")) {
	case "", "not run":
		return TestNotRun
	case "pass", "passed":
		return TestPass
	case "fail", "failed":
		return TestFail
	case "blocked":
		return TestBlocked
	case "skipped", "skip":
		return TestSkipped
	}
	return TestStatus(s)
}

// AssignmentType describes why a tester holds a test
type AssignmentType string

const (
	AssignPrimary    AssignmentType = "primary"
	AssignSecondary  AssignmentType = "secondary"
	AssignCrossCheck AssignmentType = "cross_check"
)

// IsValid checks if the assignment type value is valid
func (a AssignmentType) IsValid() bool {
	switch a {
	case AssignPrimary, AssignSecondary, AssignCrossCheck:
		return true
	}
	return false
}

// Decision is the Go/No-Go outcome recorded for a cycle
type Decision string

const (
	DecisionGo            Decision = "go"
	DecisionConditionalGo Decision = "conditional_go"
	DecisionNoGo          Decision = "no_go"
)

// IsValid checks if the decision value is valid
func (d Decision) IsValid() bool {
	switch d {
	case DecisionGo, DecisionConditionalGo, DecisionNoGo:
		return true
	}
	return false
}

// Display returns the wording used when a decision is recorded
func (d Decision) Display() string {
	switch d {
	case DecisionGo:
		return "GO - Approved for launch"
	case DecisionConditionalGo:
		return "CONDITIONAL GO - Approved with conditions"
	case DecisionNoGo:
		return "NO-GO - Launch blocked"
	}
	return string(d)
}

// DevStatus tracks developer follow-up on a failed test's defect
type DevStatus string

const (
	DevPending       DevStatus = "pending"
	DevInvestigating DevStatus = "investigating"
	DevFixed         DevStatus = "fixed"
	DevWontFix       DevStatus = "wont_fix"
	DevNotABug       DevStatus = "not_a_bug"
)

// IsValid checks if the dev status value is valid
func (d DevStatus) IsValid() bool {
	switch d {
	case DevPending, DevInvestigating, DevFixed, DevWontFix, DevNotABug:
		return true
	}
	return false
}

// GateCategory groups pre-UAT gate checklist items
type GateCategory string

const (
	GateFeatureDeployment GateCategory = "feature_deployment"
	GateCriticalPath      GateCategory = "critical_path"
	GateEnvironment       GateCategory = "environment"
	GateBlockerCheck      GateCategory = "blocker_check"
	GateSignOff           GateCategory = "sign_off"
)

// IsValid checks if the gate category value is valid
func (c GateCategory) IsValid() bool {
	switch c {
	case GateFeatureDeployment, GateCriticalPath, GateEnvironment, GateBlockerCheck, GateSignOff:
		return true
	}
	return false
}

// Title renders a category as a checklist heading ("FEATURE DEPLOYMENT")
func (c GateCategory) Title() string {
	return strings.ToUpper(strings.ReplaceAll(string(c), "_", " "))
}
