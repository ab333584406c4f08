package types

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// TestEnumIsValid checks every enum accepts its constants and rejects junk
func TestEnumIsValid(t *testing.T) {
	tests := []struct {
		name     string
		valid    bool
		expected bool
	}{
		{"uat type feature", UATFeature.IsValid(), true},
		{"uat type rule_validation", UATRuleValidation.IsValid(), true},
		{"uat type regression", UATRegression.IsValid(), true},
		{"uat type invalid", UATType("smoke").IsValid(), false},
		{"cycle status decision", CycleDecision.IsValid(), true},
		{"cycle status empty", CycleStatus("").IsValid(), false},
		{"test status not run", TestNotRun.IsValid(), true},
		{"test status underscore form", TestStatus("Not_Run").IsValid(), false},
		{"assignment cross_check", AssignCrossCheck.IsValid(), true},
		{"assignment invalid", AssignmentType("backup").IsValid(), false},
		{"decision conditional_go", DecisionConditionalGo.IsValid(), true},
		{"decision invalid", Decision("maybe").IsValid(), false},
		{"dev status not_a_bug", DevNotABug.IsValid(), true},
		{"dev status invalid", DevStatus("done").IsValid(), false},
		{"gate category sign_off", GateSignOff.IsValid(), true},
		{"gate category invalid", GateCategory("misc").IsValid(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.valid != tt.expected {
				t.Errorf("IsValid() = %v, want %v", tt.valid, tt.expected)
			}
		})
	}
}

func TestAllCycleStatusesValid(t *testing.T) {
	for _, s := range AllCycleStatuses {
		if !s.IsValid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if !CycleComplete.IsTerminal() || !CycleCancelled.IsTerminal() {
		t.Error("complete and cancelled should be terminal")
	}
	if CycleTesting.IsTerminal() {
		t.Error("testing should not be terminal")
	}
}

func TestNormalizeTestStatus(t *testing.T) {
	tests := map[string]TestStatus{
		"":          TestNotRun,
		"Not_Run":   TestNotRun,
		"not run":   TestNotRun,
		" Pass ":    TestPass,
		"FAILED":    TestFail,
		"blocked":   TestBlocked,
		"skip":      TestSkipped,
		"Exploding": TestStatus("Exploding"),
	}
	for raw, want := range tests {
		if got := NormalizeTestStatus(raw); got != want {
			t.Errorf("NormalizeTestStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDecisionDisplay(t *testing.T) {
	if got := DecisionGo.Display(); got != "GO - Approved for launch" {
		t.Errorf("go display = %q", got)
	}
	if got := DecisionConditionalGo.Display(); got != "CONDITIONAL GO - Approved with conditions" {
		t.Errorf("conditional_go display = %q", got)
	}
	if got := DecisionNoGo.Display(); got != "NO-GO - Launch blocked" {
		t.Errorf("no_go display = %q", got)
	}
}

func TestGateCategoryTitle(t *testing.T) {
	if got := GateFeatureDeployment.Title(); got != "FEATURE DEPLOYMENT" {
		t.Errorf("Title() = %q, want %q", got, "FEATURE DEPLOYMENT")
	}
}

func TestNewCycleValidate(t *testing.T) {
	tests := []struct {
		name          string
		cycle         NewCycle
		errorContains string
	}{
		{"valid", NewCycle{Name: "NCCN Q4", UATType: UATRuleValidation, TargetLaunchDate: "2025-12-15"}, ""},
		{"missing name", NewCycle{UATType: UATFeature}, "name is required"},
		{"long name", NewCycle{Name: strings.Repeat("x", 201), UATType: UATFeature}, "200 characters or less"},
		{"bad type", NewCycle{Name: "x", UATType: "smoke"}, "invalid uat type"},
		{"bad date", NewCycle{Name: "x", UATType: UATFeature, TargetLaunchDate: "12/15/2025"}, "YYYY-MM-DD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cycle.Validate()
			if tt.errorContains == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("expected error containing %q, got %v", tt.errorContains, err)
			}
		})
	}
}

func TestTestResultValidate(t *testing.T) {
	ok := TestResult{TestID: "T-1", Status: TestPass, TestedBy: "erin"}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid result, got %v", err)
	}

	bad := TestResult{TestID: "T-1", Status: "Exploded", TestedBy: "erin"}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}

	noTester := TestResult{TestID: "T-1", Status: TestPass}
	if err := noTester.Validate(); err == nil {
		t.Error("expected error for missing tester")
	}
}

func TestDaysToLaunch(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	tests := []struct {
		target string
		days   int
		ok     bool
	}{
		{"2026-03-21", 7, true},
		{"2026-03-14", 0, true},
		{"2026-03-10", -4, true},
		{"", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		c := Cycle{TargetLaunchDate: tt.target}
		days, ok := c.DaysToLaunch(now)
		if days != tt.days || ok != tt.ok {
			t.Errorf("DaysToLaunch(%q) = %d, %v; want %d, %v", tt.target, days, ok, tt.days, tt.ok)
		}
	}
}

func TestCompletionPct(t *testing.T) {
	p := TesterProgress{TotalTests: 3, Completed: 2}
	if got := p.CompletionPct(); got != 67 {
		t.Errorf("CompletionPct() = %d, want 67", got)
	}
	if got := (&TesterProgress{}).CompletionPct(); got != 0 {
		t.Errorf("empty CompletionPct() = %d, want 0", got)
	}
}
