package types

import (
	"fmt"
	"math"
	"time"
)

// NewCycle holds the caller-supplied fields for creating a UAT cycle
type NewCycle struct {
	Name             string  `json:"name"`
	UATType          UATType `json:"uat_type"`
	TargetLaunchDate string  `json:"target_launch_date,omitempty"` // YYYY-MM-DD
	ProgramPrefix    string  `json:"program_prefix,omitempty"`
	ClinicalPM       string  `json:"clinical_pm,omitempty"`
	ClinicalPMEmail  string  `json:"clinical_pm_email,omitempty"`
	Description      string  `json:"description,omitempty"`
}

// Validate checks the new cycle before it is written
func (c *NewCycle) Validate() error {
	if len(c.Name) == 0 {
		return fmt.Errorf("name is required")
	}
	if len(c.Name) > 200 {
		return fmt.Errorf("name must be 200 characters or less (got %d)", len(c.Name))
	}
	if !c.UATType.IsValid() {
		return fmt.Errorf("invalid uat type: %s", c.UATType)
	}
	if c.TargetLaunchDate != "" {
		if _, err := time.Parse(DateLayout, c.TargetLaunchDate); err != nil {
			return fmt.Errorf("target launch date must be YYYY-MM-DD (got %q)", c.TargetLaunchDate)
		}
	}
	return nil
}

// DateLayout is the storage format for calendar dates
const DateLayout = "2006-01-02"

// Cycle is a UAT cycle row joined with its program and test counts
type Cycle struct {
	CycleID          string      `json:"cycle_id"`
	ProgramID        string      `json:"program_id,omitempty"`
	ProgramName      string      `json:"program_name,omitempty"`
	ProgramPrefix    string      `json:"program_prefix,omitempty"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	UATType          UATType     `json:"uat_type"`
	Status           CycleStatus `json:"status"`
	TargetLaunchDate string      `json:"target_launch_date,omitempty"`
	ClinicalPM       string      `json:"clinical_pm,omitempty"`
	ClinicalPMEmail  string      `json:"clinical_pm_email,omitempty"`

	ValidationStart string `json:"validation_start,omitempty"`
	KickoffDate     string `json:"kickoff_date,omitempty"`
	TestingStart    string `json:"testing_start,omitempty"`
	ReviewDate      string `json:"review_date,omitempty"`
	RetestStart     string `json:"retest_start,omitempty"`
	GoNoGoDate      string `json:"go_nogo_date,omitempty"`

	GatePassed     bool   `json:"pre_uat_gate_passed"`
	GateSignedBy   string `json:"pre_uat_gate_signed_by,omitempty"`
	GateSignedDate string `json:"pre_uat_gate_signed_date,omitempty"`
	GateNotes      string `json:"pre_uat_gate_notes,omitempty"`

	Decision         Decision `json:"go_nogo_decision,omitempty"`
	DecisionSignedBy string   `json:"go_nogo_signed_by,omitempty"`
	DecisionDate     string   `json:"go_nogo_signed_date,omitempty"`
	DecisionNotes    string   `json:"go_nogo_notes,omitempty"`

	CreatedBy   string `json:"created_by,omitempty"`
	CreatedDate string `json:"created_date,omitempty"`
	UpdatedDate string `json:"updated_date,omitempty"`

	TotalTests int `json:"total_tests"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Blocked    int `json:"blocked"`
	Skipped    int `json:"skipped"`
	NotRun     int `json:"not_run"`
}

// DaysToLaunch returns whole days from now until the target launch date.
// ok is false when no target date is set or it cannot be parsed.
func (c *Cycle) DaysToLaunch(now time.Time) (days int, ok bool) {
	if c.TargetLaunchDate == "" {
		return 0, false
	}
	target, err := time.ParseInLocation(DateLayout, c.TargetLaunchDate, now.Location())
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Round(target.Sub(today).Hours() / 24)), true
}

// CycleFilter narrows ListCycles
type CycleFilter struct {
	ProgramPrefix string
	Status        CycleStatus
	UATType       UATType
}

// Program is a row from the externally-owned programs table
type Program struct {
	ProgramID string `json:"program_id"`
	ClientID  string `json:"client_id,omitempty"`
	Name      string `json:"program_name"`
	Prefix    string `json:"prefix"`
}

// GateItem is one pre-UAT checklist entry
type GateItem struct {
	ItemID        int64        `json:"item_id"`
	CycleID       string       `json:"cycle_id"`
	Category      GateCategory `json:"category"`
	Sequence      int          `json:"sequence"`
	Text          string       `json:"item_text"`
	Required      bool         `json:"is_required"`
	Complete      bool         `json:"is_complete"`
	CompletedBy   string       `json:"completed_by,omitempty"`
	CompletedDate string       `json:"completed_date,omitempty"`
	Notes         string       `json:"notes,omitempty"`
}

// GateStatus summarizes checklist completion
type GateStatus struct {
	Total           int  `json:"total"`
	Completed       int  `json:"completed"`
	RequiredPending int  `json:"required_pending"`
	ReadyForSignoff bool `json:"ready_for_signoff"`
}

// TesterProgress is one row of per-tester progress in a cycle
type TesterProgress struct {
	CycleID    string `json:"cycle_id"`
	AssignedTo string `json:"assigned_to"`
	TotalTests int    `json:"total_tests"`
	Completed  int    `json:"completed"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Blocked    int    `json:"blocked"`
	Skipped    int    `json:"skipped"`
	NotRun     int    `json:"not_run"`
	LastTested string `json:"last_tested,omitempty"`
}

// CompletionPct is the rounded share of executed tests
func (p *TesterProgress) CompletionPct() int {
	if p.TotalTests == 0 {
		return 0
	}
	return (200*p.Completed + p.TotalTests) / (2 * p.TotalTests)
}

// RuleCoverage is test coverage for one NCCN rule on one platform
type RuleCoverage struct {
	CycleID       string `json:"cycle_id"`
	ChangeID      string `json:"change_id"`
	ChangeType    string `json:"change_type"`
	TargetRule    string `json:"target_rule"`
	Platform      string `json:"platform"`
	TotalProfiles int    `json:"total_profiles"`
	Passed        int    `json:"passed"`
	Failed        int    `json:"failed"`
	NotRun        int    `json:"not_run"`
	PositiveTests int    `json:"pos_tests"`
	NegativeTests int    `json:"neg_tests"`
	DeprecTests   int    `json:"dep_tests"`
}

// AuditEntry is one row of the shared audit trail
type AuditEntry struct {
	AuditID      int64  `json:"audit_id"`
	RecordType   string `json:"record_type"`
	RecordID     string `json:"record_id"`
	Action       string `json:"action"`
	FieldChanged string `json:"field_changed,omitempty"`
	OldValue     string `json:"old_value,omitempty"`
	NewValue     string `json:"new_value,omitempty"`
	ChangedBy    string `json:"changed_by"`
	ChangeReason string `json:"change_reason,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	ChangedDate  string `json:"changed_date,omitempty"`
}

// Record types written to the audit trail
const (
	RecordCycle     = "uat_cycle"
	RecordGateItem  = "gate_item"
	RecordTestCase  = "uat_test_case"
	RecordTestBatch = "uat_test_cases"
)
