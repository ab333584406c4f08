package types

import "fmt"

// TestCase is a uat_test_cases row: the base columns owned by the
// requirements system plus the UAT extension columns.
type TestCase struct {
	TestID              string `json:"test_id"`
	ProgramID           string `json:"program_id,omitempty"`
	StoryID             string `json:"story_id,omitempty"`
	Title               string `json:"title"`
	Category            string `json:"category,omitempty"`
	TestType            string `json:"test_type,omitempty"`
	TestSteps           string `json:"test_steps,omitempty"`
	ExpectedResults     string `json:"expected_results,omitempty"`
	Prerequisites       string `json:"prerequisites,omitempty"`
	Priority            string `json:"priority,omitempty"`
	ComplianceFramework string `json:"compliance_framework,omitempty"`
	Notes               string `json:"notes,omitempty"`

	Status         TestStatus `json:"test_status"`
	TestedBy       string     `json:"tested_by,omitempty"`
	TestedDate     string     `json:"tested_date,omitempty"`
	ExecutionNotes string     `json:"execution_notes,omitempty"`

	CycleID        string         `json:"uat_cycle_id,omitempty"`
	AssignedTo     string         `json:"assigned_to,omitempty"`
	AssignmentType AssignmentType `json:"assignment_type,omitempty"`

	ProfileID         string `json:"profile_id,omitempty"`
	Platform          string `json:"platform,omitempty"`
	ChangeID          string `json:"change_id,omitempty"`
	TargetRule        string `json:"target_rule,omitempty"`
	ChangeType        string `json:"change_type,omitempty"`
	PatientConditions string `json:"patient_conditions,omitempty"`
	CrossTriggerCheck string `json:"cross_trigger_check,omitempty"`

	DefectID          string    `json:"defect_id,omitempty"`
	DefectDescription string    `json:"defect_description,omitempty"`
	DevStatus         DevStatus `json:"dev_status,omitempty"`
	DevNotes          string    `json:"dev_notes,omitempty"`
	RetestStatus      string    `json:"retest_status,omitempty"`
	RetestBy          string    `json:"retest_by,omitempty"`
	RetestDate        string    `json:"retest_date,omitempty"`
	RetestNotes       string    `json:"retest_notes,omitempty"`

	WorkflowSection string `json:"workflow_section,omitempty"`
	WorkflowOrder   int    `json:"workflow_order,omitempty"`
}

// TestFilter narrows ListCycleTests
type TestFilter struct {
	AssignedTo string
	Status     TestStatus
}

// TestResult is one execution result recorded against a test
type TestResult struct {
	TestID            string
	Status            TestStatus
	TestedBy          string
	Notes             string
	DefectID          string
	DefectDescription string
}

// Validate checks the result before it is recorded
func (r *TestResult) Validate() error {
	if r.TestID == "" {
		return fmt.Errorf("test_id is required")
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, r.Status)
	}
	if r.TestedBy == "" {
		return fmt.Errorf("tested_by is required")
	}
	return nil
}

// ImportedResult is a result arriving from a tracker export or form
// submission. Notes are appended to existing execution notes.
type ImportedResult struct {
	TestID     string
	Status     TestStatus
	TestedBy   string
	TestedDate string
	Notes      string
}

// RetestItem is a failed test waiting on a fix or retest
type RetestItem struct {
	CycleID       string    `json:"cycle_id"`
	TestID        string    `json:"test_id"`
	ProfileID     string    `json:"profile_id,omitempty"`
	Title         string    `json:"title"`
	Platform      string    `json:"platform,omitempty"`
	TargetRule    string    `json:"target_rule,omitempty"`
	InitialStatus string    `json:"initial_status"`
	InitialTester string    `json:"initial_tester,omitempty"`
	DefectID      string    `json:"defect_id,omitempty"`
	DevStatus     DevStatus `json:"dev_status,omitempty"`
	DevNotes      string    `json:"dev_notes,omitempty"`
	RetestStatus  string    `json:"retest_status,omitempty"`
	RetestBy      string    `json:"retest_by,omitempty"`
	RetestDate    string    `json:"retest_date,omitempty"`
	RetestNotes   string    `json:"retest_notes,omitempty"`
}

// Profile is an NCCN test profile read from a UAT package
type Profile struct {
	TestID            string
	ProfileID         string
	Title             string
	ChangeID          string
	TargetRule        string
	ChangeType        string
	Platform          string
	TestType          string
	PatientConditions string
	ExpectedResults   string
	CrossTriggerCheck string
	Notes             string
}

// Assignment maps one test to one tester
type Assignment struct {
	TestID     string
	AssignedTo string
	Type       AssignmentType
}

// Story is a user story from the requirements system
type Story struct {
	StoryID            string `json:"story_id"`
	Title              string `json:"title"`
	UserStory          string `json:"user_story,omitempty"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	Priority           string `json:"priority,omitempty"`
	Status             string `json:"status,omitempty"`
}

// Defect is a defect logged against a failed test
type Defect struct {
	DefectID    string    `json:"defect_id"`
	TestID      string    `json:"test_id"`
	Description string    `json:"description,omitempty"`
	DevStatus   DevStatus `json:"dev_status,omitempty"`
	DevNotes    string    `json:"dev_notes,omitempty"`
}

// SignoffData is everything the sign-off package is assembled from
type SignoffData struct {
	Cycle   *Cycle
	Stories []*Story
	Tests   []*TestCase
	Defects []*Defect
}

// WorkflowSection groups tests into the order a tester walks a form
type WorkflowSection struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Guidance     string `json:"guidance,omitempty"`
	DisplayOrder int    `json:"display_order"`
}
