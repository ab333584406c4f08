package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uatkit/uat/internal/types"
)

const testColumns = `
	test_id, COALESCE(program_id, ''), COALESCE(story_id, ''), title,
	COALESCE(category, ''), COALESCE(test_type, ''), COALESCE(test_steps, ''),
	COALESCE(expected_results, ''), COALESCE(prerequisites, ''), COALESCE(priority, ''),
	COALESCE(compliance_framework, ''), COALESCE(notes, ''),
	COALESCE(test_status, 'Not Run'), COALESCE(tested_by, ''), COALESCE(tested_date, ''),
	COALESCE(execution_notes, ''),
	COALESCE(uat_cycle_id, ''), COALESCE(assigned_to, ''), COALESCE(assignment_type, ''),
	COALESCE(profile_id, ''), COALESCE(platform, ''), COALESCE(change_id, ''),
	COALESCE(target_rule, ''), COALESCE(change_type, ''), COALESCE(patient_conditions, ''),
	COALESCE(cross_trigger_check, ''),
	COALESCE(defect_id, ''), COALESCE(defect_description, ''), COALESCE(dev_status, ''),
	COALESCE(dev_notes, ''), COALESCE(retest_status, ''), COALESCE(retest_by, ''),
	COALESCE(retest_date, ''), COALESCE(retest_notes, ''),
	COALESCE(workflow_section, ''), COALESCE(workflow_order, 0)`

func scanTest(row rowScanner) (*types.TestCase, error) {
	var t types.TestCase
	err := row.Scan(
		&t.TestID, &t.ProgramID, &t.StoryID, &t.Title,
		&t.Category, &t.TestType, &t.TestSteps,
		&t.ExpectedResults, &t.Prerequisites, &t.Priority,
		&t.ComplianceFramework, &t.Notes,
		&t.Status, &t.TestedBy, &t.TestedDate, &t.ExecutionNotes,
		&t.CycleID, &t.AssignedTo, &t.AssignmentType,
		&t.ProfileID, &t.Platform, &t.ChangeID,
		&t.TargetRule, &t.ChangeType, &t.PatientConditions, &t.CrossTriggerCheck,
		&t.DefectID, &t.DefectDescription, &t.DevStatus,
		&t.DevNotes, &t.RetestStatus, &t.RetestBy, &t.RetestDate, &t.RetestNotes,
		&t.WorkflowSection, &t.WorkflowOrder,
	)
	if err != nil {
		return nil, err
	}
	t.Status = types.NormalizeTestStatus(string(t.Status))
	return &t, nil
}

func (s *SQLiteStorage) queryTests(ctx context.Context, where string, args ...interface{}) ([]*types.TestCase, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT"+testColumns+" FROM uat_test_cases "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query test cases: %w", err)
	}
	defer rows.Close()

	var tests []*types.TestCase
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// CreateTestCase inserts a base test case row. Test cases are normally
// authored in the requirements system; this covers standalone databases.
func (s *SQLiteStorage) CreateTestCase(ctx context.Context, t *types.TestCase) error {
	if t.TestID == "" || t.Title == "" {
		return fmt.Errorf("test_id and title are required")
	}
	status := t.Status
	if status == "" {
		status = types.TestNotRun
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uat_test_cases (
			test_id, program_id, story_id, title, category, test_type, test_steps,
			expected_results, prerequisites, priority, compliance_framework, notes,
			test_status, created_date, updated_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.TestID, nullIfEmpty(t.ProgramID), nullIfEmpty(t.StoryID), t.Title,
		nullIfEmpty(t.Category), nullIfEmpty(t.TestType), nullIfEmpty(t.TestSteps),
		nullIfEmpty(t.ExpectedResults), nullIfEmpty(t.Prerequisites), nullIfEmpty(t.Priority),
		nullIfEmpty(t.ComplianceFramework), nullIfEmpty(t.Notes),
		string(status), s.timestamp(), s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to insert test case: %w", err)
	}
	return nil
}

// CreateStory inserts a user story row (standalone databases)
func (s *SQLiteStorage) CreateStory(ctx context.Context, programID string, st *types.Story) error {
	if st.StoryID == "" || st.Title == "" {
		return fmt.Errorf("story_id and title are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_stories (story_id, program_id, title, user_story, acceptance_criteria, priority, status)
		VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, 'Draft'))
	`, st.StoryID, nullIfEmpty(programID), st.Title, nullIfEmpty(st.UserStory),
		nullIfEmpty(st.AcceptanceCriteria), nullIfEmpty(st.Priority), nullIfEmpty(st.Status))
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// GetTestCase returns one test case
func (s *SQLiteStorage) GetTestCase(ctx context.Context, testID string) (*types.TestCase, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+testColumns+" FROM uat_test_cases WHERE test_id = ?", testID)
	t, err := scanTest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", types.ErrTestNotFound, testID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test case: %w", err)
	}
	return t, nil
}

// AssignTestToCycle links a test to a cycle. Assignee and type are kept
// when empty.
func (s *SQLiteStorage) AssignTestToCycle(ctx context.Context, testID, cycleID, assignedTo string, assignmentType types.AssignmentType) error {
	if assignmentType != "" && !assignmentType.IsValid() {
		return fmt.Errorf("invalid assignment type: %s", assignmentType)
	}
	if _, err := s.GetCycle(ctx, cycleID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE uat_test_cases SET
			uat_cycle_id = ?,
			assigned_to = COALESCE(?, assigned_to),
			assignment_type = COALESCE(?, assignment_type),
			updated_date = ?
		WHERE test_id = ?
	`, cycleID, nullIfEmpty(assignedTo), nullIfEmpty(string(assignmentType)), s.timestamp(), testID)
	if err != nil {
		return fmt.Errorf("failed to assign test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrTestNotFound, testID)
	}
	return nil
}

// RecordTestResult records an execution result. Optional notes and defect
// fields keep their stored values when empty.
func (s *SQLiteStorage) RecordTestResult(ctx context.Context, r *types.TestResult) error {
	if err := r.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var oldStatus string
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(test_status, 'Not Run') FROM uat_test_cases WHERE test_id = ?", r.TestID).Scan(&oldStatus)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", types.ErrTestNotFound, r.TestID)
	}
	if err != nil {
		return fmt.Errorf("failed to read test status: %w", err)
	}

	now := s.timestamp()
	if _, err := tx.ExecContext(ctx, `
		UPDATE uat_test_cases SET
			test_status = ?,
			tested_by = ?,
			tested_date = ?,
			execution_notes = COALESCE(?, execution_notes),
			defect_id = COALESCE(?, defect_id),
			defect_description = COALESCE(?, defect_description),
			updated_date = ?
		WHERE test_id = ?
	`, string(r.Status), r.TestedBy, now, nullIfEmpty(r.Notes),
		nullIfEmpty(r.DefectID), nullIfEmpty(r.DefectDescription), now, r.TestID); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordTestCase,
		RecordID:     r.TestID,
		Action:       "Test Executed",
		FieldChanged: "test_status",
		OldValue:     oldStatus,
		NewValue:     string(r.Status),
		ChangedBy:    r.TestedBy,
		ChangeReason: r.Notes,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordRetestResult records a retest without touching the initial result
func (s *SQLiteStorage) RecordRetestResult(ctx context.Context, testID string, status types.TestStatus, retestBy, notes string) error {
	if !status.IsValid() || status == types.TestNotRun {
		return fmt.Errorf("%w: %q", types.ErrInvalidStatus, status)
	}
	if retestBy == "" {
		return fmt.Errorf("retest_by is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()
	res, err := tx.ExecContext(ctx, `
		UPDATE uat_test_cases SET
			retest_status = ?,
			retest_by = ?,
			retest_date = ?,
			retest_notes = ?,
			updated_date = ?
		WHERE test_id = ?
	`, string(status), retestBy, now, nullIfEmpty(notes), now, testID)
	if err != nil {
		return fmt.Errorf("failed to record retest: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrTestNotFound, testID)
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordTestCase,
		RecordID:     testID,
		Action:       "Retested",
		FieldChanged: "retest_status",
		NewValue:     string(status),
		ChangedBy:    retestBy,
		ChangeReason: notes,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateDevStatus records developer follow-up on a failed test
func (s *SQLiteStorage) UpdateDevStatus(ctx context.Context, testID string, status types.DevStatus, notes, actor string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: dev status %q", types.ErrInvalidStatus, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var old string
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(dev_status, '') FROM uat_test_cases WHERE test_id = ?", testID).Scan(&old)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", types.ErrTestNotFound, testID)
	}
	if err != nil {
		return fmt.Errorf("failed to read dev status: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE uat_test_cases SET
			dev_status = ?,
			dev_notes = COALESCE(?, dev_notes),
			updated_date = ?
		WHERE test_id = ?
	`, string(status), nullIfEmpty(notes), s.timestamp(), testID); err != nil {
		return fmt.Errorf("failed to update dev status: %w", err)
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordTestCase,
		RecordID:     testID,
		Action:       "Dev Status Updated",
		FieldChanged: "dev_status",
		OldValue:     old,
		NewValue:     string(status),
		ChangedBy:    actor,
		ChangeReason: notes,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListCycleTests returns a cycle's tests ordered by profile then test ID
func (s *SQLiteStorage) ListCycleTests(ctx context.Context, cycleID string, filter types.TestFilter) ([]*types.TestCase, error) {
	where := "WHERE uat_cycle_id = ?"
	args := []interface{}{cycleID}
	if filter.AssignedTo != "" {
		where += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo)
	}
	if filter.Status != "" {
		if filter.Status == types.TestNotRun {
			where += " AND COALESCE(test_status, '') IN ('', 'Not Run', 'Not_Run')"
		} else {
			where += " AND test_status = ?"
			args = append(args, string(filter.Status))
		}
	}
	where += " ORDER BY COALESCE(profile_id, ''), test_id"
	return s.queryTests(ctx, where, args...)
}

// ListTesters returns the distinct primary assignees in a cycle
func (s *SQLiteStorage) ListTesters(ctx context.Context, cycleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT assigned_to FROM uat_test_cases
		WHERE uat_cycle_id = ? AND COALESCE(assigned_to, '') != ''
		ORDER BY assigned_to
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list testers: %w", err)
	}
	defer rows.Close()

	var testers []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		testers = append(testers, name)
	}
	return testers, rows.Err()
}

// GetTesterProgress returns per-tester progress, most complete first
func (s *SQLiteStorage) GetTesterProgress(ctx context.Context, cycleID string) ([]*types.TesterProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_id, assigned_to, total_tests, completed, passed, failed,
		       blocked, skipped, not_run, COALESCE(last_tested, '')
		FROM v_uat_tester_progress
		WHERE cycle_id = ?
		ORDER BY completion_pct DESC, assigned_to
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tester progress: %w", err)
	}
	defer rows.Close()

	var progress []*types.TesterProgress
	for rows.Next() {
		var p types.TesterProgress
		if err := rows.Scan(&p.CycleID, &p.AssignedTo, &p.TotalTests, &p.Completed,
			&p.Passed, &p.Failed, &p.Blocked, &p.Skipped, &p.NotRun, &p.LastTested); err != nil {
			return nil, fmt.Errorf("failed to scan tester progress: %w", err)
		}
		progress = append(progress, &p)
	}
	return progress, rows.Err()
}

// GetRetestQueue returns failed tests not yet passing on retest, fixed
// defects first
func (s *SQLiteStorage) GetRetestQueue(ctx context.Context, cycleID string) ([]*types.RetestItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_id, test_id, COALESCE(profile_id, ''), title, COALESCE(platform, ''),
		       COALESCE(target_rule, ''), initial_status, COALESCE(initial_tester, ''),
		       COALESCE(defect_id, ''), dev_status, COALESCE(dev_notes, ''),
		       COALESCE(retest_status, ''), COALESCE(retest_by, ''), COALESCE(retest_date, ''),
		       COALESCE(retest_notes, '')
		FROM v_retest_queue
		WHERE cycle_id = ?
		ORDER BY CASE dev_status
		             WHEN 'fixed' THEN 0
		             WHEN 'investigating' THEN 1
		             WHEN 'pending' THEN 2
		             ELSE 3
		         END, test_id
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query retest queue: %w", err)
	}
	defer rows.Close()

	var items []*types.RetestItem
	for rows.Next() {
		var r types.RetestItem
		if err := rows.Scan(&r.CycleID, &r.TestID, &r.ProfileID, &r.Title, &r.Platform,
			&r.TargetRule, &r.InitialStatus, &r.InitialTester,
			&r.DefectID, &r.DevStatus, &r.DevNotes,
			&r.RetestStatus, &r.RetestBy, &r.RetestDate, &r.RetestNotes); err != nil {
			return nil, fmt.Errorf("failed to scan retest item: %w", err)
		}
		items = append(items, &r)
	}
	return items, rows.Err()
}

// GetRuleCoverage returns NCCN rule coverage for a cycle
func (s *SQLiteStorage) GetRuleCoverage(ctx context.Context, cycleID string) ([]*types.RuleCoverage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cycle_id, change_id, change_type, target_rule, platform, total_profiles,
		       passed, failed, not_run, pos_tests, neg_tests, dep_tests
		FROM v_nccn_rule_coverage
		WHERE cycle_id = ?
		ORDER BY change_id, target_rule, platform
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule coverage: %w", err)
	}
	defer rows.Close()

	var coverage []*types.RuleCoverage
	for rows.Next() {
		var c types.RuleCoverage
		if err := rows.Scan(&c.CycleID, &c.ChangeID, &c.ChangeType, &c.TargetRule, &c.Platform,
			&c.TotalProfiles, &c.Passed, &c.Failed, &c.NotRun,
			&c.PositiveTests, &c.NegativeTests, &c.DeprecTests); err != nil {
			return nil, fmt.Errorf("failed to scan rule coverage: %w", err)
		}
		coverage = append(coverage, &c)
	}
	return coverage, rows.Err()
}
