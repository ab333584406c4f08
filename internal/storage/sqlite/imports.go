package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uatkit/uat/internal/types"
)

// UpsertProfile creates or refreshes the test case for an NCCN profile and
// links it to the cycle. created reports whether a new row was inserted.
func (s *SQLiteStorage) UpsertProfile(ctx context.Context, p *types.Profile, cycleID, programID string) (bool, error) {
	if p.TestID == "" {
		return false, fmt.Errorf("profile has no test_id")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM uat_test_cases WHERE test_id = ?", p.TestID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to look up test case: %w", err)
	}
	now := s.timestamp()

	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO uat_test_cases (
				test_id, program_id, title, test_type, expected_results, notes,
				test_status, uat_cycle_id, profile_id, platform, change_id,
				target_rule, change_type, patient_conditions, cross_trigger_check,
				created_date, updated_date
			) VALUES (?, ?, ?, ?, ?, ?, 'Not Run', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.TestID, nullIfEmpty(programID), p.Title, nullIfEmpty(p.TestType),
			nullIfEmpty(p.ExpectedResults), nullIfEmpty(p.Notes),
			cycleID, p.ProfileID, nullIfEmpty(p.Platform), nullIfEmpty(p.ChangeID),
			nullIfEmpty(p.TargetRule), nullIfEmpty(p.ChangeType), nullIfEmpty(p.PatientConditions),
			nullIfEmpty(p.CrossTriggerCheck), now, now)
		if err != nil {
			return false, fmt.Errorf("failed to insert profile %s: %w", p.ProfileID, err)
		}
		return true, nil
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE uat_test_cases SET
			uat_cycle_id = ?,
			title = ?,
			test_type = COALESCE(?, test_type),
			expected_results = COALESCE(?, expected_results),
			notes = COALESCE(?, notes),
			profile_id = ?,
			platform = COALESCE(?, platform),
			change_id = COALESCE(?, change_id),
			target_rule = COALESCE(?, target_rule),
			change_type = COALESCE(?, change_type),
			patient_conditions = COALESCE(?, patient_conditions),
			cross_trigger_check = COALESCE(?, cross_trigger_check),
			updated_date = ?
		WHERE test_id = ?
	`, cycleID, p.Title, nullIfEmpty(p.TestType), nullIfEmpty(p.ExpectedResults), nullIfEmpty(p.Notes),
		p.ProfileID, nullIfEmpty(p.Platform), nullIfEmpty(p.ChangeID), nullIfEmpty(p.TargetRule),
		nullIfEmpty(p.ChangeType), nullIfEmpty(p.PatientConditions), nullIfEmpty(p.CrossTriggerCheck),
		now, p.TestID)
	if err != nil {
		return false, fmt.Errorf("failed to update profile %s: %w", p.ProfileID, err)
	}
	return false, nil
}

// AssignByProfile assigns the cycle test whose profile_id or test_id
// matches id. Cross-checks are recorded alongside the primary tester
// rather than replacing it. Returns the number of rows assigned.
func (s *SQLiteStorage) AssignByProfile(ctx context.Context, cycleID, id, tester string, assignmentType types.AssignmentType) (int64, error) {
	if !assignmentType.IsValid() {
		return 0, fmt.Errorf("invalid assignment type: %s", assignmentType)
	}
	if assignmentType == types.AssignCrossCheck {
		res, err := s.db.ExecContext(ctx, `
			INSERT OR REPLACE INTO uat_cross_checks (test_id, cycle_id, assigned_to, created_date)
			SELECT test_id, uat_cycle_id, ?, ?
			FROM uat_test_cases
			WHERE uat_cycle_id = ? AND (profile_id = ? OR test_id = ?)
		`, tester, s.timestamp(), cycleID, id, id)
		if err != nil {
			return 0, fmt.Errorf("failed to add cross-check %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		return n, nil
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE uat_test_cases SET
			assigned_to = ?,
			assignment_type = ?,
			updated_date = ?
		WHERE uat_cycle_id = ? AND (profile_id = ? OR test_id = ?)
	`, tester, string(assignmentType), s.timestamp(), cycleID, id, id)
	if err != nil {
		return 0, fmt.Errorf("failed to assign %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ApplyResult writes an imported result. Notes are appended to existing
// execution notes as "[tester] notes". found is false when no test has
// the ID.
func (s *SQLiteStorage) ApplyResult(ctx context.Context, r *types.ImportedResult) (bool, error) {
	testedDate := r.TestedDate
	if testedDate == "" {
		testedDate = s.timestamp()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE uat_test_cases
		SET test_status = ?,
		    tested_by = ?,
		    tested_date = ?,
		    execution_notes = CASE
		        WHEN execution_notes IS NULL OR execution_notes = '' THEN ?
		        WHEN ? = '' THEN execution_notes
		        ELSE execution_notes || char(10) || '[' || ? || '] ' || ?
		    END,
		    updated_date = ?
		WHERE test_id = ?
	`, string(r.Status), r.TestedBy, testedDate,
		r.Notes, r.Notes, r.TestedBy, r.Notes,
		s.timestamp(), r.TestID)
	if err != nil {
		return false, fmt.Errorf("failed to apply result for %s: %w", r.TestID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ReplaceAssignments clears a cycle's assignments and writes plan.
// Primary and secondary entries go on the test row; cross-checks go to
// uat_cross_checks so they never overwrite the primary tester.
func (s *SQLiteStorage) ReplaceAssignments(ctx context.Context, cycleID string, plan []types.Assignment, actor string) error {
	if _, err := s.GetCycle(ctx, cycleID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE uat_test_cases SET assigned_to = NULL, assignment_type = NULL
		WHERE uat_cycle_id = ?
	`, cycleID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM uat_cross_checks WHERE cycle_id = ?", cycleID); err != nil {
		return fmt.Errorf("failed to clear cross-checks: %w", err)
	}

	now := s.timestamp()
	primaries := 0
	testers := make(map[string]bool)
	for _, a := range plan {
		if !a.Type.IsValid() {
			return fmt.Errorf("invalid assignment type for %s: %s", a.TestID, a.Type)
		}
		testers[a.AssignedTo] = true

		if a.Type == types.AssignCrossCheck {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO uat_cross_checks (test_id, cycle_id, assigned_to, created_date)
				VALUES (?, ?, ?, ?)
			`, a.TestID, cycleID, a.AssignedTo, now); err != nil {
				return fmt.Errorf("failed to add cross-check %s: %w", a.TestID, err)
			}
			continue
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE uat_test_cases SET assigned_to = ?, assignment_type = ?, updated_date = ?
			WHERE test_id = ? AND uat_cycle_id = ?
		`, a.AssignedTo, string(a.Type), now, a.TestID, cycleID)
		if err != nil {
			return fmt.Errorf("failed to assign %s: %w", a.TestID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s in cycle %s", types.ErrTestNotFound, a.TestID, cycleID)
		}
		primaries++
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordTestBatch,
		RecordID:     cycleID,
		Action:       "ASSIGN",
		FieldChanged: "assigned_to",
		NewValue:     fmt.Sprintf("Assigned %d tests to %d testers", primaries, len(testers)),
		ChangedBy:    actor,
		ChangeReason: "Balanced tester assignment",
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ListCrossChecks returns the tests a tester cross-checks in a cycle
func (s *SQLiteStorage) ListCrossChecks(ctx context.Context, cycleID, tester string) ([]*types.TestCase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT test_id FROM uat_cross_checks
		WHERE cycle_id = ? AND assigned_to = ?
		ORDER BY test_id
	`, cycleID, tester)
	if err != nil {
		return nil, fmt.Errorf("failed to query cross-checks: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tests := make([]*types.TestCase, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTestCase(ctx, id)
		if err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, nil
}
