package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/gates"
	"github.com/uatkit/uat/internal/lifecycle"
	"github.com/uatkit/uat/internal/types"
)

const cycleColumns = `
	cycle_id, COALESCE(program_id, ''), COALESCE(program_name, ''), COALESCE(program_prefix, ''),
	name, COALESCE(description, ''), uat_type, status, COALESCE(target_launch_date, ''),
	COALESCE(clinical_pm, ''), COALESCE(clinical_pm_email, ''),
	COALESCE(validation_start, ''), COALESCE(kickoff_date, ''), COALESCE(testing_start, ''),
	COALESCE(review_date, ''), COALESCE(retest_start, ''), COALESCE(go_nogo_date, ''),
	pre_uat_gate_passed, COALESCE(pre_uat_gate_signed_by, ''), COALESCE(pre_uat_gate_signed_date, ''),
	COALESCE(pre_uat_gate_notes, ''),
	COALESCE(go_nogo_decision, ''), COALESCE(go_nogo_signed_by, ''), COALESCE(go_nogo_signed_date, ''),
	COALESCE(go_nogo_notes, ''),
	COALESCE(created_by, ''), COALESCE(created_date, ''), COALESCE(updated_date, ''),
	total_tests, passed, failed, blocked, skipped, not_run`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCycle(row rowScanner) (*types.Cycle, error) {
	var c types.Cycle
	var gatePassed int
	err := row.Scan(
		&c.CycleID, &c.ProgramID, &c.ProgramName, &c.ProgramPrefix,
		&c.Name, &c.Description, &c.UATType, &c.Status, &c.TargetLaunchDate,
		&c.ClinicalPM, &c.ClinicalPMEmail,
		&c.ValidationStart, &c.KickoffDate, &c.TestingStart,
		&c.ReviewDate, &c.RetestStart, &c.GoNoGoDate,
		&gatePassed, &c.GateSignedBy, &c.GateSignedDate, &c.GateNotes,
		&c.Decision, &c.DecisionSignedBy, &c.DecisionDate, &c.DecisionNotes,
		&c.CreatedBy, &c.CreatedDate, &c.UpdatedDate,
		&c.TotalTests, &c.Passed, &c.Failed, &c.Blocked, &c.Skipped, &c.NotRun,
	)
	if err != nil {
		return nil, err
	}
	c.GatePassed = gatePassed != 0
	return &c, nil
}

// CreateCycle creates a cycle in planning status along with the default
// gate checklist for its type, and returns the new cycle ID
func (s *SQLiteStorage) CreateCycle(ctx context.Context, nc *types.NewCycle, actor string) (string, error) {
	if err := nc.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}

	var programID interface{}
	prefix := "UAT"
	if p := strings.TrimSpace(nc.ProgramPrefix); p != "" {
		prefix = strings.ToUpper(p)
		program, err := s.GetProgramByPrefix(ctx, p)
		if err != nil {
			return "", err
		}
		if program != nil {
			programID = program.ProgramID
		} else {
			s.logger.Warn("no program matches prefix; cycle will be unlinked", zap.String("prefix", prefix))
		}
	}
	cycleID := fmt.Sprintf("UAT-%s-%s", prefix, strings.ToUpper(uuid.NewString()[:8]))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.timestamp()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO uat_cycles (
			cycle_id, program_id, name, description, uat_type,
			target_launch_date, clinical_pm, clinical_pm_email,
			status, created_by, created_date, updated_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cycleID, programID, nc.Name, nullIfEmpty(nc.Description), string(nc.UATType),
		nullIfEmpty(nc.TargetLaunchDate), nullIfEmpty(nc.ClinicalPM), nullIfEmpty(nc.ClinicalPMEmail),
		string(types.CyclePlanning), actor, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to insert cycle: %w", err)
	}

	for _, item := range gates.DefaultItems(nc.UATType) {
		required := 0
		if item.Required {
			required = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO pre_uat_gate_items (cycle_id, category, sequence, item_text, is_required)
			VALUES (?, ?, ?, ?, ?)
		`, cycleID, string(item.Category), item.Sequence, item.Text, required); err != nil {
			return "", fmt.Errorf("failed to insert gate item: %w", err)
		}
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordCycle,
		RecordID:     cycleID,
		Action:       "Created",
		NewValue:     fmt.Sprintf("%s (%s)", nc.Name, nc.UATType),
		ChangedBy:    actor,
		ChangeReason: "New UAT cycle created for " + nc.Name,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("created cycle", zap.String("cycle_id", cycleID), zap.String("type", string(nc.UATType)))
	return cycleID, nil
}

// GetCycle returns a cycle with its test counts
func (s *SQLiteStorage) GetCycle(ctx context.Context, id string) (*types.Cycle, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+cycleColumns+" FROM v_uat_cycle_summary WHERE cycle_id = ?", id)
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", types.ErrCycleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle: %w", err)
	}
	return c, nil
}

// FindCycleByName returns the most recently created cycle whose name
// contains part, ignoring case
func (s *SQLiteStorage) FindCycleByName(ctx context.Context, part string) (*types.Cycle, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT"+cycleColumns+` FROM v_uat_cycle_summary
		WHERE name LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY created_date DESC, cycle_id
		LIMIT 1`, escapeLike(part))
	c, err := scanCycle(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no cycle matching %q", types.ErrCycleNotFound, part)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cycle: %w", err)
	}
	return c, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ResolveCycle accepts a cycle ID or part of a cycle name
func (s *SQLiteStorage) ResolveCycle(ctx context.Context, ref string) (*types.Cycle, error) {
	c, err := s.GetCycle(ctx, ref)
	if errors.Is(err, types.ErrCycleNotFound) {
		return s.FindCycleByName(ctx, ref)
	}
	return c, err
}

// ListCycles returns cycles matching the filter, latest launch first
func (s *SQLiteStorage) ListCycles(ctx context.Context, filter types.CycleFilter) ([]*types.Cycle, error) {
	query := "SELECT" + cycleColumns + " FROM v_uat_cycle_summary WHERE 1=1"
	var args []interface{}
	if filter.ProgramPrefix != "" {
		query += " AND UPPER(program_prefix) = UPPER(?)"
		args = append(args, filter.ProgramPrefix)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.UATType != "" {
		query += " AND uat_type = ?"
		args = append(args, string(filter.UATType))
	}
	query += " ORDER BY target_launch_date DESC, name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*types.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// ActiveCycles returns cycles that are neither complete nor cancelled
func (s *SQLiteStorage) ActiveCycles(ctx context.Context, programPrefix string) ([]*types.Cycle, error) {
	all, err := s.ListCycles(ctx, types.CycleFilter{ProgramPrefix: programPrefix})
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, c := range all {
		if !c.Status.IsTerminal() {
			active = append(active, c)
		}
	}
	return active, nil
}

// allowedCycleFields lists the columns UpdateCycle may change
var allowedCycleFields = map[string]bool{
	"program_id":               true,
	"name":                     true,
	"description":              true,
	"uat_type":                 true,
	"status":                   true,
	"target_launch_date":       true,
	"clinical_pm":              true,
	"clinical_pm_email":        true,
	"validation_start":         true,
	"kickoff_date":             true,
	"testing_start":            true,
	"review_date":              true,
	"retest_start":             true,
	"go_nogo_date":             true,
	"pre_uat_gate_passed":      true,
	"pre_uat_gate_signed_by":   true,
	"pre_uat_gate_signed_date": true,
	"pre_uat_gate_notes":       true,
	"go_nogo_decision":         true,
	"go_nogo_signed_by":        true,
	"go_nogo_signed_date":      true,
	"go_nogo_notes":            true,
}

var protectedCycleFields = map[string]bool{
	"cycle_id":     true,
	"created_date": true,
	"created_by":   true,
}

func validateCycleField(key string, value interface{}) error {
	str, isString := value.(string)
	switch key {
	case "status":
		if !isString || !types.CycleStatus(str).IsValid() {
			return fmt.Errorf("%w: %v", types.ErrInvalidStatus, value)
		}
	case "uat_type":
		if !isString || !types.UATType(str).IsValid() {
			return fmt.Errorf("invalid uat type: %v", value)
		}
	case "go_nogo_decision":
		if !isString || !types.Decision(str).IsValid() {
			return fmt.Errorf("%w: %v", types.ErrInvalidDecision, value)
		}
	case "name":
		if !isString || len(str) == 0 || len(str) > 200 {
			return fmt.Errorf("name must be 1-200 characters")
		}
	}
	return nil
}

// auditValue renders v the way SQLite stores it, so booleans compare as
// 1 and 0
func auditValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(v)
	}
}

// UpdateCycle applies a sparse update and writes one audit entry per
// field whose value changed
func (s *SQLiteStorage) UpdateCycle(ctx context.Context, id string, updates map[string]interface{}, actor, reason string) error {
	keys := make([]string, 0, len(updates))
	for key, value := range updates {
		if protectedCycleFields[key] {
			return fmt.Errorf("field %s cannot be updated", key)
		}
		if !allowedCycleFields[key] {
			return fmt.Errorf("invalid field for update: %s", key)
		}
		if err := validateCycleField(key, value); err != nil {
			return err
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	old := make([]sql.NullString, len(keys))
	var exists int
	dest := []interface{}{&exists}
	for i := range old {
		dest = append(dest, &old[i])
	}
	selectCols := "1"
	if len(keys) > 0 {
		selectCols += ", " + strings.Join(keys, ", ")
	}
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM uat_cycles WHERE cycle_id = ?", selectCols), id).Scan(dest...)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", types.ErrCycleNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read cycle: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	setClauses := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys)+2)
	for i, key := range keys {
		setClauses = append(setClauses, key+" = ?")
		args = append(args, updates[key])

		newVal := auditValue(updates[key])
		if old[i].String == newVal {
			continue
		}
		if err := s.logAudit(ctx, tx, &types.AuditEntry{
			RecordType:   types.RecordCycle,
			RecordID:     id,
			Action:       "Updated",
			FieldChanged: key,
			OldValue:     old[i].String,
			NewValue:     newVal,
			ChangedBy:    actor,
			ChangeReason: reason,
		}); err != nil {
			return err
		}
	}
	setClauses = append(setClauses, "updated_date = ?")
	args = append(args, s.timestamp(), id)

	query := fmt.Sprintf("UPDATE uat_cycles SET %s WHERE cycle_id = ?", strings.Join(setClauses, ", "))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update cycle: %w", err)
	}

	return tx.Commit()
}

// UpdateCycleStatus moves a cycle to status and stamps the phase date
// column for that status (today when phaseDate is empty)
func (s *SQLiteStorage) UpdateCycleStatus(ctx context.Context, id string, status types.CycleStatus, phaseDate, actor, notes string) error {
	updates, err := lifecycle.StatusUpdates(status, phaseDate, s.now())
	if err != nil {
		return err
	}
	if notes == "" {
		notes = "Status changed to " + string(status)
	}
	return s.UpdateCycle(ctx, id, updates, actor, notes)
}

// RecordDecision records the Go/No-Go decision and returns its display
// text. A "go" decision also completes the cycle.
func (s *SQLiteStorage) RecordDecision(ctx context.Context, id string, decision types.Decision, signer, notes string) (string, error) {
	if !decision.IsValid() {
		return "", fmt.Errorf("%w: %q (must be one of go, conditional_go, no_go)", types.ErrInvalidDecision, decision)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE uat_cycles SET
			go_nogo_decision = ?,
			go_nogo_signed_by = ?,
			go_nogo_signed_date = ?,
			go_nogo_notes = ?,
			updated_date = ?`
	args := []interface{}{string(decision), signer, s.today(), nullIfEmpty(notes), s.timestamp()}
	if st, ok := lifecycle.DecisionStatus(decision); ok {
		query += ", status = ?"
		args = append(args, string(st))
	}
	query += " WHERE cycle_id = ?"
	args = append(args, id)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("failed to record decision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%w: %s", types.ErrCycleNotFound, id)
	}

	reason := notes
	if reason == "" {
		reason = "Decision: " + string(decision)
	}
	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordCycle,
		RecordID:     id,
		Action:       "Go/No-Go Decision",
		FieldChanged: "go_nogo_decision",
		NewValue:     string(decision),
		ChangedBy:    signer,
		ChangeReason: reason,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return decision.Display(), nil
}
