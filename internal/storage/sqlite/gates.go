package sqlite

import (
	"context"
	"fmt"

	"github.com/uatkit/uat/internal/gates"
	"github.com/uatkit/uat/internal/types"
)

// GetGateItems returns a cycle's checklist ordered by category and sequence
func (s *SQLiteStorage) GetGateItems(ctx context.Context, cycleID string) ([]*types.GateItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, cycle_id, category, sequence, item_text, is_required, is_complete,
		       COALESCE(completed_by, ''), COALESCE(completed_date, ''), COALESCE(notes, '')
		FROM pre_uat_gate_items
		WHERE cycle_id = ?
		ORDER BY category, sequence
	`, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gate items: %w", err)
	}
	defer rows.Close()

	var items []*types.GateItem
	for rows.Next() {
		var item types.GateItem
		var required, complete int
		if err := rows.Scan(&item.ItemID, &item.CycleID, &item.Category, &item.Sequence,
			&item.Text, &required, &complete,
			&item.CompletedBy, &item.CompletedDate, &item.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan gate item: %w", err)
		}
		item.Required = required != 0
		item.Complete = complete != 0
		items = append(items, &item)
	}
	return items, rows.Err()
}

// GetGateStatus summarizes a cycle's checklist
func (s *SQLiteStorage) GetGateStatus(ctx context.Context, cycleID string) (types.GateStatus, error) {
	items, err := s.GetGateItems(ctx, cycleID)
	if err != nil {
		return types.GateStatus{}, err
	}
	return gates.Evaluate(items), nil
}

// UpdateGateItem marks a checklist item complete or incomplete.
// Notes are kept when none are given.
func (s *SQLiteStorage) UpdateGateItem(ctx context.Context, itemID int64, complete bool, completedBy, notes string) error {
	var completedDate interface{}
	flag := 0
	if complete {
		completedDate = s.today()
		flag = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE pre_uat_gate_items SET
			is_complete = ?,
			completed_by = ?,
			completed_date = ?,
			notes = COALESCE(?, notes)
		WHERE item_id = ?
	`, flag, nullIfEmpty(completedBy), completedDate, nullIfEmpty(notes), itemID)
	if err != nil {
		return fmt.Errorf("failed to update gate item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", types.ErrGateItemNotFound, itemID)
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordGateItem,
		RecordID:     fmt.Sprint(itemID),
		Action:       "Updated",
		FieldChanged: "is_complete",
		NewValue:     fmt.Sprint(flag),
		ChangedBy:    completedBy,
		ChangeReason: notes,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// SignOffGate records the pre-UAT gate sign-off. It fails with
// ErrGateNotReady while required items are pending.
func (s *SQLiteStorage) SignOffGate(ctx context.Context, cycleID, signedBy, notes string) error {
	if _, err := s.GetCycle(ctx, cycleID); err != nil {
		return err
	}
	status, err := s.GetGateStatus(ctx, cycleID)
	if err != nil {
		return err
	}
	if err := gates.CheckReady(status); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE uat_cycles SET
			pre_uat_gate_passed = 1,
			pre_uat_gate_signed_by = ?,
			pre_uat_gate_signed_date = ?,
			pre_uat_gate_notes = ?,
			updated_date = ?
		WHERE cycle_id = ?
	`, signedBy, s.today(), nullIfEmpty(notes), s.timestamp(), cycleID); err != nil {
		return fmt.Errorf("failed to sign off gate: %w", err)
	}

	reason := notes
	if reason == "" {
		reason = "Pre-UAT gate signed off"
	}
	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType:   types.RecordCycle,
		RecordID:     cycleID,
		Action:       "Gate Signed Off",
		FieldChanged: "pre_uat_gate_passed",
		OldValue:     "0",
		NewValue:     "1",
		ChangedBy:    signedBy,
		ChangeReason: reason,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
