package sqlite

import (
	"context"
	"fmt"

	"github.com/uatkit/uat/internal/types"
)

// LogAudit appends an entry to the shared audit trail
func (s *SQLiteStorage) LogAudit(ctx context.Context, entry *types.AuditEntry) error {
	return s.logAudit(ctx, s.db, entry)
}

func (s *SQLiteStorage) logAudit(ctx context.Context, ex execer, entry *types.AuditEntry) error {
	changedBy := entry.ChangedBy
	if changedBy == "" {
		changedBy = "system"
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO audit_history
		(record_type, record_id, action, field_changed, old_value,
		 new_value, changed_by, change_reason, session_id, changed_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.RecordType, entry.RecordID, entry.Action,
		nullIfEmpty(entry.FieldChanged), nullIfEmpty(entry.OldValue), nullIfEmpty(entry.NewValue),
		changedBy, nullIfEmpty(entry.ChangeReason), s.sessionID, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// GetAuditTrail returns the newest entries for a record (all records when
// recordID is empty), newest first
func (s *SQLiteStorage) GetAuditTrail(ctx context.Context, recordID string, limit int) ([]*types.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT audit_id, record_type, record_id, action,
		       COALESCE(field_changed, ''), COALESCE(old_value, ''), COALESCE(new_value, ''),
		       changed_by, COALESCE(change_reason, ''), COALESCE(session_id, ''),
		       COALESCE(changed_date, '')
		FROM audit_history`
	args := []interface{}{}
	if recordID != "" {
		query += " WHERE record_id = ?"
		args = append(args, recordID)
	}
	query += " ORDER BY audit_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []*types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		if err := rows.Scan(&e.AuditID, &e.RecordType, &e.RecordID, &e.Action,
			&e.FieldChanged, &e.OldValue, &e.NewValue, &e.ChangedBy,
			&e.ChangeReason, &e.SessionID, &e.ChangedDate); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
