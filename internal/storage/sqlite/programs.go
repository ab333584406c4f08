package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/uatkit/uat/internal/types"
)

// CreateProgram registers a program so cycles can be linked to it by prefix.
// The requirements system normally owns this table; this exists for
// standalone databases.
func (s *SQLiteStorage) CreateProgram(ctx context.Context, p *types.Program, actor string) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("program name is required")
	}
	p.Prefix = strings.ToUpper(strings.TrimSpace(p.Prefix))
	if p.Prefix == "" {
		return fmt.Errorf("program prefix is required")
	}
	if p.ProgramID == "" {
		p.ProgramID = "PRG-" + strings.ToUpper(uuid.NewString()[:8])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO programs (program_id, client_id, program_name, prefix)
		VALUES (?, ?, ?, ?)
	`, p.ProgramID, nullIfEmpty(p.ClientID), p.Name, p.Prefix); err != nil {
		return fmt.Errorf("failed to insert program: %w", err)
	}

	if err := s.logAudit(ctx, tx, &types.AuditEntry{
		RecordType: "program",
		RecordID:   p.ProgramID,
		Action:     "Created",
		NewValue:   fmt.Sprintf("%s (%s)", p.Name, p.Prefix),
		ChangedBy:  actor,
	}); err != nil {
		return err
	}

	return tx.Commit()
}

// GetProgramByPrefix looks a program up by prefix, ignoring case.
// Returns nil when no program matches.
func (s *SQLiteStorage) GetProgramByPrefix(ctx context.Context, prefix string) (*types.Program, error) {
	var p types.Program
	err := s.db.QueryRowContext(ctx, `
		SELECT program_id, COALESCE(client_id, ''), program_name, prefix
		FROM programs
		WHERE UPPER(prefix) = UPPER(?)
	`, prefix).Scan(&p.ProgramID, &p.ClientID, &p.Name, &p.Prefix)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return &p, nil
}

// ListPrograms returns all programs ordered by prefix
func (s *SQLiteStorage) ListPrograms(ctx context.Context) ([]*types.Program, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT program_id, COALESCE(client_id, ''), program_name, prefix
		FROM programs
		ORDER BY prefix
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list programs: %w", err)
	}
	defer rows.Close()

	var programs []*types.Program
	for rows.Next() {
		var p types.Program
		if err := rows.Scan(&p.ProgramID, &p.ClientID, &p.Name, &p.Prefix); err != nil {
			return nil, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, &p)
	}
	return programs, rows.Err()
}
