package sqlite

import (
	"context"
	"fmt"

	"github.com/uatkit/uat/internal/types"
)

// UpsertWorkflowSection creates or replaces a workflow section definition
func (s *SQLiteStorage) UpsertWorkflowSection(ctx context.Context, sec *types.WorkflowSection) error {
	if sec.Code == "" || sec.Name == "" {
		return fmt.Errorf("section code and name are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uat_workflow_sections (section_code, section_name, section_description, guidance_text, display_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(section_code) DO UPDATE SET
			section_name = excluded.section_name,
			section_description = excluded.section_description,
			guidance_text = excluded.guidance_text,
			display_order = excluded.display_order
	`, sec.Code, sec.Name, nullIfEmpty(sec.Description), nullIfEmpty(sec.Guidance), sec.DisplayOrder)
	if err != nil {
		return fmt.Errorf("failed to save workflow section: %w", err)
	}
	return nil
}

// ListWorkflowSections returns sections in display order
func (s *SQLiteStorage) ListWorkflowSections(ctx context.Context) ([]*types.WorkflowSection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_code, section_name, COALESCE(section_description, ''),
		       COALESCE(guidance_text, ''), display_order
		FROM uat_workflow_sections
		ORDER BY display_order, section_code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow sections: %w", err)
	}
	defer rows.Close()

	var sections []*types.WorkflowSection
	for rows.Next() {
		var sec types.WorkflowSection
		if err := rows.Scan(&sec.Code, &sec.Name, &sec.Description, &sec.Guidance, &sec.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan workflow section: %w", err)
		}
		sections = append(sections, &sec)
	}
	return sections, rows.Err()
}

// SetTestWorkflow places a test in a workflow section at the given order
func (s *SQLiteStorage) SetTestWorkflow(ctx context.Context, testID, sectionCode string, order int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE uat_test_cases SET workflow_section = ?, workflow_order = ?, updated_date = ?
		WHERE test_id = ?
	`, sectionCode, order, s.timestamp(), testID)
	if err != nil {
		return fmt.Errorf("failed to set workflow for %s: %w", testID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrTestNotFound, testID)
	}
	return nil
}

// ListSectionTests returns a cycle's tests in one workflow section, in
// workflow order
func (s *SQLiteStorage) ListSectionTests(ctx context.Context, cycleID, sectionCode string) ([]*types.TestCase, error) {
	return s.queryTests(ctx, `
		WHERE uat_cycle_id = ? AND workflow_section = ?
		ORDER BY COALESCE(workflow_order, 0), test_id`, cycleID, sectionCode)
}
