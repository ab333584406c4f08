package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// WorkflowTest is one test in a workflow export
type WorkflowTest struct {
	TestID           string `json:"test_id"`
	Title            string `json:"title"`
	WorkflowOrder    int    `json:"workflow_order"`
	OriginalCategory string `json:"original_category,omitempty"`
	TestType         string `json:"test_type,omitempty"`
	TestSteps        string `json:"test_steps,omitempty"`
	ExpectedResults  string `json:"expected_results,omitempty"`
	Prerequisites    string `json:"prerequisites,omitempty"`
	Priority         string `json:"priority,omitempty"`
	TestStatus       string `json:"test_status"`
	AssignedTo       string `json:"assigned_to,omitempty"`
}

// WorkflowSection groups tests in the order testers walk the form
type WorkflowSection struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Guidance     string         `json:"guidance"`
	DisplayOrder int            `json:"display_order"`
	TestCount    int            `json:"test_count"`
	Tests        []WorkflowTest `json:"tests"`
}

// WorkflowExport is a cycle's tests reorganized by workflow section
type WorkflowExport struct {
	CycleID      string            `json:"cycle_id"`
	CycleName    string            `json:"cycle_name"`
	Structure    string            `json:"structure"`
	ExportedDate string            `json:"exported_date"`
	TotalTests   int               `json:"total_tests"`
	Sections     []WorkflowSection `json:"sections"`
}

// ExportWorkflow groups a cycle's tests by workflow section. Sections
// with no tests in the cycle are left out.
func (g *Generator) ExportWorkflow(ctx context.Context, cycleID string) (*WorkflowExport, error) {
	cycle, err := g.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	catalog, err := g.store.ListWorkflowSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow sections: %w", err)
	}

	exp := &WorkflowExport{
		CycleID:      cycle.CycleID,
		CycleName:    cycle.Name,
		Structure:    "workflow",
		ExportedDate: g.now().UTC().Format(time.RFC3339),
		Sections:     []WorkflowSection{},
	}
	for _, sec := range catalog {
		tests, err := g.store.ListSectionTests(ctx, cycle.CycleID, sec.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to list tests in section %s: %w", sec.Code, err)
		}
		if len(tests) == 0 {
			continue
		}
		out := WorkflowSection{
			Code:         sec.Code,
			Name:         sec.Name,
			Description:  sec.Description,
			Guidance:     sec.Guidance,
			DisplayOrder: sec.DisplayOrder,
			TestCount:    len(tests),
		}
		for _, tc := range tests {
			out.Tests = append(out.Tests, WorkflowTest{
				TestID:           tc.TestID,
				Title:            tc.Title,
				WorkflowOrder:    tc.WorkflowOrder,
				OriginalCategory: tc.Category,
				TestType:         tc.TestType,
				TestSteps:        tc.TestSteps,
				ExpectedResults:  tc.ExpectedResults,
				Prerequisites:    tc.Prerequisites,
				Priority:         tc.Priority,
				TestStatus:       string(tc.Status),
				AssignedTo:       tc.AssignedTo,
			})
		}
		exp.TotalTests += len(tests)
		exp.Sections = append(exp.Sections, out)
	}

	g.logger.Debug("exported workflow",
		zap.String("cycle_id", cycle.CycleID),
		zap.Int("sections", len(exp.Sections)),
		zap.Int("tests", exp.TotalTests))
	return exp, nil
}

// Encode writes the export as indented JSON
func (e *WorkflowExport) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(e)
}

// Save writes the export to path, creating parent directories
func (e *WorkflowExport) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := e.Encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WorkflowFileName is the default export name for a cycle
func WorkflowFileName(cycleID string) string {
	return cycleID + "_workflow.json"
}
