// Package nccn imports NCCN rule-validation packages: the test profile
// catalog and per-tester assignment sheets of an Excel workbook.
package nccn

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/types"
)

// DefaultProfileSheet is the catalog sheet of an NCCN UAT package
const DefaultProfileSheet = "Test Profile Catalog"

// importer is the audit actor for package imports
const importer = "nccn_importer"

// Store is the storage the importer writes through
type Store interface {
	GetCycle(ctx context.Context, id string) (*types.Cycle, error)
	UpsertProfile(ctx context.Context, p *types.Profile, cycleID, programID string) (bool, error)
	AssignByProfile(ctx context.Context, cycleID, id, tester string, assignmentType types.AssignmentType) (int64, error)
	LogAudit(ctx context.Context, entry *types.AuditEntry) error
}

// columnFields maps catalog headers onto profile fields
var columnFields = map[string]string{
	"Profile ID":         "profile_id",
	"Test Profile ID":    "profile_id",
	"Change ID":          "change_id",
	"Rule ID":            "target_rule",
	"NCCN Rule":          "target_rule",
	"Change Type":        "change_type",
	"Platform":           "platform",
	"Test Type":          "test_type",
	"Type":               "test_type",
	"Patient Conditions": "patient_conditions",
	"Conditions":         "patient_conditions",
	"Expected Outcome":   "expected_results",
	"Expected Result":    "expected_results",
	"Cross Trigger":      "cross_trigger_check",
	"Notes":              "notes",
}

var requiredFields = []string{"profile_id", "test_type"}

var testTypes = map[string]string{
	"POS":        "positive",
	"POSITIVE":   "positive",
	"NEG":        "negative",
	"NEGATIVE":   "negative",
	"DEP":        "deprecated",
	"DEPRECATED": "deprecated",
}

// NormalizeTestType maps POS/NEG/DEP (and long forms) onto stored test
// types; anything else is lowercased
func NormalizeTestType(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if t, ok := testTypes[upper]; ok {
		return t
	}
	return strings.ToLower(upper)
}

// ProfileOptions controls a catalog import
type ProfileOptions struct {
	File      string
	CycleID   string
	Sheet     string
	ProgramID string // resolved from the cycle when empty
	Preview   bool
}

// ProfileResult summarizes a catalog import
type ProfileResult struct {
	Found        int            `json:"profiles_found"`
	Created      int            `json:"profiles_created"`
	Updated      int            `json:"profiles_updated"`
	ByPlatform   map[string]int `json:"by_platform"`
	ByChangeType map[string]int `json:"by_change_type"`
	ByTestType   map[string]int `json:"by_test_type"`
	Preview      bool           `json:"preview_only"`
	Message      string         `json:"message"`
}

// AssignmentOptions controls a tester sheet import
type AssignmentOptions struct {
	File    string
	CycleID string
	Sheet   string
	Tester  string
	Type    types.AssignmentType
	Preview bool
}

// AssignmentResult summarizes a tester sheet import
type AssignmentResult struct {
	Found    int                  `json:"profiles_found"`
	Assigned int64                `json:"assignments_made"`
	Tester   string               `json:"tester"`
	Type     types.AssignmentType `json:"assignment_type"`
	Preview  bool                 `json:"preview_only"`
	Message  string               `json:"message"`
}

// Importer reads NCCN packages into storage
type Importer struct {
	store  Store
	logger *zap.Logger
}

// New creates an importer. A nil logger disables logging.
func New(store Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger}
}

// ImportProfiles reads the profile catalog. In preview mode nothing is
// written and Created/Updated stay zero.
func (im *Importer) ImportProfiles(ctx context.Context, opts ProfileOptions) (*ProfileResult, error) {
	if opts.Sheet == "" {
		opts.Sheet = DefaultProfileSheet
	}
	rows, err := readSheet(opts.File, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", opts.Sheet)
	}

	indices := make(map[string]int)
	for i, header := range rows[0] {
		if field, ok := columnFields[strings.TrimSpace(header)]; ok {
			if _, dup := indices[field]; !dup {
				indices[field] = i
			}
		}
	}
	var missing []string
	for _, f := range requiredFields {
		if _, ok := indices[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		found := make([]string, 0, len(indices))
		for f := range indices {
			found = append(found, f)
		}
		sort.Strings(found)
		return nil, fmt.Errorf("missing required columns: %s (found: %s)",
			strings.Join(missing, ", "), strings.Join(found, ", "))
	}

	profiles := make([]*types.Profile, 0, len(rows)-1)
	for _, row := range rows[1:] {
		p := profileFromRow(row, indices)
		if p == nil {
			continue
		}
		profiles = append(profiles, p)
	}

	result := &ProfileResult{
		Found:        len(profiles),
		ByPlatform:   make(map[string]int),
		ByChangeType: make(map[string]int),
		ByTestType:   make(map[string]int),
		Preview:      opts.Preview,
	}
	for _, p := range profiles {
		result.ByPlatform[orUnknown(p.Platform)]++
		result.ByChangeType[orUnknown(p.ChangeType)]++
		result.ByTestType[orUnknown(p.TestType)]++
	}

	if opts.Preview {
		result.Message = fmt.Sprintf("Preview: would import %d profiles. Re-run with --no-preview to import.", len(profiles))
		return result, nil
	}

	cycle, err := im.store.GetCycle(ctx, opts.CycleID)
	if err != nil {
		return nil, err
	}
	programID := opts.ProgramID
	if programID == "" {
		programID = cycle.ProgramID
	}

	for _, p := range profiles {
		created, err := im.store.UpsertProfile(ctx, p, cycle.CycleID, programID)
		if err != nil {
			return nil, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := im.store.LogAudit(ctx, &types.AuditEntry{
		RecordType:   types.RecordCycle,
		RecordID:     cycle.CycleID,
		Action:       "Profiles Imported",
		NewValue:     fmt.Sprintf("%d created, %d updated from %s", result.Created, result.Updated, filepath.Base(opts.File)),
		ChangedBy:    importer,
		ChangeReason: "NCCN profile import from " + opts.Sheet,
	}); err != nil {
		return nil, err
	}

	im.logger.Info("imported NCCN profiles",
		zap.String("cycle_id", cycle.CycleID),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	result.Message = fmt.Sprintf("Imported %d new, updated %d existing profiles.", result.Created, result.Updated)
	return result, nil
}

func profileFromRow(row []string, indices map[string]int) *types.Profile {
	cell := func(field string) string {
		i, ok := indices[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	profileID := cell("profile_id")
	if profileID == "" {
		return nil
	}
	p := &types.Profile{
		TestID:            profileID,
		ProfileID:         profileID,
		ChangeID:          cell("change_id"),
		TargetRule:        cell("target_rule"),
		ChangeType:        cell("change_type"),
		Platform:          cell("platform"),
		TestType:          NormalizeTestType(cell("test_type")),
		PatientConditions: cell("patient_conditions"),
		ExpectedResults:   cell("expected_results"),
		CrossTriggerCheck: cell("cross_trigger_check"),
		Notes:             cell("notes"),
	}

	var parts []string
	for _, part := range []string{p.TargetRule, p.TestType, p.Platform} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	p.Title = strings.Join(parts, " - ")
	if p.Title == "" {
		p.Title = profileID
	}
	return p
}

// ImportAssignments reads profile IDs from a tester sheet and assigns the
// matching cycle tests to the tester
func (im *Importer) ImportAssignments(ctx context.Context, opts AssignmentOptions) (*AssignmentResult, error) {
	if opts.Tester == "" {
		return nil, fmt.Errorf("tester is required")
	}
	if opts.Type == "" {
		opts.Type = types.AssignPrimary
	}
	if !opts.Type.IsValid() {
		return nil, fmt.Errorf("invalid assignment type: %s", opts.Type)
	}

	rows, err := readSheet(opts.File, opts.Sheet)
	if err != nil {
		return nil, err
	}
	col := -1
	if len(rows) > 0 {
		for i, header := range rows[0] {
			switch strings.TrimSpace(header) {
			case "Profile ID", "Test Profile ID", "profile_id":
				col = i
			}
			if col >= 0 {
				break
			}
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("profile ID column not found in sheet %q", opts.Sheet)
	}

	var ids []string
	for _, row := range rows[1:] {
		if col < len(row) {
			if id := strings.TrimSpace(row[col]); id != "" {
				ids = append(ids, id)
			}
		}
	}

	result := &AssignmentResult{Found: len(ids), Tester: opts.Tester, Type: opts.Type, Preview: opts.Preview}
	if opts.Preview {
		result.Message = fmt.Sprintf("Preview: would assign %d profiles to %s", len(ids), opts.Tester)
		return result, nil
	}

	if _, err := im.store.GetCycle(ctx, opts.CycleID); err != nil {
		return nil, err
	}
	for _, id := range ids {
		n, err := im.store.AssignByProfile(ctx, opts.CycleID, id, opts.Tester, opts.Type)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			im.logger.Debug("profile not in cycle", zap.String("profile_id", id))
		}
		result.Assigned += n
	}

	if err := im.store.LogAudit(ctx, &types.AuditEntry{
		RecordType:   types.RecordCycle,
		RecordID:     opts.CycleID,
		Action:       "Tests Assigned",
		NewValue:     fmt.Sprintf("%d tests assigned to %s (%s)", result.Assigned, opts.Tester, opts.Type),
		ChangedBy:    importer,
		ChangeReason: "Bulk assignment from " + filepath.Base(opts.File),
	}); err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("Assigned %d tests to %s", result.Assigned, opts.Tester)
	return result, nil
}

// readSheet returns all rows of a sheet, failing with the available sheet
// names when it is missing. An empty name reads the first sheet.
func readSheet(path, sheet string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if sheet == "" && len(sheets) > 0 {
		sheet = sheets[0]
	}
	found := false
	for _, s := range sheets {
		if s == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(sheets, ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
