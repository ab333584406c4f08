package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/storage/sqlite"
	"github.com/uatkit/uat/internal/types"
)

// Storage defines the interface for UAT storage backends
type Storage interface {
	// Cycles
	CreateCycle(ctx context.Context, nc *types.NewCycle, actor string) (string, error)
	GetCycle(ctx context.Context, id string) (*types.Cycle, error)
	FindCycleByName(ctx context.Context, part string) (*types.Cycle, error)
	ResolveCycle(ctx context.Context, ref string) (*types.Cycle, error)
	ListCycles(ctx context.Context, filter types.CycleFilter) ([]*types.Cycle, error)
	ActiveCycles(ctx context.Context, programPrefix string) ([]*types.Cycle, error)
	UpdateCycle(ctx context.Context, id string, updates map[string]interface{}, actor, reason string) error
	UpdateCycleStatus(ctx context.Context, id string, status types.CycleStatus, phaseDate, actor, notes string) error
	RecordDecision(ctx context.Context, id string, decision types.Decision, signer, notes string) (string, error)

	// Pre-UAT gate
	GetGateItems(ctx context.Context, cycleID string) ([]*types.GateItem, error)
	GetGateStatus(ctx context.Context, cycleID string) (types.GateStatus, error)
	UpdateGateItem(ctx context.Context, itemID int64, complete bool, completedBy, notes string) error
	SignOffGate(ctx context.Context, cycleID, signedBy, notes string) error

	// Test cases
	CreateTestCase(ctx context.Context, t *types.TestCase) error
	CreateStory(ctx context.Context, programID string, st *types.Story) error
	GetTestCase(ctx context.Context, testID string) (*types.TestCase, error)
	AssignTestToCycle(ctx context.Context, testID, cycleID, assignedTo string, assignmentType types.AssignmentType) error
	RecordTestResult(ctx context.Context, r *types.TestResult) error
	RecordRetestResult(ctx context.Context, testID string, status types.TestStatus, retestBy, notes string) error
	UpdateDevStatus(ctx context.Context, testID string, status types.DevStatus, notes, actor string) error
	ListCycleTests(ctx context.Context, cycleID string, filter types.TestFilter) ([]*types.TestCase, error)
	ListTesters(ctx context.Context, cycleID string) ([]string, error)
	GetTesterProgress(ctx context.Context, cycleID string) ([]*types.TesterProgress, error)
	GetRetestQueue(ctx context.Context, cycleID string) ([]*types.RetestItem, error)
	GetRuleCoverage(ctx context.Context, cycleID string) ([]*types.RuleCoverage, error)

	// Imports and assignment
	UpsertProfile(ctx context.Context, p *types.Profile, cycleID, programID string) (bool, error)
	AssignByProfile(ctx context.Context, cycleID, id, tester string, assignmentType types.AssignmentType) (int64, error)
	ApplyResult(ctx context.Context, r *types.ImportedResult) (bool, error)
	ReplaceAssignments(ctx context.Context, cycleID string, plan []types.Assignment, actor string) error
	ListCrossChecks(ctx context.Context, cycleID, tester string) ([]*types.TestCase, error)

	// Sign-off
	GetSignoffData(ctx context.Context, cycleID string) (*types.SignoffData, error)

	// Programs
	CreateProgram(ctx context.Context, p *types.Program, actor string) error
	GetProgramByPrefix(ctx context.Context, prefix string) (*types.Program, error)
	ListPrograms(ctx context.Context) ([]*types.Program, error)

	// Workflow sections
	UpsertWorkflowSection(ctx context.Context, sec *types.WorkflowSection) error
	ListWorkflowSections(ctx context.Context) ([]*types.WorkflowSection, error)
	SetTestWorkflow(ctx context.Context, testID, sectionCode string, order int) error
	ListSectionTests(ctx context.Context, cycleID, sectionCode string) ([]*types.TestCase, error)

	// Audit trail
	LogAudit(ctx context.Context, entry *types.AuditEntry) error
	GetAuditTrail(ctx context.Context, recordID string, limit int) ([]*types.AuditEntry, error)

	// Lifecycle
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file
	Path string

	// Logger receives storage diagnostics; nil disables logging
	Logger *zap.Logger
}

// DefaultConfig returns configuration for the discovered shared database
func DefaultConfig() *Config {
	return &Config{Path: DiscoverDatabase("")}
}

// NewStorage opens the shared SQLite database
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	path := cfg.Path
	if path == "" {
		path = DiscoverDatabase("")
	}
	return sqlite.New(ctx, path, cfg.Logger)
}

// Compile-time check that the SQLite backend satisfies Storage
var _ Storage = (*sqlite.SQLiteStorage)(nil)
