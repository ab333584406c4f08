// Package results imports test results exported by tester trackers or
// submitted through Formspree.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/types"
)

// Sync types sent by tracker pages. Anything other than "final" is a
// progress sync and only carries executed tests.
const (
	SyncAutoOpen = "auto_open"
	SyncAuto10pm = "auto_10pm"
	SyncManual   = "manual"
	SyncFinal    = "final"
)

// Result is one test outcome in a payload. Status falls back to
// TestStatus for older tracker exports.
type Result struct {
	TestID     string `json:"test_id"`
	Status     string `json:"status,omitempty"`
	TestStatus string `json:"test_status,omitempty"`
	Notes      string `json:"notes,omitempty"`
	TestedDate string `json:"tested_date,omitempty"`
}

func (r Result) status() string {
	if r.Status != "" {
		return r.Status
	}
	return r.TestStatus
}

// Payload is a tracker export or form submission
type Payload struct {
	Tester      string   `json:"tester"`
	SyncType    string   `json:"sync_type,omitempty"`
	SubmittedAt string   `json:"submitted_at,omitempty"`
	SyncedAt    string   `json:"synced_at,omitempty"`
	Results     []Result `json:"results"`
}

// IsProgressSync reports whether the payload is a partial progress sync
func (p *Payload) IsProgressSync() bool {
	switch p.SyncType {
	case SyncAutoOpen, SyncAuto10pm, SyncManual:
		return true
	}
	return false
}

// Decode reads a JSON payload
func Decode(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse results JSON: %w", err)
	}
	return &p, nil
}

// LoadFile reads a JSON payload from disk
func LoadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Options controls an import
type Options struct {
	// Partial skips Not Run results so earlier results survive a
	// progress sync. Progress sync payloads force it on.
	Partial bool

	// Source names the payload origin in the audit reason
	Source string
}

// Summary reports what an import did
type Summary struct {
	Tester      string   `json:"tester"`
	SyncType    string   `json:"sync_type"`
	Partial     bool     `json:"partial"`
	SubmittedAt string   `json:"submitted_at"`
	Total       int      `json:"total_in_file"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	NotFound    int      `json:"not_found"`
	Errors      []string `json:"errors"`
}

// Store is the storage results are applied through
type Store interface {
	ApplyResult(ctx context.Context, r *types.ImportedResult) (bool, error)
	LogAudit(ctx context.Context, entry *types.AuditEntry) error
}

// Importer applies result payloads to storage
type Importer struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// New creates an importer. A nil logger disables logging.
func New(store Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger, now: time.Now}
}

// Import applies every result in the payload. Per-result problems are
// collected in Summary.Errors and do not stop the import; one batch
// audit entry is written at the end.
func (im *Importer) Import(ctx context.Context, p *Payload, opts Options) (*Summary, error) {
	if len(p.Results) == 0 {
		return nil, fmt.Errorf("no results found")
	}

	tester := p.Tester
	if tester == "" {
		tester = "Unknown"
	}
	syncType := p.SyncType
	if syncType == "" {
		syncType = SyncFinal
	}
	submittedAt := p.SubmittedAt
	if submittedAt == "" {
		submittedAt = p.SyncedAt
	}
	if submittedAt == "" {
		submittedAt = im.now().UTC().Format(time.RFC3339)
	}

	sum := &Summary{
		Tester:      tester,
		SyncType:    syncType,
		Partial:     opts.Partial || p.IsProgressSync(),
		SubmittedAt: submittedAt,
		Total:       len(p.Results),
		Errors:      []string{},
	}

	for _, r := range p.Results {
		raw := r.status()
		if r.TestID == "" || raw == "" {
			sum.Errors = append(sum.Errors, fmt.Sprintf("missing test_id or status: %+v", r))
			continue
		}
		status := types.NormalizeTestStatus(raw)
		if sum.Partial && status == types.TestNotRun {
			sum.Skipped++
			continue
		}
		if !status.IsValid() {
			sum.Errors = append(sum.Errors, fmt.Sprintf("invalid status %q for %s", raw, r.TestID))
			continue
		}

		testedDate := r.TestedDate
		if testedDate == "" {
			testedDate = submittedAt
		}
		found, err := im.store.ApplyResult(ctx, &types.ImportedResult{
			TestID:     r.TestID,
			Status:     status,
			TestedBy:   tester,
			TestedDate: testedDate,
			Notes:      r.Notes,
		})
		if err != nil {
			sum.Errors = append(sum.Errors, fmt.Sprintf("error updating %s: %v", r.TestID, err))
			continue
		}
		if !found {
			sum.NotFound++
			sum.Errors = append(sum.Errors, "test not found in database: "+r.TestID)
			continue
		}
		sum.Updated++
	}

	action, verb, kind := "IMPORT", "Imported", "import"
	if sum.Partial {
		action, verb, kind = "SYNC", "Synced", "sync"
	}
	reason := "JSON " + syncType
	if opts.Source != "" {
		reason += " from " + opts.Source
	}
	if err := im.store.LogAudit(ctx, &types.AuditEntry{
		RecordType:   types.RecordTestBatch,
		RecordID:     fmt.Sprintf("batch-%s-%d", kind, sum.Total),
		Action:       action,
		FieldChanged: "test_status",
		NewValue:     fmt.Sprintf("%s %d results, %d skipped, %d not found", verb, sum.Updated, sum.Skipped, sum.NotFound),
		ChangedBy:    tester,
		ChangeReason: reason,
	}); err != nil {
		return nil, err
	}

	im.logger.Info("imported results",
		zap.String("tester", tester),
		zap.String("sync_type", syncType),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("not_found", sum.NotFound))
	return sum, nil
}
