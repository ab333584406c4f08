// Package session runs an interactive execution loop that walks a tester
// through their unexecuted tests and records each result.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/types"
)

// Store is the storage surface the session needs
type Store interface {
	GetCycle(ctx context.Context, id string) (*types.Cycle, error)
	ListCycleTests(ctx context.Context, cycleID string, filter types.TestFilter) ([]*types.TestCase, error)
	RecordTestResult(ctx context.Context, r *types.TestResult) error
}

// LineReader reads one line of input per prompt
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Close() error
}

// Config holds session configuration
type Config struct {
	Store   Store
	CycleID string

	// Tester limits the session to tests assigned to them. Empty walks
	// every unexecuted test in the cycle.
	Tester string

	// Actor is recorded as tested_by when Tester is empty
	Actor string

	Logger *zap.Logger
	Out    io.Writer

	// Reader overrides the terminal (tests)
	Reader LineReader
}

// Summary counts what happened during a session
type Summary struct {
	Passed    int
	Failed    int
	Blocked   int
	Skipped   int
	Deferred  int
	Remaining int
}

// Total is the number of results written
func (s Summary) Total() int {
	return s.Passed + s.Failed + s.Blocked + s.Skipped
}

// Session walks a tester through their Not Run tests
type Session struct {
	store   Store
	cycleID string
	tester  string
	actor   string
	logger  *zap.Logger
	out     io.Writer
	rl      LineReader
}

// errQuit ends the loop early
var errQuit = errors.New("quit")

const actionPrompt = "[p]ass [f]ail [b]locked [s]kip [n]ext [q]uit > "

// New creates a session
func New(cfg *Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.CycleID == "" {
		return nil, fmt.Errorf("cycle ID is required")
	}
	actor := cfg.Actor
	if actor == "" {
		actor = "user"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Session{
		store:   cfg.Store,
		cycleID: cfg.CycleID,
		tester:  cfg.Tester,
		actor:   actor,
		logger:  logger,
		out:     out,
		rl:      cfg.Reader,
	}, nil
}

// Run starts the loop and returns once every test was handled, the
// tester quit, or input ended
func (s *Session) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	cycle, err := s.store.GetCycle(ctx, s.cycleID)
	if err != nil {
		return sum, err
	}
	tests, err := s.store.ListCycleTests(ctx, cycle.CycleID, types.TestFilter{
		AssignedTo: s.tester,
		Status:     types.TestNotRun,
	})
	if err != nil {
		return sum, fmt.Errorf("failed to list tests: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(s.out, "\n%s\n", cyan("UAT Execution: "+cycle.Name))
	who := s.tester
	if who == "" {
		who = "all testers"
	}
	fmt.Fprintf(s.out, "%d test(s) not yet run for %s\n", len(tests), who)
	if len(tests) == 0 {
		return sum, nil
	}

	if s.rl == nil {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:            actionPrompt,
			InterruptPrompt:   "^C",
			EOFPrompt:         "quit",
			HistorySearchFold: true,
		})
		if err != nil {
			return sum, fmt.Errorf("failed to create readline: %w", err)
		}
		s.rl = rl
	}
	defer s.rl.Close()

	for i, tc := range tests {
		if err := ctx.Err(); err != nil {
			sum.Remaining = len(tests) - i
			return sum, err
		}
		s.show(tc, i+1, len(tests))

		status, err := s.handle(ctx, tc)
		if errors.Is(err, errQuit) {
			sum.Remaining = len(tests) - i
			break
		}
		if err != nil {
			sum.Remaining = len(tests) - i
			return sum, err
		}
		switch status {
		case types.TestPass:
			sum.Passed++
		case types.TestFail:
			sum.Failed++
		case types.TestBlocked:
			sum.Blocked++
		case types.TestSkipped:
			sum.Skipped++
		default:
			sum.Deferred++
		}
	}

	s.printSummary(sum)
	return sum, nil
}

// handle prompts until the tester picks an action for tc. An empty status
// means the test was deferred.
func (s *Session) handle(ctx context.Context, tc *types.TestCase) (types.TestStatus, error) {
	red := color.New(color.FgRed).SprintFunc()
	for {
		s.rl.SetPrompt(actionPrompt)
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return "", errQuit
			}
			return "", err
		}

		var status types.TestStatus
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "p", "pass":
			status = types.TestPass
		case "f", "fail":
			status = types.TestFail
		case "b", "blocked":
			status = types.TestBlocked
		case "s", "skip":
			status = types.TestSkipped
		case "n", "next":
			return "", nil
		case "q", "quit", "exit":
			return "", errQuit
		case "":
			continue
		default:
			fmt.Fprintf(s.out, "%s unknown action %q\n", red("✗"), line)
			continue
		}

		result := &types.TestResult{
			TestID:   tc.TestID,
			Status:   status,
			TestedBy: s.testedBy(tc),
		}
		if result.Notes, err = s.ask("Notes (optional): "); err != nil {
			return "", err
		}
		if status == types.TestFail {
			if result.DefectID, err = s.ask("Defect ID (optional): "); err != nil {
				return "", err
			}
			if result.DefectID != "" {
				result.DefectDescription = result.Notes
			}
		}

		if err := s.store.RecordTestResult(ctx, result); err != nil {
			return "", fmt.Errorf("failed to record %s: %w", tc.TestID, err)
		}
		s.logger.Debug("recorded result",
			zap.String("test_id", tc.TestID),
			zap.String("status", string(status)),
			zap.String("tested_by", result.TestedBy))

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(s.out, "%s %s → %s\n", green("✓"), tc.TestID, status)
		return status, nil
	}
}

// ask reads a free-text answer; end of input counts as an empty answer
func (s *Session) ask(prompt string) (string, error) {
	s.rl.SetPrompt(prompt)
	line, err := s.rl.Readline()
	if err == io.EOF || err == readline.ErrInterrupt {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) testedBy(tc *types.TestCase) string {
	if s.tester != "" {
		return s.tester
	}
	if tc.AssignedTo != "" {
		return tc.AssignedTo
	}
	return s.actor
}

func (s *Session) show(tc *types.TestCase, n, total int) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(s.out, "\n%s\n", strings.Repeat("─", 50))
	fmt.Fprintf(s.out, "[%d/%d] %s  %s\n", n, total, bold(tc.TestID), tc.Title)
	if tc.ProfileID != "" && tc.ProfileID != tc.TestID {
		fmt.Fprintf(s.out, "  Profile:    %s\n", tc.ProfileID)
	}
	if tc.TargetRule != "" {
		fmt.Fprintf(s.out, "  Rule:       %s\n", tc.TargetRule)
	}
	if tc.Platform != "" {
		fmt.Fprintf(s.out, "  Platform:   %s\n", tc.Platform)
	}
	if tc.PatientConditions != "" {
		fmt.Fprintf(s.out, "  Conditions: %s\n", tc.PatientConditions)
	}
	if tc.Prerequisites != "" {
		fmt.Fprintf(s.out, "  Prereqs:    %s\n", tc.Prerequisites)
	}
	if tc.TestSteps != "" {
		fmt.Fprintf(s.out, "  Steps:\n    %s\n", strings.ReplaceAll(tc.TestSteps, "\n", "\n    "))
	}
	if tc.ExpectedResults != "" {
		fmt.Fprintf(s.out, "  Expected:   %s\n", tc.ExpectedResults)
	}
}

func (s *Session) printSummary(sum Summary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintf(s.out, "\n%s\n", cyan("Session complete"))
	fmt.Fprintf(s.out, "  Recorded: %d (pass %d, fail %d, blocked %d, skipped %d)\n",
		sum.Total(), sum.Passed, sum.Failed, sum.Blocked, sum.Skipped)
	if sum.Deferred > 0 {
		fmt.Fprintf(s.out, "  Deferred: %d\n", sum.Deferred)
	}
	if sum.Remaining > 0 {
		fmt.Fprintf(s.out, "  Remaining: %d\n", sum.Remaining)
	}
}
