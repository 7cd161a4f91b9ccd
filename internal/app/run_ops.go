package app

import (
	"context"
	"os/exec"
	"time"

	"github.com/example/braid/internal/ident"
	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
	"github.com/example/braid/internal/regress"
)

// RecordRun logs one completed test execution and applies regression
// handling: a failing run reopens every done entity linked to the test
// by a tested_by edge, clearing closed_at and appending a structured
// note with the failure summary and commits recorded since close.
func (s *Store) RecordRun(ctx context.Context, req primary.RecordRunRequest) (*models.TestRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test := s.snap.Load().Entity(req.TestID)
	if test == nil {
		return nil, &models.NotFoundError{ID: req.TestID}
	}
	if test.Type != models.TypeTest {
		return nil, &models.ValidationError{Field: "test_id", Reason: req.TestID + " is a " + test.Type + ", not a test"}
	}

	run := &models.TestRun{
		ID:         ident.NewRun(),
		TestID:     req.TestID,
		Outcome:    req.Outcome,
		ExitCode:   req.ExitCode,
		DurationMS: req.Duration.Milliseconds(),
		Output:     req.Output,
		StartedAt:  req.StartedAt,
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.TruncateOutput()
	if err := run.Validate(); err != nil {
		return nil, err
	}

	if err := s.commit(&journal.Record{Op: journal.OpRunRecorded, Run: run}); err != nil {
		return nil, err
	}

	// Regression pass runs against the snapshot that already contains
	// the run, so the reopen notes see the full commit history.
	for _, action := range regress.Plan(s.snap.Load(), run) {
		if _, err := s.reopenLocked(action.EntityID, action.NoteBody, models.NoteReopen); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// LatestRun returns the latest recorded run for a test, or nil when the
// test has never run.
func (s *Store) LatestRun(ctx context.Context, testID string) (*models.TestRun, error) {
	snap := s.snap.Load()
	if snap.Entity(testID) == nil {
		return nil, &models.NotFoundError{ID: testID}
	}
	return snap.LatestRun(testID), nil
}

// RunHistory replays the full append-only run history of a test from
// the log, oldest first. History is never rewritten; concurrent runs
// only contend for the latest-result pointer.
func (s *Store) RunHistory(ctx context.Context, testID string) ([]*models.TestRun, error) {
	if s.snap.Load().Entity(testID) == nil {
		return nil, &models.NotFoundError{ID: testID}
	}
	var out []*models.TestRun
	err := s.journal.Replay(func(rec *journal.Record) error {
		if rec.Op == journal.OpRunRecorded && rec.Run != nil && rec.Run.TestID == testID {
			r := *rec.Run
			out = append(out, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExecRun executes a test command off the query path, captures its exit
// status, duration, and truncated output, and records the result. A run
// cut short by the timeout is logged with the distinct timeout outcome
// rather than dropped.
func (s *Store) ExecRun(ctx context.Context, testID string, argv []string, timeout time.Duration) (*models.TestRun, error) {
	if len(argv) == 0 {
		return nil, &models.ValidationError{Field: "argv", Reason: "must not be empty"}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := time.Now().UTC()
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	output, runErr := cmd.CombinedOutput()
	duration := time.Since(started)

	req := primary.RecordRunRequest{
		TestID:    testID,
		Output:    string(output),
		Duration:  duration,
		StartedAt: started,
	}
	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		req.Outcome = models.OutcomeTimeout
		req.ExitCode = -1
	case runErr == nil:
		req.Outcome = models.OutcomePass
	default:
		req.Outcome = models.OutcomeFail
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			req.ExitCode = exitErr.ExitCode()
		} else {
			req.ExitCode = -1
		}
	}
	return s.RecordRun(ctx, req)
}
