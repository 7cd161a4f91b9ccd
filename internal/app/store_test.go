package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("expected no error opening store, got %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createEntity(t *testing.T, s *Store, family, title string) *models.Entity {
	t.Helper()
	e, err := s.CreateEntity(context.Background(), primary.CreateEntityRequest{
		Type:     family,
		Title:    title,
		Priority: 2,
	})
	if err != nil {
		t.Fatalf("expected no error creating %s, got %v", family, err)
	}
	return e
}

// ============================================================================
// Entity lifecycle
// ============================================================================

func TestCreateEntity_Success(t *testing.T) {
	s := newTestStore(t)
	e := createEntity(t, s, models.TypeTask, "Implement login")

	if !strings.HasPrefix(e.ID, "tk-") {
		t.Errorf("expected tk- prefix, got %s", e.ID)
	}
	if e.Status != models.StatusPending {
		t.Errorf("expected pending status, got %s", e.Status)
	}
	if e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestCreateEntity_UnknownFamily(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateEntity(context.Background(), primary.CreateEntityRequest{Type: "epic", Title: "nope"})
	if err == nil {
		t.Fatal("expected error for unknown family, got nil")
	}
}

func TestCreateEntity_EmptyTitle(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateEntity(context.Background(), primary.CreateEntityRequest{Type: models.TypeTask})
	if err == nil {
		t.Fatal("expected error for empty title, got nil")
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetEntity(context.Background(), "tk-missing0")
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestListEntities_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	createEntity(t, s, models.TypeTask, "task one")
	createEntity(t, s, models.TypeBug, "bug one")
	bug := createEntity(t, s, models.TypeBug, "bug two")
	if _, err := s.CloseEntity(ctx, bug.ID, "fixed"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	all, err := s.ListEntities(ctx, "", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 entities, got %d", len(all))
	}

	bugs, err := s.ListEntities(ctx, models.TypeBug, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(bugs) != 2 {
		t.Errorf("expected 2 bugs, got %d", len(bugs))
	}

	done, err := s.ListEntities(ctx, models.TypeBug, models.StatusDone)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(done) != 1 || done[0].ID != bug.ID {
		t.Errorf("expected only the closed bug, got %d entries", len(done))
	}

	if _, err := s.ListEntities(ctx, "epic", ""); err == nil {
		t.Error("expected error for unknown family filter, got nil")
	}
}

func TestUpdateEntity_PartialFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "original")

	title := "renamed"
	priority := 0
	updated, err := s.UpdateEntity(ctx, primary.UpdateEntityRequest{ID: e.ID, Title: &title, Priority: &priority})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.Title != "renamed" || updated.Priority != 0 {
		t.Errorf("expected partial update applied, got %+v", updated)
	}
	if updated.Status != models.StatusPending {
		t.Errorf("expected untouched status, got %s", updated.Status)
	}
}

func TestUpdateEntity_TerminalStatusStampsClosedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "task")

	status := models.StatusDone
	updated, err := s.UpdateEntity(ctx, primary.UpdateEntityRequest{ID: e.ID, Status: &status})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.ClosedAt == nil {
		t.Fatal("expected closed_at stamped on terminal status")
	}

	status = models.StatusInProgress
	updated, err = s.UpdateEntity(ctx, primary.UpdateEntityRequest{ID: e.ID, Status: &status})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.ClosedAt != nil {
		t.Error("expected closed_at cleared on leaving terminal status")
	}
}

func TestCloseEntity_SetsReasonAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	e := createEntity(t, s, models.TypeTask, "task")

	closed, err := s.CloseEntity(context.Background(), e.ID, "shipped")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if closed.Status != models.StatusDone {
		t.Errorf("expected done, got %s", closed.Status)
	}
	if closed.ClosedAt == nil || closed.ClosedReason != "shipped" {
		t.Errorf("expected closed_at and reason set, got %+v", closed)
	}
}

func TestCloseEntity_AlreadyClosed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "task")
	if _, err := s.CloseEntity(ctx, e.ID, "done"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := s.CloseEntity(ctx, e.ID, "again")
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}

func TestReopenEntity_ClearsCloseState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "task")
	if _, err := s.CloseEntity(ctx, e.ID, "shipped"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	reopened, err := s.ReopenEntity(ctx, e.ID, "regression found")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reopened.Status != models.StatusReopened {
		t.Errorf("expected reopened status, got %s", reopened.Status)
	}
	if reopened.ClosedAt != nil || reopened.ClosedReason != "" {
		t.Errorf("expected close state cleared, got %+v", reopened)
	}

	notes, err := s.Notes(ctx, e.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(notes) != 1 || notes[0].Body != "regression found" {
		t.Errorf("expected reopen note, got %+v", notes)
	}
}

func TestReopenEntity_NotClosed(t *testing.T) {
	s := newTestStore(t)
	e := createEntity(t, s, models.TypeTask, "task")

	_, err := s.ReopenEntity(context.Background(), e.ID, "why")
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for open entity, got %T: %v", err, err)
	}
}

func TestDeleteEntity_Tombstone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "task")

	if err := s.DeleteEntity(ctx, e.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.GetEntity(ctx, e.ID); err == nil {
		t.Error("expected entity gone after delete")
	}
	if err := s.DeleteEntity(ctx, e.ID); err == nil {
		t.Error("expected error deleting twice")
	}
}

// A tombstone survives an index rebuild: history stays in the log, the
// projection forgets.
func TestDeleteEntity_SurvivesRebuild(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	keep := createEntity(t, s, models.TypeTask, "keeper")
	gone := createEntity(t, s, models.TypeTask, "goner")
	if err := s.DeleteEntity(ctx, gone.ID); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := s.RebuildIndex(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.GetEntity(ctx, keep.ID); err != nil {
		t.Errorf("expected keeper to survive rebuild, got %v", err)
	}
	if _, err := s.GetEntity(ctx, gone.ID); err == nil {
		t.Error("expected tombstoned entity gone after rebuild")
	}
}

func TestStore_StatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	e := createEntity(t, s, models.TypeTask, "persistent")
	if _, err := s.CloseEntity(ctx, e.ID, "done"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	s.Close()

	s, err = Open(dir, Options{})
	if err != nil {
		t.Fatalf("expected no error on reopen, got %v", err)
	}
	defer s.Close()

	got, err := s.GetEntity(ctx, e.ID)
	if err != nil {
		t.Fatalf("expected entity after reopen, got %v", err)
	}
	if got.Status != models.StatusDone || got.ClosedReason != "done" {
		t.Errorf("expected closed state preserved, got %+v", got)
	}
}

// ============================================================================
// Notes and commits
// ============================================================================

func TestAddNote_KindsAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "task")

	if _, err := s.AddNote(ctx, e.ID, models.NoteComment, "first"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.AddNote(ctx, e.ID, models.NoteSystem, "second"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.AddNote(ctx, e.ID, "shout", "bad kind"); err == nil {
		t.Error("expected error for unknown note kind, got nil")
	}
	if _, err := s.AddNote(ctx, "tk-missing0", models.NoteComment, "x"); err == nil {
		t.Error("expected error for unknown entity, got nil")
	}

	notes, err := s.Notes(ctx, e.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(notes) != 2 || notes[0].Body != "first" || notes[1].Body != "second" {
		t.Errorf("expected append-only note order, got %+v", notes)
	}
}

func TestLinkCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := createEntity(t, s, models.TypeTask, "task")

	if err := s.LinkCommit(ctx, e.ID, "deadbeef"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.LinkCommit(ctx, e.ID, ""); err == nil {
		t.Error("expected error for empty hash, got nil")
	}
	if err := s.LinkCommit(ctx, "tk-missing0", "deadbeef"); err == nil {
		t.Error("expected error for unknown entity, got nil")
	}

	commits := s.Snapshot().Commits(e.ID)
	if len(commits) != 1 || commits[0].Hash != "deadbeef" {
		t.Errorf("expected 1 linked commit, got %+v", commits)
	}
}

// ============================================================================
// Edges and graph queries
// ============================================================================

func TestAddEdge_Success(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")
	b := createEntity(t, s, models.TypeTask, "b")

	edge, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeDependsOn})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(edge.ID, "ed-") {
		t.Errorf("expected ed- prefix, got %s", edge.ID)
	}
}

func TestAddEdge_UnknownEndpoint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")

	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: "tk-missing0", Type: models.EdgeDependsOn}); err == nil {
		t.Error("expected error for unknown target, got nil")
	}
	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: "tk-missing0", Target: a.ID, Type: models.EdgeDependsOn}); err == nil {
		t.Error("expected error for unknown source, got nil")
	}
}

func TestAddEdge_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")
	b := createEntity(t, s, models.TypeTask, "b")

	req := primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeDependsOn}
	if _, err := s.AddEdge(ctx, req); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_, err := s.AddEdge(ctx, req)
	var conflict *models.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for duplicate, got %T: %v", err, err)
	}

	// Same endpoints under a different type is a distinct relation.
	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeRelatedTo}); err != nil {
		t.Errorf("expected different type to pass, got %v", err)
	}
}

func TestAddEdge_CycleRejectedAtomically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")
	b := createEntity(t, s, models.TypeTask, "b")

	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeDependsOn}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	before := s.Snapshot().Version

	_, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: b.ID, Target: a.ID, Type: models.EdgeDependsOn})
	var cycle *models.CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %T: %v", err, err)
	}
	// A rejected edge consumes no version and leaves no trace.
	if s.Snapshot().Version != before {
		t.Errorf("expected version unchanged after rejection, got %d -> %d", before, s.Snapshot().Version)
	}
	if s.Snapshot().EdgeCount() != 1 {
		t.Errorf("expected 1 edge, got %d", s.Snapshot().EdgeCount())
	}
}

func TestRemoveEdge_ByTriple(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")
	b := createEntity(t, s, models.TypeTask, "b")
	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeDependsOn}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := s.RemoveEdge(ctx, a.ID, b.ID, models.EdgeDependsOn); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.RemoveEdge(ctx, a.ID, b.ID, models.EdgeDependsOn); err == nil {
		t.Error("expected error removing twice, got nil")
	}

	// Removing the closing edge makes the reverse legal again.
	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: b.ID, Target: a.ID, Type: models.EdgeDependsOn}); err != nil {
		t.Errorf("expected reverse edge after removal, got %v", err)
	}
}

// auth blocks login-ui and session; closing auth frees both.
func TestReadyBlocked_AuthScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	auth := createEntity(t, s, models.TypeTask, "auth")
	loginUI := createEntity(t, s, models.TypeTask, "login-ui")
	session := createEntity(t, s, models.TypeTask, "session")

	for _, dependent := range []*models.Entity{loginUI, session} {
		if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: dependent.ID, Target: auth.ID, Type: models.EdgeDependsOn}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	ready, err := s.Ready(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ready) != 1 || ready[0].ID != auth.ID {
		t.Fatalf("expected only auth ready, got %d entries", len(ready))
	}
	blocked, err := s.Blocked(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(blocked) != 2 {
		t.Fatalf("expected 2 blocked, got %d", len(blocked))
	}

	if _, err := s.CloseEntity(ctx, auth.ID, "merged"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ready, _ = s.Ready(ctx)
	if len(ready) != 2 {
		t.Errorf("expected both dependents ready after close, got %d", len(ready))
	}
	blocked, _ = s.Blocked(ctx)
	if len(blocked) != 0 {
		t.Errorf("expected nothing blocked after close, got %d", len(blocked))
	}
}

func TestBlockingChain_FromStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")
	b := createEntity(t, s, models.TypeTask, "b")
	c := createEntity(t, s, models.TypeTask, "c")
	s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeDependsOn})
	s.AddEdge(ctx, primary.AddEdgeRequest{Source: b.ID, Target: c.ID, Type: models.EdgeDependsOn})

	chain, err := s.BlockingChain(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(chain) != 2 || chain[1].Depth != 2 {
		t.Errorf("unexpected chain %+v", chain)
	}
}

// ============================================================================
// Test runs and regression handling
// ============================================================================

func TestRecordRun_NonTestRejected(t *testing.T) {
	s := newTestStore(t)
	task := createEntity(t, s, models.TypeTask, "task")

	_, err := s.RecordRun(context.Background(), primary.RecordRunRequest{TestID: task.ID, Outcome: models.OutcomePass})
	if err == nil {
		t.Fatal("expected error recording run against a task, got nil")
	}
}

func TestRecordRun_LatestAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	test := createEntity(t, s, models.TypeTest, "integration suite")

	for _, outcome := range []string{models.OutcomePass, models.OutcomeFail, models.OutcomePass} {
		if _, err := s.RecordRun(ctx, primary.RecordRunRequest{TestID: test.ID, Outcome: outcome}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	latest, err := s.LatestRun(ctx, test.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if latest == nil || latest.Outcome != models.OutcomePass {
		t.Errorf("expected latest pass, got %+v", latest)
	}

	history, err := s.RunHistory(ctx, test.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 runs in history, got %d", len(history))
	}
	if history[1].Outcome != models.OutcomeFail {
		t.Errorf("expected history in append order, got %+v", history)
	}
}

func TestRecordRun_TruncatesOutput(t *testing.T) {
	s := newTestStore(t)
	test := createEntity(t, s, models.TypeTest, "noisy test")

	run, err := s.RecordRun(context.Background(), primary.RecordRunRequest{
		TestID:  test.ID,
		Outcome: models.OutcomePass,
		Output:  strings.Repeat("y", models.MaxRunOutput*2),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(run.Output) != models.MaxRunOutput {
		t.Errorf("expected output capped at %d, got %d", models.MaxRunOutput, len(run.Output))
	}
}

func TestRecordRun_FailureReopensLinkedDone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := createEntity(t, s, models.TypeTask, "feature")
	test := createEntity(t, s, models.TypeTest, "feature test")
	if _, err := s.AddEdge(ctx, primary.AddEdgeRequest{Source: task.ID, Target: test.ID, Type: models.EdgeTestedBy}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := s.CloseEntity(ctx, task.ID, "shipped"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := s.LinkCommit(ctx, task.ID, "cafebabe"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := s.RecordRun(ctx, primary.RecordRunRequest{
		TestID:   test.ID,
		Outcome:  models.OutcomeFail,
		ExitCode: 1,
		Output:   "boom",
	}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, err := s.GetEntity(ctx, task.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Status != models.StatusReopened {
		t.Errorf("expected task reopened, got %s", got.Status)
	}
	if got.ClosedAt != nil {
		t.Error("expected closed_at cleared on reopen")
	}

	notes, _ := s.Notes(ctx, task.ID)
	if len(notes) != 1 {
		t.Fatalf("expected 1 reopen note, got %d", len(notes))
	}
	if notes[0].Kind != models.NoteReopen {
		t.Errorf("expected reopen note kind, got %s", notes[0].Kind)
	}
	if !strings.Contains(notes[0].Body, "cafebabe") {
		t.Errorf("expected note to mention the commit, got %q", notes[0].Body)
	}
}

func TestRecordRun_FailureLeavesOpenEntitiesAlone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	task := createEntity(t, s, models.TypeTask, "in flight")
	test := createEntity(t, s, models.TypeTest, "its test")
	s.AddEdge(ctx, primary.AddEdgeRequest{Source: task.ID, Target: test.ID, Type: models.EdgeTestedBy})

	if _, err := s.RecordRun(ctx, primary.RecordRunRequest{TestID: test.ID, Outcome: models.OutcomeFail, ExitCode: 1}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, _ := s.GetEntity(ctx, task.ID)
	if got.Status != models.StatusPending {
		t.Errorf("expected open task untouched, got %s", got.Status)
	}
}

func TestInfo_Counters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createEntity(t, s, models.TypeTask, "a")
	b := createEntity(t, s, models.TypeTask, "b")
	s.AddEdge(ctx, primary.AddEdgeRequest{Source: a.ID, Target: b.ID, Type: models.EdgeDependsOn})

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if info.Entities != 2 || info.Edges != 1 {
		t.Errorf("expected 2 entities and 1 edge, got %+v", info)
	}
	if info.Version != 3 {
		t.Errorf("expected version 3, got %d", info.Version)
	}
	if info.LogBytes == 0 {
		t.Error("expected nonzero log size")
	}
}

func TestExecRun_CapturesOutcomes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	test := createEntity(t, s, models.TypeTest, "shell test")

	run, err := s.ExecRun(ctx, test.ID, []string{"true"}, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.Outcome != models.OutcomePass {
		t.Errorf("expected pass, got %s", run.Outcome)
	}

	run, err = s.ExecRun(ctx, test.ID, []string{"false"}, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.Outcome != models.OutcomeFail || run.ExitCode != 1 {
		t.Errorf("expected fail with exit 1, got %s exit %d", run.Outcome, run.ExitCode)
	}

	run, err = s.ExecRun(ctx, test.ID, []string{"sleep", "5"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if run.Outcome != models.OutcomeTimeout {
		t.Errorf("expected timeout, got %s", run.Outcome)
	}
}
