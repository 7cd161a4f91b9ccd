package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("expected no error opening cache, got %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func populatedSnapshot(t *testing.T) *index.Snapshot {
	t.Helper()
	s := index.New()
	now := time.Now().UTC()
	records := []*journal.Record{
		{Version: 1, Op: journal.OpEntityAdded, Entity: &models.Entity{
			ID: "tk-11111111", Type: models.TypeTask, Title: "task", Status: models.StatusPending,
			Tags: []string{"auth"}, CreatedAt: now, UpdatedAt: now,
		}},
		{Version: 2, Op: journal.OpEntityAdded, Entity: &models.Entity{
			ID: "ts-22222222", Type: models.TypeTest, Title: "test", Status: models.StatusPending,
			CreatedAt: now, UpdatedAt: now,
		}},
		{Version: 3, Op: journal.OpEdgeAdded, Edge: &models.Edge{
			ID: "ed-00000001", Source: "tk-11111111", Target: "ts-22222222", Type: models.EdgeTestedBy, CreatedAt: now,
		}},
		{Version: 4, Op: journal.OpRunRecorded, Run: &models.TestRun{
			ID: "rn-00000001", TestID: "ts-22222222", Outcome: models.OutcomeFail, ExitCode: 1, StartedAt: now,
		}},
		{Version: 5, Op: journal.OpNoteAdded, Note: &models.Note{
			ID: "nt-00000001", EntityID: "tk-11111111", Kind: models.NoteComment, Body: "note body", CreatedAt: now,
		}},
		{Version: 6, Op: journal.OpCommitLinked, Commit: &models.CommitLink{
			EntityID: "tk-11111111", Hash: "deadbeef", LinkedAt: now,
		}},
	}
	for _, rec := range records {
		if err := s.Apply(rec); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	return s
}

func TestLoad_EmptyCacheMisses(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Load(0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Error("expected miss on empty cache")
	}
}

func TestStoreLoad_ExactVersionHit(t *testing.T) {
	c := openTestCache(t)
	snap := populatedSnapshot(t)

	if err := c.Store(snap); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, ok, err := c.Load(6)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !ok {
		t.Fatal("expected hit at matching version")
	}

	if got.Version != 6 {
		t.Errorf("expected version 6, got %d", got.Version)
	}
	entity := got.Entity("tk-11111111")
	if entity == nil || entity.Title != "task" || len(entity.Tags) != 1 {
		t.Errorf("expected restored entity, got %+v", entity)
	}
	if got.EdgeByKey("tk-11111111", "ts-22222222", models.EdgeTestedBy) == nil {
		t.Error("expected edge key restored")
	}
	run := got.LatestRun("ts-22222222")
	if run == nil || run.Outcome != models.OutcomeFail {
		t.Errorf("expected restored latest run, got %+v", run)
	}
	notes := got.Notes("tk-11111111")
	if len(notes) != 1 || notes[0].Body != "note body" {
		t.Errorf("expected restored notes, got %+v", notes)
	}
	commits := got.Commits("tk-11111111")
	if len(commits) != 1 || commits[0].Hash != "deadbeef" {
		t.Errorf("expected restored commits, got %+v", commits)
	}
}

func TestLoad_VersionMismatchMisses(t *testing.T) {
	c := openTestCache(t)
	if err := c.Store(populatedSnapshot(t)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	for _, head := range []int64{0, 5, 7} {
		_, ok, err := c.Load(head)
		if err != nil {
			t.Fatalf("head %d: expected no error, got %v", head, err)
		}
		if ok {
			t.Errorf("head %d: expected miss for stale cache", head)
		}
	}
}

func TestStore_ReplacesPreviousContents(t *testing.T) {
	c := openTestCache(t)
	if err := c.Store(populatedSnapshot(t)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// A smaller later snapshot fully replaces the earlier one.
	small := index.New()
	small.SetVersion(9)
	now := time.Now().UTC()
	small.PutEntity(&models.Entity{
		ID: "bg-33333333", Type: models.TypeBug, Title: "only survivor",
		Status: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	})
	if err := c.Store(small); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	got, ok, err := c.Load(9)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.Len() != 1 || got.Entity("bg-33333333") == nil {
		t.Errorf("expected replaced contents, got %d entities", got.Len())
	}
	if got.Entity("tk-11111111") != nil {
		t.Error("expected old entity purged")
	}
}
