package gitnotes

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/example/braid/internal/models"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "braid@localhost"},
		{"config", "user.name", "braid"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}
	return dir
}

func TestWriteRead_RoundTrip(t *testing.T) {
	b := New(initRepo(t))
	ctx := context.Background()

	// Trailing blank lines are the classic notes-stripspace casualty;
	// the blob path must preserve them exactly.
	data := []byte("{\"version\":1}\n\n\n")
	if err := b.Write(ctx, "journal.jsonl", data); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, err := b.Read(ctx, "journal.jsonl")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("expected byte-identical round trip, got %q", got)
	}
}

func TestRead_NotFound(t *testing.T) {
	b := New(initRepo(t))
	_, err := b.Read(context.Background(), "missing.jsonl")
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestWrite_Overwrite(t *testing.T) {
	b := New(initRepo(t))
	ctx := context.Background()

	b.Write(ctx, "f", []byte("first"))
	if err := b.Write(ctx, "f", []byte("second")); err != nil {
		t.Fatalf("expected no error overwriting, got %v", err)
	}
	got, _ := b.Read(ctx, "f")
	if string(got) != "second" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestList_PerFileRefs(t *testing.T) {
	b := New(initRepo(t))
	ctx := context.Background()

	names, err := b.List(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty list, got %v", names)
	}

	b.Write(ctx, "journal.jsonl", []byte("x"))
	b.Write(ctx, "aux.json", []byte("y"))

	names, err = b.List(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(names) != 2 || names[0] != "aux.json" || names[1] != "journal.jsonl" {
		t.Errorf("expected sorted logical names, got %v", names)
	}
}

func TestAnchor_StableAcrossWrites(t *testing.T) {
	dir := initRepo(t)
	b := New(dir)
	ctx := context.Background()

	b.Write(ctx, "a", []byte("x"))
	first, err := b.anchor(ctx, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b.Write(ctx, "b", []byte("y"))
	second, err := b.anchor(ctx, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first == "" || first != second {
		t.Errorf("expected one stable anchor, got %q and %q", first, second)
	}
}
