package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := New(t.TempDir())
	ctx := context.Background()

	data := []byte("line one\nline two\n")
	if err := b.Write(ctx, "journal.jsonl", data); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, err := b.Read(ctx, "journal.jsonl")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("expected round-trip bytes, got %q", got)
	}
}

func TestRead_NotFound(t *testing.T) {
	b := New(t.TempDir())
	_, err := b.Read(context.Background(), "missing.jsonl")
	var notFound *models.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestWrite_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	ctx := context.Background()

	b.Write(ctx, "f", []byte("old"))
	if err := b.Write(ctx, "f", []byte("new")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got, _ := b.Read(ctx, "f")
	if string(got) != "new" {
		t.Errorf("expected replacement, got %q", got)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the logical file, got %d entries", len(entries))
	}
}

func TestList_SkipsInternalFiles(t *testing.T) {
	dir := t.TempDir()
	b := New(dir)
	ctx := context.Background()

	b.Write(ctx, "journal.jsonl", []byte("x"))
	b.Write(ctx, "aux.json", []byte("y"))
	os.WriteFile(filepath.Join(dir, journal.LockFileName), nil, 0644)
	os.WriteFile(filepath.Join(dir, ".index.db"), []byte("z"), 0644)
	os.MkdirAll(filepath.Join(dir, "subdir"), 0755)

	names, err := b.List(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := []string{"aux.json", "journal.jsonl"}
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestList_MissingDir(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "never-created"))
	names, err := b.List(context.Background())
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty listing, got %v", names)
	}
}

func TestValidName_RejectsTraversal(t *testing.T) {
	b := New(t.TempDir())
	ctx := context.Background()
	for _, name := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := b.Write(ctx, name, []byte("x")); err == nil {
			t.Errorf("expected error for name %q, got nil", name)
		}
		if _, err := b.Read(ctx, name); err == nil {
			t.Errorf("expected read error for name %q, got nil", name)
		}
	}
}

func TestRepoKey_StableAndDistinct(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()

	k1, err := RepoKey(a)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	k2, err := RepoKey(a)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if k1 != k2 {
		t.Errorf("expected stable key, got %s and %s", k1, k2)
	}
	if len(k1) != dirHashLen {
		t.Errorf("expected %d-char key, got %q", dirHashLen, k1)
	}

	other, err := RepoKey(b)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if other == k1 {
		t.Error("expected distinct repos to get distinct keys")
	}
}

func TestNewForRepo_UsesKeyedDir(t *testing.T) {
	base := t.TempDir()
	repo := t.TempDir()

	b, err := NewForRepo(base, repo)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	key, _ := RepoKey(repo)
	if b.Root() != filepath.Join(base, key) {
		t.Errorf("expected root %s, got %s", filepath.Join(base, key), b.Root())
	}
	if b.Kind() != "file" {
		t.Errorf("expected kind file, got %s", b.Kind())
	}
}
