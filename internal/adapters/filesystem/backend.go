// Package filesystem implements the local-file backend. Logical files
// live under a per-repository data directory keyed by a stable hash of
// the repository's canonical root path, so identical working copies
// share data and distinct repositories never collide.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/secondary"
)

// dirHashLen is the number of hex characters in the per-repo key.
const dirHashLen = 16

// Backend implements secondary.Backend over a local directory.
type Backend struct {
	dir string
}

// New creates a backend rooted at an explicit directory.
func New(dir string) *Backend {
	return &Backend{dir: dir}
}

// NewForRepo creates a backend under baseDir keyed by the canonical
// path of repoRoot. An empty baseDir defaults to ~/.braid/repos.
func NewForRepo(baseDir, repoRoot string) (*Backend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".braid", "repos")
	}
	key, err := RepoKey(repoRoot)
	if err != nil {
		return nil, err
	}
	return &Backend{dir: filepath.Join(baseDir, key)}, nil
}

// RepoKey returns the stable hash key for a repository root. Symlinks
// are resolved so two paths to the same working copy agree.
func RepoKey(repoRoot string) (string, error) {
	abs, err := filepath.Abs(repoRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repo root: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:dirHashLen], nil
}

// Kind returns the backend variant tag.
func (b *Backend) Kind() string { return secondary.BackendFile }

// Root returns the data directory.
func (b *Backend) Root() string { return b.dir }

// Read returns the contents of a logical file.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &models.NotFoundError{ID: name}
		}
		return nil, &models.IOError{Op: "read " + name, Err: err}
	}
	return data, nil
}

// Write atomically replaces a logical file via temp-write-then-rename.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return &models.IOError{Op: "create data dir", Err: err}
	}

	tmp, err := os.CreateTemp(b.dir, "."+name+".tmp-*")
	if err != nil {
		return &models.IOError{Op: "write " + name, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &models.IOError{Op: "write " + name, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &models.IOError{Op: "sync " + name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &models.IOError{Op: "close " + name, Err: err}
	}
	if err := os.Rename(tmpName, filepath.Join(b.dir, name)); err != nil {
		os.Remove(tmpName)
		return &models.IOError{Op: "rename " + name, Err: err}
	}
	return nil
}

// List returns the names of all logical files, sorted. The journal lock
// and temp files are implementation detail, not logical files.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &models.IOError{Op: "list backend", Err: err}
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == journal.LockFileName || strings.HasPrefix(name, ".") {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// validName rejects path traversal; logical files are flat names.
func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return &models.ValidationError{Field: "name", Reason: "logical file names must be flat, got " + name}
	}
	return nil
}
