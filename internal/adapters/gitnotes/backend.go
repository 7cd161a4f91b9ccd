// Package gitnotes implements the attached-note backend. Each logical
// file is a single git note attached to a stable anchor commit, under a
// notes ref namespaced by filename. Notes are written by blob oid
// (notes add -C) so content round-trips byte-for-byte.
package gitnotes

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/secondary"
)

const (
	// AnchorRef points at the stable anchor commit all notes attach to.
	AnchorRef = "refs/braid/anchor"
	// NotesRefPrefix namespaces one notes ref per logical file.
	NotesRefPrefix = "refs/notes/braid/"
)

// Backend implements secondary.Backend over namespaced git notes.
type Backend struct {
	repoDir string
}

// New creates a backend for the git repository at repoDir.
func New(repoDir string) *Backend {
	return &Backend{repoDir: repoDir}
}

// Kind returns the backend variant tag.
func (b *Backend) Kind() string { return secondary.BackendNotes }

// Root describes the backing refs.
func (b *Backend) Root() string { return b.repoDir + " " + NotesRefPrefix + "*" }

// Read returns the note content for a logical file.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	anchor, err := b.anchor(ctx, false)
	if err != nil {
		return nil, err
	}
	if anchor == "" {
		return nil, &models.NotFoundError{ID: name}
	}
	out, err := b.git(ctx, nil, "notes", "--ref="+NotesRefPrefix+name, "list", anchor)
	if err != nil {
		return nil, &models.NotFoundError{ID: name}
	}
	oid := strings.TrimSpace(string(out))
	data, err := b.git(ctx, nil, "cat-file", "blob", oid)
	if err != nil {
		return nil, &models.IOError{Op: "read note " + name, Err: err}
	}
	return data, nil
}

// Write stores a logical file as the single note on its ref. The content
// goes in as a raw blob so git never rewrites trailing whitespace.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	anchor, err := b.anchor(ctx, true)
	if err != nil {
		return err
	}
	oid, err := b.git(ctx, data, "hash-object", "-w", "--stdin")
	if err != nil {
		return &models.IOError{Op: "hash note " + name, Err: err}
	}
	_, err = b.git(ctx, nil, "notes", "--ref="+NotesRefPrefix+name, "add", "-f", "-C", strings.TrimSpace(string(oid)), anchor)
	if err != nil {
		return &models.IOError{Op: "write note " + name, Err: err}
	}
	return nil
}

// List enumerates the namespaced notes refs.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	out, err := b.git(ctx, nil, "for-each-ref", "--format=%(refname)", NotesRefPrefix)
	if err != nil {
		return nil, &models.IOError{Op: "list notes refs", Err: err}
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if strings.HasPrefix(line, NotesRefPrefix) {
			names = append(names, strings.TrimPrefix(line, NotesRefPrefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// anchor returns the anchor commit, creating it when create is set. The
// anchor is an empty-tree commit so it is identical across clones that
// created it with the same timestamps, and stable once created.
func (b *Backend) anchor(ctx context.Context, create bool) (string, error) {
	out, err := b.git(ctx, nil, "rev-parse", "--verify", "--quiet", AnchorRef)
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}
	if !create {
		return "", nil
	}

	treeOid, err := b.git(ctx, nil, "mktree")
	if err != nil {
		return "", &models.IOError{Op: "create anchor tree", Err: err}
	}
	cmd := exec.CommandContext(ctx, "git", "commit-tree", strings.TrimSpace(string(treeOid)), "-m", "braid notes anchor")
	cmd.Dir = b.repoDir
	cmd.Env = append(cmd.Environ(),
		"GIT_AUTHOR_NAME=braid", "GIT_AUTHOR_EMAIL=braid@localhost",
		"GIT_COMMITTER_NAME=braid", "GIT_COMMITTER_EMAIL=braid@localhost",
		"GIT_AUTHOR_DATE=2000-01-01T00:00:00Z", "GIT_COMMITTER_DATE=2000-01-01T00:00:00Z",
	)
	commitOut, err := cmd.Output()
	if err != nil {
		return "", &models.IOError{Op: "create anchor commit", Err: err}
	}
	anchor := strings.TrimSpace(string(commitOut))
	if _, err := b.git(ctx, nil, "update-ref", AnchorRef, anchor); err != nil {
		return "", &models.IOError{Op: "update anchor ref", Err: err}
	}
	return anchor, nil
}

func (b *Backend) git(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = b.repoDir
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
