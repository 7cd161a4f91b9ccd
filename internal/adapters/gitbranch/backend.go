// Package gitbranch implements the detached-branch backend. Logical
// files are written into an isolated, history-bearing ref using git
// plumbing (hash-object, mktree, commit-tree, update-ref), one commit
// per write batch, never touching the caller's working tree.
package gitbranch

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

// DefaultRef is the ref holding the data history.
const DefaultRef = "refs/braid/data"

// Backend implements secondary.Backend over a detached git ref.
type Backend struct {
	repoDir string
	ref     string
}

// New creates a backend for the git repository at repoDir. An empty ref
// selects DefaultRef.
func New(repoDir, ref string) *Backend {
	if ref == "" {
		ref = DefaultRef
	}
	return &Backend{repoDir: repoDir, ref: ref}
}

// Kind returns the backend variant tag.
func (b *Backend) Kind() string { return secondary.BackendBranch }

// Root describes the backing ref.
func (b *Backend) Root() string { return b.repoDir + " " + b.ref }

// Read returns the blob stored for name at the tip of the ref.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := b.git(ctx, nil, "cat-file", "blob", b.ref+":"+name)
	if err != nil {
		names, listErr := b.List(ctx)
		if listErr == nil && !contains(names, name) {
			return nil, &models.NotFoundError{ID: name}
		}
		return nil, &models.IOError{Op: "read " + name, Err: err}
	}
	return data, nil
}

// Write stores one logical file as a single commit on the ref.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	return b.WriteBatch(ctx, map[string][]byte{name: data})
}

// WriteBatch stores several logical files in one commit. Existing files
// not named in the batch are carried forward unchanged.
func (b *Backend) WriteBatch(ctx context.Context, files map[string][]byte) error {
	tree, err := b.currentTree(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	for name, data := range files {
		oid, err := b.git(ctx, data, "hash-object", "-w", "--stdin")
		if err != nil {
			return &models.IOError{Op: "hash object " + name, Err: err}
		}
		tree[name] = strings.TrimSpace(string(oid))
		names = append(names, name)
	}
	sort.Strings(names)

	var spec bytes.Buffer
	treeNames := make([]string, 0, len(tree))
	for name := range tree {
		treeNames = append(treeNames, name)
	}
	sort.Strings(treeNames)
	for _, name := range treeNames {
		fmt.Fprintf(&spec, "100644 blob %s\t%s\n", tree[name], name)
	}

	treeOid, err := b.git(ctx, spec.Bytes(), "mktree")
	if err != nil {
		return &models.IOError{Op: "mktree", Err: err}
	}

	args := []string{"commit-tree", strings.TrimSpace(string(treeOid)), "-m", "braid: write " + strings.Join(names, ", ")}
	if parent, ok := b.tip(ctx); ok {
		args = append(args, "-p", parent)
	}
	commitOid, err := b.git(ctx, nil, args...)
	if err != nil {
		return &models.IOError{Op: "commit-tree", Err: err}
	}

	if _, err := b.git(ctx, nil, "update-ref", b.ref, strings.TrimSpace(string(commitOid))); err != nil {
		return &models.IOError{Op: "update-ref " + b.ref, Err: err}
	}
	return nil
}

// List returns the logical file names at the tip of the ref.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	if _, ok := b.tip(ctx); !ok {
		return nil, nil
	}
	out, err := b.git(ctx, nil, "ls-tree", "--name-only", b.ref)
	if err != nil {
		return nil, &models.IOError{Op: "ls-tree " + b.ref, Err: err}
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			names = append(names, line)
		}
	}
	sort.Strings(names)
	return names, nil
}

// currentTree returns name -> blob oid for the tip of the ref, empty if
// the ref does not exist yet.
func (b *Backend) currentTree(ctx context.Context) (map[string]string, error) {
	tree := make(map[string]string)
	if _, ok := b.tip(ctx); !ok {
		return tree, nil
	}
	out, err := b.git(ctx, nil, "ls-tree", b.ref)
	if err != nil {
		return nil, &models.IOError{Op: "ls-tree " + b.ref, Err: err}
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		// Format: <mode> <type> <oid>\t<name>
		meta, name, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || fields[1] != "blob" {
			continue
		}
		tree[name] = fields[2]
	}
	return tree, nil
}

// tip returns the commit at the ref, if the ref exists.
func (b *Backend) tip(ctx context.Context) (string, bool) {
	out, err := b.git(ctx, nil, "rev-parse", "--verify", "--quiet", b.ref)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(out)), true
}

// git runs one plumbing command in the repo, feeding stdin when given.
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

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
