// Package secondary defines the secondary ports (driven adapters): the
// interfaces through which the core drives external storage.
package secondary

import "context"

// Backend kind constants, a closed set of tagged variants.
const (
	BackendFile   = "file"
	BackendBranch = "branch"
	BackendNotes  = "notes"
)

// Backend is a pluggable persistence substrate holding the store's
// logical files (journal, config). Write must be atomic at file
// granularity: a reader never sees a partially written file.
type Backend interface {
	// Kind returns the backend variant tag.
	Kind() string

	// Root describes where the backend stores data (directory, ref).
	Root() string

	// Read returns the full contents of a logical file.
	Read(ctx context.Context, name string) ([]byte, error)

	// Write replaces the full contents of a logical file.
	Write(ctx context.Context, name string, data []byte) error

	// List returns the names of all logical files, sorted.
	List(ctx context.Context) ([]string, error)
}
