package secondary

import "github.com/example/braid/internal/index"

// IndexCache persists a derived index so a cold start can skip a full
// log replay. The cache is never authoritative: Load returns ok only
// when its stored version matches the journal head exactly; any other
// state means the caller must rebuild and Store again.
type IndexCache interface {
	// Load returns the cached snapshot if it is usable.
	Load(headVersion int64) (snap *index.Snapshot, ok bool, err error)

	// Store replaces the cache with the given snapshot.
	Store(snap *index.Snapshot) error

	// Close releases the underlying store.
	Close() error
}
