// Package journal implements the durable append-only mutation log.
// The log is the single source of truth; every index is derived from it.
package journal

import (
	"time"

	"github.com/example/braid/internal/models"
)

// Op identifies the kind of mutation a record carries.
type Op string

// Mutation op constants. The set is additive-only: old readers must be
// able to skip ops they do not know.
const (
	OpEntityAdded   Op = "entity_added"
	OpEntityUpdated Op = "entity_updated"
	OpEntityRemoved Op = "entity_removed"
	OpEdgeAdded     Op = "edge_added"
	OpEdgeRemoved   Op = "edge_removed"
	OpRunRecorded   Op = "run_recorded"
	OpNoteAdded     Op = "note_added"
	OpCommitLinked  Op = "commit_linked"
)

// Record is one logged mutation, serialized as a single JSON line.
// Exactly one payload field is set, matching Op. Unknown fields in a
// stored record are ignored on replay for forward compatibility.
type Record struct {
	Version int64     `json:"version"`
	Op      Op        `json:"op"`
	At      time.Time `json:"at"`

	Entity *models.Entity     `json:"entity,omitempty"`
	Edge   *models.Edge       `json:"edge,omitempty"`
	Run    *models.TestRun    `json:"run,omitempty"`
	Note   *models.Note       `json:"note,omitempty"`
	Commit *models.CommitLink `json:"commit,omitempty"`

	// EntityID and EdgeID carry the subject of removal ops, where no
	// full payload is logged.
	EntityID string `json:"entity_id,omitempty"`
	EdgeID   string `json:"edge_id,omitempty"`
}
