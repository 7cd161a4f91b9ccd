// Package syncd implements the version/sync coordinator: full-snapshot
// plus incremental diff messages over websockets, gap detection with
// bounded catch-up, and the observer reconnect state machine.
package syncd

import (
	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
)

// MsgType tags a sync wire message.
type MsgType string

// Wire message types. The set is additive-only: an observer must skip
// payloads it does not understand while still advancing its version.
const (
	MsgSnapshot      MsgType = "snapshot"
	MsgEntityAdded   MsgType = "entity_added"
	MsgEntityUpdated MsgType = "entity_updated"
	MsgEntityRemoved MsgType = "entity_removed"
	MsgEdgeAdded     MsgType = "edge_added"
	MsgEdgeRemoved   MsgType = "edge_removed"
	MsgRunRecorded   MsgType = "run_recorded"
	MsgNoteAdded     MsgType = "note_added"
	MsgCommitLinked  MsgType = "commit_linked"
	MsgResyncRequest MsgType = "resync_request"
	MsgResyncBatch   MsgType = "resync_batch"
)

// Message is one sync wire message. Type and Version are mandatory; the
// payload fields used depend on Type. A snapshot embeds category-keyed
// entity arrays plus the edge array; an incremental message embeds a
// single entity or edge plus its entity_type and id.
type Message struct {
	Type    MsgType `json:"type"`
	Version int64   `json:"version"`

	// Snapshot payload.
	Entities map[string][]*models.Entity `json:"entities,omitempty"`
	Edges    []*models.Edge              `json:"edges,omitempty"`

	// Incremental payload.
	EntityType string             `json:"entity_type,omitempty"`
	ID         string             `json:"id,omitempty"`
	Entity     *models.Entity     `json:"entity,omitempty"`
	Edge       *models.Edge       `json:"edge,omitempty"`
	Run        *models.TestRun    `json:"run,omitempty"`
	Note       *models.Note       `json:"note,omitempty"`
	Commit     *models.CommitLink `json:"commit,omitempty"`

	// Catch-up payload for resync_batch.
	Deltas []*Message `json:"deltas,omitempty"`
}

// Validate enforces the mandatory fields. A resync_request carries the
// observer's last applied version, which may legitimately be zero.
func (m *Message) Validate() error {
	if m.Type == "" {
		return &models.ProtocolError{Reason: "missing message type"}
	}
	if m.Version < 0 {
		return &models.ProtocolError{Reason: "negative version"}
	}
	if m.Type != MsgResyncRequest && m.Type != MsgSnapshot && m.Type != MsgResyncBatch && m.Version == 0 {
		return &models.ProtocolError{Reason: "incremental message without version"}
	}
	return nil
}

// Delta reports whether the message is an incremental mutation.
func (m *Message) Delta() bool {
	switch m.Type {
	case MsgEntityAdded, MsgEntityUpdated, MsgEntityRemoved,
		MsgEdgeAdded, MsgEdgeRemoved,
		MsgRunRecorded, MsgNoteAdded, MsgCommitLinked:
		return true
	}
	return false
}

// DeltaFor converts a committed journal record into its incremental
// wire message.
func DeltaFor(rec *journal.Record) *Message {
	m := &Message{Version: rec.Version}
	switch rec.Op {
	case journal.OpEntityAdded:
		m.Type = MsgEntityAdded
		m.Entity = rec.Entity
		m.EntityType = rec.Entity.Type
		m.ID = rec.Entity.ID
	case journal.OpEntityUpdated:
		m.Type = MsgEntityUpdated
		m.Entity = rec.Entity
		m.EntityType = rec.Entity.Type
		m.ID = rec.Entity.ID
	case journal.OpEntityRemoved:
		m.Type = MsgEntityRemoved
		m.ID = rec.EntityID
	case journal.OpEdgeAdded:
		m.Type = MsgEdgeAdded
		m.Edge = rec.Edge
		m.ID = rec.Edge.ID
	case journal.OpEdgeRemoved:
		m.Type = MsgEdgeRemoved
		m.ID = rec.EdgeID
	case journal.OpRunRecorded:
		m.Type = MsgRunRecorded
		m.Run = rec.Run
		m.ID = rec.Run.ID
	case journal.OpNoteAdded:
		m.Type = MsgNoteAdded
		m.Note = rec.Note
		m.ID = rec.Note.ID
	case journal.OpCommitLinked:
		m.Type = MsgCommitLinked
		m.Commit = rec.Commit
		m.ID = rec.Commit.EntityID
	default:
		return nil
	}
	return m
}

// Record converts a delta message back into a journal record so an
// observer replica can fold it with the ordinary index logic.
func (m *Message) Record() *journal.Record {
	rec := &journal.Record{Version: m.Version}
	switch m.Type {
	case MsgEntityAdded:
		rec.Op = journal.OpEntityAdded
		rec.Entity = m.Entity
	case MsgEntityUpdated:
		rec.Op = journal.OpEntityUpdated
		rec.Entity = m.Entity
	case MsgEntityRemoved:
		rec.Op = journal.OpEntityRemoved
		rec.EntityID = m.ID
	case MsgEdgeAdded:
		rec.Op = journal.OpEdgeAdded
		rec.Edge = m.Edge
	case MsgEdgeRemoved:
		rec.Op = journal.OpEdgeRemoved
		rec.EdgeID = m.ID
	case MsgRunRecorded:
		rec.Op = journal.OpRunRecorded
		rec.Run = m.Run
	case MsgNoteAdded:
		rec.Op = journal.OpNoteAdded
		rec.Note = m.Note
	case MsgCommitLinked:
		rec.Op = journal.OpCommitLinked
		rec.Commit = m.Commit
	default:
		return nil
	}
	return rec
}

// SnapshotMessage builds a full-snapshot message from an index snapshot.
func SnapshotMessage(snap *index.Snapshot) *Message {
	return &Message{
		Type:     MsgSnapshot,
		Version:  snap.Version,
		Entities: snap.ByFamily(),
		Edges:    snap.Edges(),
	}
}
