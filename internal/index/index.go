// Package index derives an in-memory queryable projection from the
// journal. The projection is a pure cache: it is always rebuildable from
// the log and is never authoritative. Readers share snapshots; writers
// clone, apply, and swap, so a reader never observes partial state.
package index

import (
	"sort"

	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
)

// Snapshot is one consistent view of the projected state. Values held in
// the maps are replace-only: Apply never mutates a stored entity or edge
// in place, which makes the shallow Clone safe to share with readers.
type Snapshot struct {
	Version int64

	entities map[string]*models.Entity
	edges    map[string]*models.Edge // by edge id
	edgeKeys map[string]string       // structural key -> edge id
	notes    map[string][]*models.Note
	latest   map[string]*models.TestRun // latest run by test id
	commits  map[string][]*models.CommitLink
}

// New returns an empty snapshot at version 0.
func New() *Snapshot {
	return &Snapshot{
		entities: make(map[string]*models.Entity),
		edges:    make(map[string]*models.Edge),
		edgeKeys: make(map[string]string),
		notes:    make(map[string][]*models.Note),
		latest:   make(map[string]*models.TestRun),
		commits:  make(map[string][]*models.CommitLink),
	}
}

// Rebuild replays the full journal into a fresh snapshot. Later records
// with the same id override earlier ones; tombstones remove. Safe to run
// on a log with a duplicated trailing segment because Apply skips any
// record at or below the snapshot's version.
func Rebuild(j *journal.Journal) (*Snapshot, error) {
	s := New()
	if err := j.Replay(s.Apply); err != nil {
		return nil, err
	}
	return s, nil
}

// RebuildFile is Rebuild for a bare journal file, without a writer lock.
func RebuildFile(path string) (*Snapshot, error) {
	s := New()
	if err := journal.ReplayFile(path, s.Apply); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply folds one record into the snapshot. Records at or below the
// current version are skipped, making replay idempotent. Unknown ops are
// ignored so newer logs stay readable.
func (s *Snapshot) Apply(rec *journal.Record) error {
	if rec.Version != 0 && rec.Version <= s.Version {
		return nil
	}

	switch rec.Op {
	case journal.OpEntityAdded, journal.OpEntityUpdated:
		if rec.Entity != nil {
			s.entities[rec.Entity.ID] = rec.Entity.Clone()
		}
	case journal.OpEntityRemoved:
		delete(s.entities, rec.EntityID)
		for id, e := range s.edges {
			if e.Source == rec.EntityID || e.Target == rec.EntityID {
				delete(s.edges, id)
				delete(s.edgeKeys, e.Key())
			}
		}
	case journal.OpEdgeAdded:
		if rec.Edge != nil {
			e := *rec.Edge
			s.edges[e.ID] = &e
			s.edgeKeys[e.Key()] = e.ID
		}
	case journal.OpEdgeRemoved:
		if e, ok := s.edges[rec.EdgeID]; ok {
			delete(s.edges, rec.EdgeID)
			delete(s.edgeKeys, e.Key())
		}
	case journal.OpRunRecorded:
		if rec.Run != nil {
			r := *rec.Run
			s.latest[r.TestID] = &r
		}
	case journal.OpNoteAdded:
		if rec.Note != nil {
			n := *rec.Note
			s.notes[n.EntityID] = append(s.notes[n.EntityID], &n)
		}
	case journal.OpCommitLinked:
		if rec.Commit != nil {
			c := *rec.Commit
			s.commits[c.EntityID] = append(s.commits[c.EntityID], &c)
		}
	}

	if rec.Version > s.Version {
		s.Version = rec.Version
	}
	return nil
}

// Clone returns a snapshot that shares stored values but owns its maps.
// The copy-then-swap pattern: clone, Apply, then publish the clone.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Version:  s.Version,
		entities: make(map[string]*models.Entity, len(s.entities)),
		edges:    make(map[string]*models.Edge, len(s.edges)),
		edgeKeys: make(map[string]string, len(s.edgeKeys)),
		notes:    make(map[string][]*models.Note, len(s.notes)),
		latest:   make(map[string]*models.TestRun, len(s.latest)),
		commits:  make(map[string][]*models.CommitLink, len(s.commits)),
	}
	for k, v := range s.entities {
		c.entities[k] = v
	}
	for k, v := range s.edges {
		c.edges[k] = v
	}
	for k, v := range s.edgeKeys {
		c.edgeKeys[k] = v
	}
	for k, v := range s.notes {
		c.notes[k] = append([]*models.Note(nil), v...)
	}
	for k, v := range s.latest {
		c.latest[k] = v
	}
	for k, v := range s.commits {
		c.commits[k] = append([]*models.CommitLink(nil), v...)
	}
	return c
}

// Entity returns the entity with the given id, or nil. The returned
// value is shared with the snapshot and must not be mutated.
func (s *Snapshot) Entity(id string) *models.Entity {
	return s.entities[id]
}

// Entities returns all entities sorted by creation time, then id.
func (s *Snapshot) Entities() []*models.Entity {
	out := make([]*models.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sortEntities(out)
	return out
}

// ByFamily groups all entities by family, each group sorted.
func (s *Snapshot) ByFamily() map[string][]*models.Entity {
	out := make(map[string][]*models.Entity)
	for _, e := range s.entities {
		out[e.Type] = append(out[e.Type], e)
	}
	for _, group := range out {
		sortEntities(group)
	}
	return out
}

// Edge returns the edge with the given id, or nil.
func (s *Snapshot) Edge(id string) *models.Edge {
	return s.edges[id]
}

// EdgeByKey resolves an edge by its (source, target, type) triple.
func (s *Snapshot) EdgeByKey(source, target, edgeType string) *models.Edge {
	probe := models.Edge{Source: source, Target: target, Type: edgeType}
	if id, ok := s.edgeKeys[probe.Key()]; ok {
		return s.edges[id]
	}
	return nil
}

// Edges returns all edges sorted by creation time, then id.
func (s *Snapshot) Edges() []*models.Edge {
	out := make([]*models.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out
}

// EdgesFrom returns edges with the given source, optionally filtered by
// type (empty matches all).
func (s *Snapshot) EdgesFrom(source, edgeType string) []*models.Edge {
	var out []*models.Edge
	for _, e := range s.edges {
		if e.Source == source && (edgeType == "" || e.Type == edgeType) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// EdgesTo returns edges with the given target, optionally filtered by type.
func (s *Snapshot) EdgesTo(target, edgeType string) []*models.Edge {
	var out []*models.Edge
	for _, e := range s.edges {
		if e.Target == target && (edgeType == "" || e.Type == edgeType) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

// Notes returns the append-only note history for an entity.
func (s *Snapshot) Notes(entityID string) []*models.Note {
	return s.notes[entityID]
}

// LatestRun returns the latest recorded run for a test, or nil.
func (s *Snapshot) LatestRun(testID string) *models.TestRun {
	return s.latest[testID]
}

// Commits returns the commit links recorded against an entity.
func (s *Snapshot) Commits(entityID string) []*models.CommitLink {
	return s.commits[entityID]
}

// Len returns the number of live entities.
func (s *Snapshot) Len() int {
	return len(s.entities)
}

// EdgeCount returns the number of live edges.
func (s *Snapshot) EdgeCount() int {
	return len(s.edges)
}

// Restore API, used by the persisted index cache to reconstitute a
// snapshot without replaying the log. Not for general mutation.

// SetVersion sets the snapshot version during cache restore.
func (s *Snapshot) SetVersion(v int64) { s.Version = v }

// PutEntity inserts an entity during cache restore.
func (s *Snapshot) PutEntity(e *models.Entity) { s.entities[e.ID] = e }

// PutEdge inserts an edge during cache restore.
func (s *Snapshot) PutEdge(e *models.Edge) {
	s.edges[e.ID] = e
	s.edgeKeys[e.Key()] = e.ID
}

// PutNote appends a note during cache restore.
func (s *Snapshot) PutNote(n *models.Note) {
	s.notes[n.EntityID] = append(s.notes[n.EntityID], n)
}

// PutLatestRun sets a latest-run pointer during cache restore.
func (s *Snapshot) PutLatestRun(r *models.TestRun) { s.latest[r.TestID] = r }

// PutCommit appends a commit link during cache restore.
func (s *Snapshot) PutCommit(c *models.CommitLink) {
	s.commits[c.EntityID] = append(s.commits[c.EntityID], c)
}

func sortEntities(out []*models.Entity) {
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
}
