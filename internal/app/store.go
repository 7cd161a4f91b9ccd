// Package app implements the primary ports: the store service that
// composes the journal, the derived index, the dependency graph engine,
// the regression detector, and the sync broadcast.
package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/braid/internal/ident"
	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
	"github.com/example/braid/internal/ports/secondary"
	"github.com/example/braid/internal/syncd"
)

// idRetries bounds regeneration attempts on the unlikely short-hash
// collision before giving up with a conflict.
const idRetries = 5

// Options configures an opened store. All fields are optional.
type Options struct {
	// Cache persists the derived index across cold starts.
	Cache secondary.IndexCache

	// Hub receives one delta per committed mutation.
	Hub *syncd.Hub
}

// Store is the single-writer store for one data directory. Mutations
// are serialized; reads go through an atomically swapped snapshot and
// never observe partial state.
type Store struct {
	mu        sync.Mutex
	journal   *journal.Journal
	cache     secondary.IndexCache
	hub       *syncd.Hub
	snap      atomic.Pointer[index.Snapshot]
	cacheUsed bool
}

// Open acquires the data directory's writer lock and materializes the
// index, from the cache when its version matches the journal head, and
// by full replay otherwise.
func Open(dir string, opts Options) (*Store, error) {
	j, err := journal.Open(dir)
	if err != nil {
		return nil, err
	}

	s := &Store{journal: j, cache: opts.Cache, hub: opts.Hub}

	var snap *index.Snapshot
	if opts.Cache != nil {
		cached, ok, err := opts.Cache.Load(j.Head())
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("failed to load index cache: %w", err)
		}
		if ok {
			snap = cached
			s.cacheUsed = true
		}
	}
	if snap == nil {
		snap, err = index.Rebuild(j)
		if err != nil {
			j.Close()
			return nil, fmt.Errorf("failed to rebuild index: %w", err)
		}
		if opts.Cache != nil {
			if err := opts.Cache.Store(snap); err != nil {
				j.Close()
				return nil, fmt.Errorf("failed to store index cache: %w", err)
			}
		}
	}
	s.snap.Store(snap)
	return s, nil
}

// Snapshot returns the current committed index snapshot.
func (s *Store) Snapshot() *index.Snapshot {
	return s.snap.Load()
}

// Hub returns the attached sync hub, if any.
func (s *Store) Hub() *syncd.Hub { return s.hub }

// RebuildIndex discards the projection and replays the full log. The
// only valid repair for a suspect index.
func (s *Store) RebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := index.Rebuild(s.journal)
	if err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	s.snap.Store(snap)
	if s.cache != nil {
		if err := s.cache.Store(snap); err != nil {
			return fmt.Errorf("failed to store index cache: %w", err)
		}
	}
	return nil
}

// Close persists the index cache and releases the writer lock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		if err := s.cache.Store(s.snap.Load()); err != nil {
			s.journal.Close()
			s.cache.Close()
			return fmt.Errorf("failed to store index cache: %w", err)
		}
		if err := s.cache.Close(); err != nil {
			s.journal.Close()
			return fmt.Errorf("failed to close index cache: %w", err)
		}
	}
	return s.journal.Close()
}

// commit durably appends one record, folds it into a fresh snapshot,
// swaps it in, and broadcasts the delta. Broadcast happens strictly
// after the durable append; a failed append is never broadcast.
// Callers hold s.mu.
func (s *Store) commit(rec *journal.Record) error {
	if _, err := s.journal.Append(rec); err != nil {
		return err
	}
	next := s.snap.Load().Clone()
	next.Apply(rec)
	s.snap.Store(next)
	if s.hub != nil {
		s.hub.Publish(syncd.DeltaFor(rec))
	}
	return nil
}

// CreateEntity validates, assigns a family-prefixed id, and logs the
// added record. New entities start pending.
func (s *Store) CreateEntity(ctx context.Context, req primary.CreateEntityRequest) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	var id string
	for attempt := 0; ; attempt++ {
		candidate, err := ident.New(req.Type)
		if err != nil {
			return nil, err
		}
		if snap.Entity(candidate) == nil {
			id = candidate
			break
		}
		if attempt == idRetries {
			return nil, &models.ConflictError{Op: "create entity", Detail: "id space exhausted for family " + req.Type}
		}
	}

	now := time.Now().UTC()
	entity := &models.Entity{
		ID:          id,
		Type:        req.Type,
		Title:       req.Title,
		ShortName:   req.ShortName,
		Description: req.Description,
		Status:      models.StatusPending,
		Priority:    req.Priority,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	if err := s.commit(&journal.Record{Op: journal.OpEntityAdded, Entity: entity}); err != nil {
		return nil, err
	}
	return entity.Clone(), nil
}

// GetEntity returns the current projection of an entity.
func (s *Store) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	e := s.snap.Load().Entity(id)
	if e == nil {
		return nil, &models.NotFoundError{ID: id}
	}
	return e.Clone(), nil
}

// ListEntities returns entities filtered by family and status.
func (s *Store) ListEntities(ctx context.Context, family, status string) ([]*models.Entity, error) {
	if family != "" {
		if _, ok := models.Families[family]; !ok {
			return nil, &models.ValidationError{Field: "type", Reason: "unknown family " + family}
		}
	}
	var out []*models.Entity
	for _, e := range s.snap.Load().Entities() {
		if family != "" && e.Type != family {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e.Clone())
	}
	return out, nil
}

// UpdateEntity applies a partial update as one logged record. Setting a
// terminal status stamps closed_at; leaving one clears it.
func (s *Store) UpdateEntity(ctx context.Context, req primary.UpdateEntityRequest) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load().Entity(req.ID)
	if current == nil {
		return nil, &models.NotFoundError{ID: req.ID}
	}

	entity := current.Clone()
	if req.Title != nil {
		entity.Title = *req.Title
	}
	if req.ShortName != nil {
		entity.ShortName = *req.ShortName
	}
	if req.Description != nil {
		entity.Description = *req.Description
	}
	if req.Priority != nil {
		entity.Priority = *req.Priority
	}
	if req.Tags != nil {
		entity.Tags = append([]string(nil), (*req.Tags)...)
	}
	if req.Status != nil {
		entity.Status = *req.Status
		if entity.Closed() {
			now := time.Now().UTC()
			entity.ClosedAt = &now
		} else {
			entity.ClosedAt = nil
			entity.ClosedReason = ""
		}
	}
	entity.UpdatedAt = time.Now().UTC()

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	if err := s.commit(&journal.Record{Op: journal.OpEntityUpdated, Entity: entity}); err != nil {
		return nil, err
	}
	return entity.Clone(), nil
}

// CloseEntity transitions an entity to done and records the reason.
func (s *Store) CloseEntity(ctx context.Context, id, reason string) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.snap.Load().Entity(id)
	if current == nil {
		return nil, &models.NotFoundError{ID: id}
	}
	if current.Closed() {
		return nil, &models.ConflictError{Op: "close entity", Detail: id + " is already " + current.Status}
	}

	now := time.Now().UTC()
	entity := current.Clone()
	entity.Status = models.StatusDone
	entity.ClosedAt = &now
	entity.ClosedReason = reason
	entity.UpdatedAt = now

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	if err := s.commit(&journal.Record{Op: journal.OpEntityUpdated, Entity: entity}); err != nil {
		return nil, err
	}
	return entity.Clone(), nil
}

// ReopenEntity explicitly reopens a closed entity, clearing closed_at
// and closed_reason. The explicit transition is the only sanctioned way
// back from done; nothing ever silently overwrites a closed status.
func (s *Store) ReopenEntity(ctx context.Context, id, reason string) (*models.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reopenLocked(id, reason, models.NoteSystem)
}

func (s *Store) reopenLocked(id, noteBody, noteKind string) (*models.Entity, error) {
	current := s.snap.Load().Entity(id)
	if current == nil {
		return nil, &models.NotFoundError{ID: id}
	}
	if !current.Closed() {
		return nil, &models.ConflictError{Op: "reopen entity", Detail: id + " is not closed"}
	}

	entity := current.Clone()
	entity.Status = models.StatusReopened
	entity.ClosedAt = nil
	entity.ClosedReason = ""
	entity.UpdatedAt = time.Now().UTC()

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	if err := s.commit(&journal.Record{Op: journal.OpEntityUpdated, Entity: entity}); err != nil {
		return nil, err
	}

	if noteBody != "" {
		note := &models.Note{
			ID:        ident.NewNote(),
			EntityID:  id,
			Kind:      noteKind,
			Body:      noteBody,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.commit(&journal.Record{Op: journal.OpNoteAdded, Note: note}); err != nil {
			return nil, err
		}
	}
	return entity.Clone(), nil
}

// DeleteEntity logs a tombstone. The record history stays in the log;
// only the projection forgets the entity.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Load().Entity(id) == nil {
		return &models.NotFoundError{ID: id}
	}
	return s.commit(&journal.Record{Op: journal.OpEntityRemoved, EntityID: id})
}

// AddNote appends a structured note to an entity's history.
func (s *Store) AddNote(ctx context.Context, entityID, kind, body string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Load().Entity(entityID) == nil {
		return nil, &models.NotFoundError{ID: entityID}
	}
	switch kind {
	case models.NoteComment, models.NoteReopen, models.NoteSystem:
	default:
		return nil, &models.ValidationError{Field: "kind", Reason: "unknown note kind " + kind}
	}

	note := &models.Note{
		ID:        ident.NewNote(),
		EntityID:  entityID,
		Kind:      kind,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.commit(&journal.Record{Op: journal.OpNoteAdded, Note: note}); err != nil {
		return nil, err
	}
	return note, nil
}

// Notes returns the append-only note history of an entity.
func (s *Store) Notes(ctx context.Context, entityID string) ([]*models.Note, error) {
	snap := s.snap.Load()
	if snap.Entity(entityID) == nil {
		return nil, &models.NotFoundError{ID: entityID}
	}
	return snap.Notes(entityID), nil
}

// LinkCommit records a commit hash against an entity.
func (s *Store) LinkCommit(ctx context.Context, entityID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Load().Entity(entityID) == nil {
		return &models.NotFoundError{ID: entityID}
	}
	if hash == "" {
		return &models.ValidationError{Field: "hash", Reason: "must not be empty"}
	}
	link := &models.CommitLink{EntityID: entityID, Hash: hash, LinkedAt: time.Now().UTC()}
	return s.commit(&journal.Record{Op: journal.OpCommitLinked, Commit: link})
}

// Info reports store-level counters.
func (s *Store) Info(ctx context.Context) (*primary.StoreInfo, error) {
	snap := s.snap.Load()
	return &primary.StoreInfo{
		DataDir:   s.journal.Dir(),
		Version:   snap.Version,
		Entities:  snap.Len(),
		Edges:     snap.EdgeCount(),
		LogBytes:  s.journal.Size(),
		CacheUsed: s.cacheUsed,
	}, nil
}
