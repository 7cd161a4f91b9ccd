package app

import (
	"context"
	"time"

	"github.com/example/braid/internal/graph"
	"github.com/example/braid/internal/ident"
	"github.com/example/braid/internal/journal"
	"github.com/example/braid/internal/models"
	"github.com/example/braid/internal/ports/primary"
)

// AddEdge records a relation between two existing entities. For
// dependency-forming types a reachability check rejects any edge that
// would close a cycle; on rejection nothing is recorded.
func (s *Store) AddEdge(ctx context.Context, req primary.AddEdgeRequest) (*models.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap.Load()
	edge := &models.Edge{
		Source:    req.Source,
		Target:    req.Target,
		Type:      req.Type,
		Reason:    req.Reason,
		Weight:    req.Weight,
		CreatedAt: time.Now().UTC(),
	}
	if err := edge.Validate(); err != nil {
		return nil, err
	}
	if snap.Entity(req.Source) == nil {
		return nil, &models.NotFoundError{ID: req.Source}
	}
	if snap.Entity(req.Target) == nil {
		return nil, &models.NotFoundError{ID: req.Target}
	}
	if existing := snap.EdgeByKey(req.Source, req.Target, req.Type); existing != nil {
		return nil, &models.ConflictError{Op: "add edge", Detail: "edge already exists as " + existing.ID}
	}
	if err := graph.New(snap).CheckEdge(req.Source, req.Target, req.Type); err != nil {
		return nil, err
	}

	edge.ID = ident.NewEdge()
	if err := s.commit(&journal.Record{Op: journal.OpEdgeAdded, Edge: edge}); err != nil {
		return nil, err
	}
	return edge, nil
}

// RemoveEdge removes a relation by its (source, target, type) triple.
func (s *Store) RemoveEdge(ctx context.Context, source, target, edgeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge := s.snap.Load().EdgeByKey(source, target, edgeType)
	if edge == nil {
		return &models.NotFoundError{ID: source + " -" + edgeType + "-> " + target}
	}
	return s.commit(&journal.Record{Op: journal.OpEdgeRemoved, EdgeID: edge.ID})
}

// ListEdges returns edges touching the given id, or all edges when the
// id is empty.
func (s *Store) ListEdges(ctx context.Context, id string) ([]*models.Edge, error) {
	snap := s.snap.Load()
	if id == "" {
		return snap.Edges(), nil
	}
	if snap.Entity(id) == nil {
		return nil, &models.NotFoundError{ID: id}
	}
	out := snap.EdgesFrom(id, "")
	out = append(out, snap.EdgesTo(id, "")...)
	return out, nil
}

// Ready returns open entities with no open dependency, queue-first.
func (s *Store) Ready(ctx context.Context) ([]*models.Entity, error) {
	return graph.Ready(s.snap.Load()), nil
}

// Blocked returns open entities with at least one open dependency.
func (s *Store) Blocked(ctx context.Context) ([]graph.BlockedEntity, error) {
	return graph.Blocked(s.snap.Load()), nil
}

// BlockingChain reports the transitive blockers of an entity.
func (s *Store) BlockingChain(ctx context.Context, id string, limit int) ([]graph.ChainLink, error) {
	return graph.BlockingChain(s.snap.Load(), id, limit)
}
