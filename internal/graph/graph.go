// Package graph implements the dependency graph engine: cycle checks on
// edge insertion, ready/blocked computation, and bounded blocking-chain
// traversal. The graph is an adjacency list keyed by entity id, built
// fresh from an index snapshot; it holds no back-references.
package graph

import (
	"sort"

	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/models"
)

// Engine is an adjacency view over one snapshot's dependency-forming
// edges (depends_on, child_of).
type Engine struct {
	snap *index.Snapshot
	out  map[string][]string // source -> targets over dependency edges
}

// New builds the adjacency view for a snapshot.
func New(snap *index.Snapshot) *Engine {
	g := &Engine{snap: snap, out: make(map[string][]string)}
	for _, e := range snap.Edges() {
		if models.DependencyEdge(e.Type) {
			g.out[e.Source] = append(g.out[e.Source], e.Target)
		}
	}
	for k := range g.out {
		sort.Strings(g.out[k])
	}
	return g
}

// CheckEdge rejects a dependency-forming edge that would close a cycle.
// A self-edge is rejected as a 1-cycle. Non-dependency edge types always
// pass. The check is a reachability walk from target back to source.
func (g *Engine) CheckEdge(source, target, edgeType string) error {
	if !models.DependencyEdge(edgeType) {
		return nil
	}
	if source == target {
		return &models.CycleError{Source: source, Target: target, Path: []string{source}}
	}
	path := g.pathBetween(target, source)
	if path != nil {
		return &models.CycleError{Source: source, Target: target, Path: path}
	}
	return nil
}

// pathBetween returns the node path from one id to another over
// dependency edges, or nil if unreachable. BFS with a visited set, so it
// terminates even on a graph that somehow already contains a cycle.
func (g *Engine) pathBetween(from, to string) []string {
	if from == to {
		return []string{from}
	}
	visited := map[string]bool{from: true}
	parent := map[string]string{}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.out[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			if next == to {
				path := []string{to}
				for n := to; n != from; n = parent[n] {
					path = append(path, parent[n])
				}
				for i, k := 0, len(path)-1; i < k; i, k = i+1, k-1 {
					path[i], path[k] = path[k], path[i]
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// workFamily reports whether a family participates in ready/blocked
// listings. Queues and agents are structural and never appear.
func workFamily(family string) bool {
	return family != models.TypeQueue && family != models.TypeAgent
}

// openBlockers returns the open depends_on targets of an entity.
func openBlockers(snap *index.Snapshot, id string) []string {
	var out []string
	for _, e := range snap.EdgesFrom(id, models.EdgeDependsOn) {
		target := snap.Entity(e.Target)
		if target != nil && target.Open() {
			out = append(out, target.ID)
		}
	}
	return out
}

// inQueue reports whether the entity is attached to an open queue.
func inQueue(snap *index.Snapshot, id string) bool {
	for _, e := range snap.EdgesFrom(id, models.EdgeQueued) {
		q := snap.Entity(e.Target)
		if q != nil && q.Type == models.TypeQueue && q.Open() {
			return true
		}
	}
	return false
}

// Ready returns open work entities with no open depends_on target.
// Queued entities sort first regardless of priority; within each band,
// ascending priority, then creation time, then id. The created-then-id
// tie-break for equal-priority queued items is insertion order.
func Ready(snap *index.Snapshot) []*models.Entity {
	type ranked struct {
		e      *models.Entity
		queued bool
	}
	var items []ranked
	for _, e := range snap.Entities() {
		if !workFamily(e.Type) || !e.Open() {
			continue
		}
		if len(openBlockers(snap, e.ID)) > 0 {
			continue
		}
		items = append(items, ranked{e: e, queued: inQueue(snap, e.ID)})
	}
	sort.SliceStable(items, func(i, k int) bool {
		a, b := items[i], items[k]
		if a.queued != b.queued {
			return a.queued
		}
		if a.e.Priority != b.e.Priority {
			return a.e.Priority < b.e.Priority
		}
		if !a.e.CreatedAt.Equal(b.e.CreatedAt) {
			return a.e.CreatedAt.Before(b.e.CreatedAt)
		}
		return a.e.ID < b.e.ID
	})
	out := make([]*models.Entity, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}

// BlockedEntity pairs an entity with its currently open blockers.
type BlockedEntity struct {
	Entity   *models.Entity
	Blockers []string
}

// Blocked returns the exact complement of Ready among open work
// entities: those with at least one open dependency.
func Blocked(snap *index.Snapshot) []BlockedEntity {
	var out []BlockedEntity
	for _, e := range snap.Entities() {
		if !workFamily(e.Type) || !e.Open() {
			continue
		}
		blockers := openBlockers(snap, e.ID)
		if len(blockers) > 0 {
			out = append(out, BlockedEntity{Entity: e, Blockers: blockers})
		}
	}
	return out
}

// ChainLink is one hop in a transitive blocking chain.
type ChainLink struct {
	ID    string
	Depth int
}

// BlockingChain walks depends_on edges breadth-first from id, reporting
// every transitive blocker up to limit links. The visited set guards
// against any cycle that evaded the insertion check.
func BlockingChain(snap *index.Snapshot, id string, limit int) ([]ChainLink, error) {
	if snap.Entity(id) == nil {
		return nil, &models.NotFoundError{ID: id}
	}
	if limit <= 0 {
		limit = 100
	}

	type qitem struct {
		id    string
		depth int
	}
	visited := map[string]bool{id: true}
	queue := []qitem{{id: id, depth: 0}}
	var out []ChainLink
	for len(queue) > 0 && len(out) < limit {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range snap.EdgesFrom(cur.id, models.EdgeDependsOn) {
			if visited[e.Target] {
				continue
			}
			visited[e.Target] = true
			out = append(out, ChainLink{ID: e.Target, Depth: cur.depth + 1})
			if len(out) >= limit {
				break
			}
			queue = append(queue, qitem{id: e.Target, depth: cur.depth + 1})
		}
	}
	return out, nil
}
