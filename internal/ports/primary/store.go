// Package primary defines the primary ports (driving interfaces) of the
// braid core. Command surfaces and tool servers call these; the core
// takes no string arguments to parse and owns no output formatting.
package primary

import (
	"context"
	"time"

	"github.com/example/braid/internal/graph"
	"github.com/example/braid/internal/models"
)

// CreateEntityRequest carries the fields for a new entity.
type CreateEntityRequest struct {
	Type        string
	Title       string
	ShortName   string
	Description string
	Priority    int
	Tags        []string
}

// UpdateEntityRequest carries a partial update. Nil pointers leave the
// field untouched.
type UpdateEntityRequest struct {
	ID          string
	Title       *string
	ShortName   *string
	Description *string
	Status      *string
	Priority    *int
	Tags        *[]string
}

// AddEdgeRequest carries a new relation between two existing entities.
type AddEdgeRequest struct {
	Source string
	Target string
	Type   string
	Reason string
	Weight float64
}

// RecordRunRequest carries one completed test execution.
type RecordRunRequest struct {
	TestID    string
	Outcome   string
	ExitCode  int
	Duration  time.Duration
	Output    string
	StartedAt time.Time
}

// StoreInfo summarizes the store state for diagnostic surfaces.
type StoreInfo struct {
	DataDir   string
	Version   int64
	Entities  int
	Edges     int
	LogBytes  int64
	CacheUsed bool
}

// StoreService is the entity-lifecycle surface of the core.
type StoreService interface {
	// CreateEntity validates, assigns an id, and logs an added record.
	CreateEntity(ctx context.Context, req CreateEntityRequest) (*models.Entity, error)

	// GetEntity returns the current projection of an entity.
	GetEntity(ctx context.Context, id string) (*models.Entity, error)

	// ListEntities returns entities, optionally filtered by family
	// and/or status (empty matches all).
	ListEntities(ctx context.Context, family, status string) ([]*models.Entity, error)

	// UpdateEntity applies a partial update as a logged record.
	UpdateEntity(ctx context.Context, req UpdateEntityRequest) (*models.Entity, error)

	// CloseEntity transitions an entity to done with a reason.
	CloseEntity(ctx context.Context, id, reason string) (*models.Entity, error)

	// ReopenEntity explicitly transitions a closed entity back to
	// reopened, clearing closed_at and closed_reason.
	ReopenEntity(ctx context.Context, id, reason string) (*models.Entity, error)

	// DeleteEntity logs a tombstone. The log itself keeps all history.
	DeleteEntity(ctx context.Context, id string) error

	// AddNote appends a structured note to an entity's history.
	AddNote(ctx context.Context, entityID, kind, body string) (*models.Note, error)

	// Notes returns the append-only note history of an entity.
	Notes(ctx context.Context, entityID string) ([]*models.Note, error)

	// LinkCommit records a commit hash against an entity.
	LinkCommit(ctx context.Context, entityID, hash string) error

	// Info reports store-level counters.
	Info(ctx context.Context) (*StoreInfo, error)
}

// GraphService is the dependency-graph surface of the core.
type GraphService interface {
	// AddEdge records a relation, rejecting dependency cycles.
	AddEdge(ctx context.Context, req AddEdgeRequest) (*models.Edge, error)

	// RemoveEdge removes a relation by (source, target, type).
	RemoveEdge(ctx context.Context, source, target, edgeType string) error

	// ListEdges returns edges touching the given id (empty id: all).
	ListEdges(ctx context.Context, id string) ([]*models.Edge, error)

	// Ready returns open entities with no open dependency, ordered
	// queue-first, then priority, then creation time.
	Ready(ctx context.Context) ([]*models.Entity, error)

	// Blocked returns open entities with at least one open dependency.
	Blocked(ctx context.Context) ([]graph.BlockedEntity, error)

	// BlockingChain reports transitive blockers of an entity.
	BlockingChain(ctx context.Context, id string, limit int) ([]graph.ChainLink, error)
}

// RunService is the test-run surface of the core.
type RunService interface {
	// RecordRun logs a completed run and applies regression handling:
	// a failing run reopens every done entity linked to the test.
	RecordRun(ctx context.Context, req RecordRunRequest) (*models.TestRun, error)

	// LatestRun returns the latest recorded run for a test, or nil.
	LatestRun(ctx context.Context, testID string) (*models.TestRun, error)

	// RunHistory returns the full append-only run history of a test
	// replayed from the log, oldest first.
	RunHistory(ctx context.Context, testID string) ([]*models.TestRun, error)
}
