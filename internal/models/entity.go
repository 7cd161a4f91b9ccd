// Package models contains domain types for braid entities, edges, and runs.
// Persistence lives in internal/journal; queries in internal/index.
package models

import (
	"time"
)

// Entity is the common envelope shared by every tracked record family.
// Optional fields are additive-only so old logs stay readable.
type Entity struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	ShortName    string     `json:"short_name,omitempty"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	Tags         []string   `json:"tags,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	ClosedReason string     `json:"closed_reason,omitempty"`
}

// Entity family constants
const (
	TypeTask      = "task"
	TypeBug       = "bug"
	TypeIdea      = "idea"
	TypeTest      = "test"
	TypeDoc       = "doc"
	TypeMilestone = "milestone"
	TypeQueue     = "queue"
	TypeAgent     = "agent"
)

// Entity status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusBlocked    = "blocked"
	StatusCancelled  = "cancelled"
	StatusReopened   = "reopened"
)

// Priority bounds (inclusive). 0 is most urgent.
const (
	PriorityMin = 0
	PriorityMax = 4
)

// Families maps each entity family to its id prefix.
var Families = map[string]string{
	TypeTask:      "tk",
	TypeBug:       "bg",
	TypeIdea:      "id",
	TypeTest:      "ts",
	TypeDoc:       "dc",
	TypeMilestone: "ms",
	TypeQueue:     "qu",
	TypeAgent:     "ag",
}

// trackedStatuses applies to work-bearing families (task, bug, idea, test,
// doc, milestone). Queues and agents never reach done or reopened.
var trackedStatuses = map[string]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusDone:       true,
	StatusBlocked:    true,
	StatusCancelled:  true,
	StatusReopened:   true,
}

var structuralStatuses = map[string]bool{
	StatusPending:    true,
	StatusInProgress: true,
	StatusBlocked:    true,
	StatusCancelled:  true,
}

// AllowedStatuses returns the valid status set for a family.
func AllowedStatuses(family string) map[string]bool {
	switch family {
	case TypeQueue, TypeAgent:
		return structuralStatuses
	default:
		return trackedStatuses
	}
}

// Open reports whether the entity is still live for dependency purposes.
// Done and cancelled entities never block anything.
func (e *Entity) Open() bool {
	return e.Status != StatusDone && e.Status != StatusCancelled
}

// Closed reports whether the entity has reached a terminal status.
func (e *Entity) Closed() bool {
	return !e.Open()
}

// Validate checks the envelope fields against family rules.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if _, ok := Families[e.Type]; !ok {
		return &ValidationError{Field: "type", Reason: "unknown family " + e.Type}
	}
	if e.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if e.Priority < PriorityMin || e.Priority > PriorityMax {
		return &ValidationError{Field: "priority", Reason: "must be between 0 and 4"}
	}
	if !AllowedStatuses(e.Type)[e.Status] {
		return &ValidationError{Field: "status", Reason: "status " + e.Status + " not allowed for " + e.Type}
	}
	return nil
}

// Clone returns a deep copy so index snapshots can hand out entities
// without aliasing mutable state.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.ClosedAt != nil {
		t := *e.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
