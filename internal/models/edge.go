package models

import "time"

// Edge is a typed directed relation between two entity ids.
type Edge struct {
	ID        string    `json:"id,omitempty"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Type      string    `json:"edge_type"`
	Reason    string    `json:"reason,omitempty"`
	Weight    float64   `json:"weight,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Edge type constants
const (
	EdgeDependsOn = "depends_on"
	EdgeChildOf   = "child_of"
	EdgeTestedBy  = "tested_by"
	EdgeQueued    = "queued"
	EdgeWorkingOn = "working_on"
	EdgeDocuments = "documents"
	EdgeRelatedTo = "related_to"
)

// EdgeTypes is the closed set of allowed edge types.
var EdgeTypes = map[string]bool{
	EdgeDependsOn: true,
	EdgeChildOf:   true,
	EdgeTestedBy:  true,
	EdgeQueued:    true,
	EdgeWorkingOn: true,
	EdgeDocuments: true,
	EdgeRelatedTo: true,
}

// DependencyEdge reports whether the edge type participates in the
// acyclicity invariant.
func DependencyEdge(edgeType string) bool {
	return edgeType == EdgeDependsOn || edgeType == EdgeChildOf
}

// Validate checks the edge fields.
func (e *Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return &ValidationError{Field: "source/target", Reason: "must not be empty"}
	}
	if !EdgeTypes[e.Type] {
		return &ValidationError{Field: "edge_type", Reason: "unknown edge type " + e.Type}
	}
	return nil
}

// Key returns the structural identity of the edge, used for duplicate
// detection independent of the assigned id.
func (e *Edge) Key() string {
	return e.Source + "\x00" + e.Target + "\x00" + e.Type
}
