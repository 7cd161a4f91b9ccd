package models

import (
	"fmt"
	"strings"
)

// ValidationError reports a field outside its allowed range or set.
// Recoverable; surfaced verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a reference to an unknown id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.ID)
}

// CycleError reports a rejected dependency edge that would close a cycle.
// Path holds the existing chain from target back to source when known.
type CycleError struct {
	Source string
	Target string
	Path   []string
}

func (e *CycleError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("edge %s -> %s would create a cycle: %s", e.Source, e.Target, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("edge %s -> %s would create a cycle", e.Source, e.Target)
}

// ConflictError reports a duplicate id or a concurrent structural clash,
// including a second writer contending for the journal lock.
type ConflictError struct {
	Op     string
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict in %s: %s", e.Op, e.Detail)
}

// IOError wraps a log or backend read/write failure. The failed operation
// consumed no version; the caller decides whether to retry.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a malformed sync message. It affects only the
// observer that produced it.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}
