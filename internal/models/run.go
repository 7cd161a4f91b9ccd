package models

import "time"

// Test run outcome constants
const (
	OutcomePass    = "pass"
	OutcomeFail    = "fail"
	OutcomeTimeout = "timeout"
)

// MaxRunOutput caps the captured output stored per run.
const MaxRunOutput = 8 * 1024

// TestRun captures one completed execution of a test entity.
// Run history is append-only; the index keeps only a latest pointer.
type TestRun struct {
	ID         string    `json:"id"`
	TestID     string    `json:"test_id"`
	Outcome    string    `json:"outcome"`
	ExitCode   int       `json:"exit_code"`
	DurationMS int64     `json:"duration_ms"`
	Output     string    `json:"output,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// Failed reports whether the run should trigger regression handling.
// A timeout counts as a failure for reopen purposes.
func (r *TestRun) Failed() bool {
	return r.Outcome == OutcomeFail || r.Outcome == OutcomeTimeout
}

// Validate checks the run fields.
func (r *TestRun) Validate() error {
	if r.TestID == "" {
		return &ValidationError{Field: "test_id", Reason: "must not be empty"}
	}
	switch r.Outcome {
	case OutcomePass, OutcomeFail, OutcomeTimeout:
	default:
		return &ValidationError{Field: "outcome", Reason: "unknown outcome " + r.Outcome}
	}
	return nil
}

// TruncateOutput trims the captured output to MaxRunOutput bytes.
func (r *TestRun) TruncateOutput() {
	if len(r.Output) > MaxRunOutput {
		r.Output = r.Output[:MaxRunOutput]
	}
}

// Note kind constants
const (
	NoteComment = "comment"
	NoteReopen  = "reopen"
	NoteSystem  = "system"
)

// Note is a structured annotation attached to an entity. Notes are
// append-only audit history and are never rewritten.
type Note struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CommitLink records a commit hash against an entity.
type CommitLink struct {
	EntityID string    `json:"entity_id"`
	Hash     string    `json:"hash"`
	LinkedAt time.Time `json:"linked_at"`
}
