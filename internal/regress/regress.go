// Package regress implements the test-failure regression detector. It
// is pure planning logic over an index snapshot: given a completed run,
// it decides which closed entities must reopen and with what note. The
// store executes the plan as ordinary logged mutations.
package regress

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/braid/internal/index"
	"github.com/example/braid/internal/models"
)

// Reopen names one entity to flip from done to reopened, with the
// structured note to append alongside.
type Reopen struct {
	EntityID string
	NoteBody string
}

// Plan inspects a completed run against the snapshot. A failing (or
// timed-out) run reopens every entity currently done that is linked to
// the test by a tested_by edge. A passing run never closes anything.
func Plan(snap *index.Snapshot, run *models.TestRun) []Reopen {
	if !run.Failed() {
		return nil
	}

	var out []Reopen
	for _, e := range snap.EdgesTo(run.TestID, models.EdgeTestedBy) {
		entity := snap.Entity(e.Source)
		if entity == nil || entity.Status != models.StatusDone {
			continue
		}
		out = append(out, Reopen{
			EntityID: entity.ID,
			NoteBody: noteBody(snap, entity, run),
		})
	}
	return out
}

// noteBody renders the failure summary plus every commit recorded
// against the entity since its close time.
func noteBody(snap *index.Snapshot, entity *models.Entity, run *models.TestRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "reopened by %s run of %s", run.Outcome, run.TestID)
	fmt.Fprintf(&b, " (exit %d, %dms)", run.ExitCode, run.DurationMS)
	if summary := firstLine(run.Output); summary != "" {
		fmt.Fprintf(&b, "\nfailure: %s", summary)
	}

	var since time.Time
	if entity.ClosedAt != nil {
		since = *entity.ClosedAt
	}
	for _, link := range snap.Commits(entity.ID) {
		if !link.LinkedAt.Before(since) {
			fmt.Fprintf(&b, "\ncommit since close: %s", link.Hash)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
