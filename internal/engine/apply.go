package engine

import (
	"context"
	"log/slog"

	"calsync/internal/calendar"
)

// Failure records one per-item mutation error for the run summary.
type Failure struct {
	Op       string   `json:"op"` // "create" | "update" | "delete"
	Identity Identity `json:"identity"`
	Title    string   `json:"title"`
	Err      string   `json:"error"`
}

// ApplyResult aggregates what the applier actually did.
type ApplyResult struct {
	Created   int
	Updated   int
	Deleted   int
	Unchanged int
	Failures  []Failure
}

// Applier executes a reconciliation plan against the destination store,
// one item at a time. A failed item is recorded and the rest of the plan is
// still attempted; every item is idempotent to retry on a later run.
type Applier struct {
	Store calendar.Store
	Dest  calendar.Calendar
}

// Apply runs the plan. It stops early only when ctx is done, returning
// whatever was applied so far; a subsequent run converges the destination
// regardless of where this one stopped.
func (a *Applier) Apply(ctx context.Context, plan Plan) ApplyResult {
	var res ApplyResult
	res.Unchanged = len(plan.Unchanged)

	for _, c := range plan.Creates {
		if ctx.Err() != nil {
			return res
		}
		fields := candidateFields(c, UpsertTag(c.Event.Notes, c.Identity))
		if _, err := a.Store.CreateEvent(ctx, a.Dest, fields); err != nil {
			res.Failures = append(res.Failures, Failure{Op: "create", Identity: c.Identity, Title: c.Event.Title, Err: err.Error()})
			slog.Error("create failed", "title", c.Event.Title, "identity", c.Identity.Short(), "err", err)
			continue
		}
		res.Created++
	}

	for _, p := range plan.Updates {
		if ctx.Err() != nil {
			return res
		}
		// The destination's notes are authoritative on update: the tag
		// line is rewritten in place and any note text the user added in
		// the destination survives.
		fields := candidateFields(p.Candidate, UpsertTag(p.Tracked.Event.Notes, p.Candidate.Identity))
		if err := a.Store.UpdateEvent(ctx, p.Tracked.Ref, fields); err != nil {
			res.Failures = append(res.Failures, Failure{Op: "update", Identity: p.Candidate.Identity, Title: p.Candidate.Event.Title, Err: err.Error()})
			slog.Error("update failed", "title", p.Candidate.Event.Title, "identity", p.Candidate.Identity.Short(), "err", err)
			continue
		}
		res.Updated++
	}

	for _, tr := range plan.Deletes {
		if ctx.Err() != nil {
			return res
		}
		if err := a.Store.DeleteEvent(ctx, tr.Ref); err != nil {
			res.Failures = append(res.Failures, Failure{Op: "delete", Identity: tr.Identity, Title: tr.Event.Title, Err: err.Error()})
			slog.Error("delete failed", "title", tr.Event.Title, "identity", tr.Identity.Short(), "err", err)
			continue
		}
		res.Deleted++
	}

	return res
}

// candidateFields maps a candidate onto the destination write-struct.
// Declined events are written as Free so they stay visible without blocking
// the destination owner's availability.
func candidateFields(c Candidate, notes string) calendar.EventFields {
	return calendar.EventFields{
		Title:        c.Event.Title,
		Start:        c.Event.Start,
		End:          c.Event.End,
		AllDay:       c.Event.AllDay,
		Location:     c.Event.Location,
		Notes:        notes,
		Availability: c.Availability,
	}
}
