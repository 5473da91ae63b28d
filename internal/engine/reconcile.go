package engine

import (
	"calsync/internal/calendar"
	"calsync/internal/model"
)

// Tracked is a destination event carrying an embedded identity tag, which
// makes it subject to automated update and deletion. Its fingerprint is
// recomputed from the event's current field values at scan time.
type Tracked struct {
	Event       model.Event
	Ref         calendar.Ref
	Identity    Identity
	Fingerprint Fingerprint
}

// Pair couples a source candidate with the tracked destination event it
// matched.
type Pair struct {
	Candidate Candidate
	Tracked   Tracked
}

// Plan is the four-way partition produced by reconciliation. Creates,
// Updates, Unchanged and Deletes are pairwise disjoint and together cover
// the union of candidate identities and tracked identities.
type Plan struct {
	Creates   []Candidate
	Updates   []Pair
	Unchanged []Pair
	Deletes   []Tracked
}

// ScanTracked extracts the tracked events from a destination calendar
// snapshot. Events without a well-formed tag line are not tracked: the
// engine never updates or deletes them, whatever the source looks like.
func ScanTracked(cal calendar.Calendar, events []model.Event) []Tracked {
	out := make([]Tracked, 0, len(events))
	for _, ev := range events {
		id, ok := ExtractTag(ev.Notes)
		if !ok {
			continue
		}
		out = append(out, Tracked{
			Event:       ev,
			Ref:         calendar.Ref{Calendar: cal, EventID: ev.ID},
			Identity:    id,
			Fingerprint: DeriveFingerprint(ev.Title, ev.Start, ev.End, ev.Availability),
		})
	}
	return out
}

// Reconcile computes the mutation plan for the candidates against the
// destination's tracked events:
//
//   - candidate identity absent from the destination        -> create
//   - present with a differing fingerprint                  -> update
//   - present with a matching fingerprint                   -> unchanged
//   - tracked identity never matched by any candidate       -> delete
//
// Duplicate tags are a corruption state (e.g. a manually duplicated
// event). The first tracked event scanned for an identity stays
// authoritative; every later duplicate is scheduled for deletion whether or
// not the identity matches a candidate, so repeated runs heal the
// destination back to one event per identity.
func Reconcile(candidates []Candidate, tracked []Tracked) Plan {
	firstIndex := make(map[Identity]int, len(tracked))
	for i, tr := range tracked {
		if _, ok := firstIndex[tr.Identity]; !ok {
			firstIndex[tr.Identity] = i
		}
	}

	var plan Plan
	matched := make(map[Identity]bool, len(candidates))

	for _, c := range candidates {
		i, ok := firstIndex[c.Identity]
		if !ok {
			plan.Creates = append(plan.Creates, c)
			continue
		}
		matched[c.Identity] = true
		pair := Pair{Candidate: c, Tracked: tracked[i]}
		if tracked[i].Fingerprint != c.Fingerprint {
			plan.Updates = append(plan.Updates, pair)
		} else {
			plan.Unchanged = append(plan.Unchanged, pair)
		}
	}

	for i, tr := range tracked {
		if firstIndex[tr.Identity] != i {
			// Later duplicate of an identity; always deleted.
			plan.Deletes = append(plan.Deletes, tr)
			continue
		}
		if !matched[tr.Identity] {
			plan.Deletes = append(plan.Deletes, tr)
		}
	}

	return plan
}
