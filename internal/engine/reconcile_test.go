package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calsync/internal/calendar"
	"calsync/internal/model"
)

var destCal = calendar.Calendar{ID: "dest-id", Name: "Work Mirror"}

// candidateFor builds a candidate the way the pipeline would.
func candidateFor(t *testing.T, title string, start time.Time, avail model.Availability) Candidate {
	t.Helper()
	ev := testEvent(title, start, start.Add(time.Hour))
	return Candidate{
		Event:        ev,
		Identity:     DeriveIdentity(ev),
		Availability: avail,
		Fingerprint:  DeriveFingerprint(title, ev.Start, ev.End, avail),
	}
}

// trackedFor builds the destination-side mirror of a candidate, optionally
// mutated before fingerprinting.
func trackedFor(t *testing.T, c Candidate, id string, mutate func(*model.Event)) Tracked {
	t.Helper()
	ev := c.Event
	ev.ID = id
	ev.Notes = UpsertTag("", c.Identity)
	ev.Availability = c.Availability
	if mutate != nil {
		mutate(&ev)
	}
	return Tracked{
		Event:       ev,
		Ref:         calendar.Ref{Calendar: destCal, EventID: id},
		Identity:    c.Identity,
		Fingerprint: DeriveFingerprint(ev.Title, ev.Start, ev.End, ev.Availability),
	}
}

func TestScanTracked(t *testing.T) {
	start := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	tagged := testEvent("Mirrored", start, start.Add(time.Hour))
	tagged.ID = "ev-1"
	tagged.Notes = "SOURCE_ID: " + string(testID)

	untagged := testEvent("Dentist", start.Add(2*time.Hour), start.Add(3*time.Hour))
	untagged.ID = "ev-2"
	untagged.Notes = "personal appointment"

	out := ScanTracked(destCal, []model.Event{tagged, untagged})
	require.Len(t, out, 1, "untagged events are invisible to reconciliation")
	assert.Equal(t, testID, out[0].Identity)
	assert.Equal(t, "ev-1", out[0].Ref.EventID)
	assert.Equal(t, destCal, out[0].Ref.Calendar)
	assert.Equal(t,
		DeriveFingerprint("Mirrored", tagged.Start, tagged.End, model.Busy),
		out[0].Fingerprint)
}

func TestReconcile(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	t.Run("empty destination creates everything", func(t *testing.T) {
		a := candidateFor(t, "A", start, model.Busy)
		b := candidateFor(t, "B", start.Add(time.Hour), model.Busy)

		plan := Reconcile([]Candidate{a, b}, nil)
		assert.Len(t, plan.Creates, 2)
		assert.Empty(t, plan.Updates)
		assert.Empty(t, plan.Unchanged)
		assert.Empty(t, plan.Deletes)
	})

	t.Run("identical state is all unchanged", func(t *testing.T) {
		a := candidateFor(t, "A", start, model.Busy)
		tr := trackedFor(t, a, "ev-a", nil)

		plan := Reconcile([]Candidate{a}, []Tracked{tr})
		assert.Empty(t, plan.Creates)
		assert.Empty(t, plan.Updates)
		require.Len(t, plan.Unchanged, 1)
		assert.Empty(t, plan.Deletes)
	})

	t.Run("availability drift triggers an update", func(t *testing.T) {
		a := candidateFor(t, "A", start, model.Free)
		tr := trackedFor(t, a, "ev-a", func(ev *model.Event) {
			ev.Availability = model.Busy
		})

		plan := Reconcile([]Candidate{a}, []Tracked{tr})
		require.Len(t, plan.Updates, 1)
		assert.Equal(t, a.Identity, plan.Updates[0].Candidate.Identity)
		assert.Equal(t, "ev-a", plan.Updates[0].Tracked.Ref.EventID)
		assert.Empty(t, plan.Creates)
		assert.Empty(t, plan.Deletes)
	})

	t.Run("vanished source event is deleted", func(t *testing.T) {
		gone := candidateFor(t, "Gone", start, model.Busy)
		tr := trackedFor(t, gone, "ev-gone", nil)

		plan := Reconcile(nil, []Tracked{tr})
		require.Len(t, plan.Deletes, 1)
		assert.Equal(t, "ev-gone", plan.Deletes[0].Ref.EventID)
	})

	t.Run("rename is a delete plus a create", func(t *testing.T) {
		old := candidateFor(t, "Old title", start, model.Busy)
		tr := trackedFor(t, old, "ev-old", nil)
		renamed := candidateFor(t, "New title", start, model.Busy)

		plan := Reconcile([]Candidate{renamed}, []Tracked{tr})
		require.Len(t, plan.Creates, 1)
		assert.Equal(t, "New title", plan.Creates[0].Event.Title)
		require.Len(t, plan.Deletes, 1)
		assert.Equal(t, "ev-old", plan.Deletes[0].Ref.EventID)
		assert.Empty(t, plan.Updates)
		assert.Empty(t, plan.Unchanged)
	})

	t.Run("duplicate tags keep the first and delete the rest", func(t *testing.T) {
		a := candidateFor(t, "A", start, model.Busy)
		first := trackedFor(t, a, "ev-first", nil)
		second := trackedFor(t, a, "ev-second", nil)
		third := trackedFor(t, a, "ev-third", nil)

		plan := Reconcile([]Candidate{a}, []Tracked{first, second, third})
		require.Len(t, plan.Unchanged, 1)
		assert.Equal(t, "ev-first", plan.Unchanged[0].Tracked.Ref.EventID)
		require.Len(t, plan.Deletes, 2)
		assert.Equal(t, "ev-second", plan.Deletes[0].Ref.EventID)
		assert.Equal(t, "ev-third", plan.Deletes[1].Ref.EventID)
	})

	t.Run("duplicate tags without a candidate are all deleted", func(t *testing.T) {
		a := candidateFor(t, "A", start, model.Busy)
		first := trackedFor(t, a, "ev-first", nil)
		second := trackedFor(t, a, "ev-second", nil)

		plan := Reconcile(nil, []Tracked{first, second})
		require.Len(t, plan.Deletes, 2)
	})

	t.Run("partition covers every candidate and tracked event", func(t *testing.T) {
		created := candidateFor(t, "Created", start, model.Busy)
		updated := candidateFor(t, "Updated", start.Add(time.Hour), model.Free)
		same := candidateFor(t, "Same", start.Add(2*time.Hour), model.Busy)
		gone := candidateFor(t, "Gone", start.Add(3*time.Hour), model.Busy)

		tracked := []Tracked{
			trackedFor(t, updated, "ev-upd", func(ev *model.Event) { ev.Availability = model.Busy }),
			trackedFor(t, same, "ev-same", nil),
			trackedFor(t, gone, "ev-gone", nil),
		}

		plan := Reconcile([]Candidate{created, updated, same}, tracked)
		assert.Len(t, plan.Creates, 1)
		assert.Len(t, plan.Updates, 1)
		assert.Len(t, plan.Unchanged, 1)
		assert.Len(t, plan.Deletes, 1)
		assert.Equal(t,
			len(tracked),
			len(plan.Updates)+len(plan.Unchanged)+len(plan.Deletes),
			"every tracked event lands in exactly one bucket")
	})
}
