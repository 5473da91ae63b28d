package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calsync/internal/calendar"
)

// Options select what one run does. An empty Destination puts the run in
// list-only mode: the pipeline stops after identity derivation and reports
// the filtered candidates without touching any destination calendar.
type Options struct {
	Source       string
	Destination  string
	Days         int
	ForceRefresh bool
	Filter       FilterOptions
}

// Runner wires a calendar store and the current account into runnable
// syncs. One Runner may serve many runs; it keeps no state between them.
type Runner struct {
	Store   calendar.Store
	Account CurrentAccount

	// Location anchors the query window's day boundaries. Nil means
	// time.Local.
	Location *time.Location

	// Now is a test hook. Nil means time.Now.
	Now func() time.Time
}

// Run executes one pipeline pass: fetch -> filter -> identify ->
// (reconcile -> apply) -> summary. Setup problems (unknown calendar, store
// unreachable, bad options) return an error before any mutation; per-item
// mutation failures are collected into the summary instead.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Source == "" {
		return nil, fmt.Errorf("source calendar name is required")
	}
	if opts.Days < 0 {
		return nil, fmt.Errorf("days must be non-negative, got %d", opts.Days)
	}

	start, end := r.window(opts.Days)

	srcCal, err := r.Store.FindCalendar(ctx, opts.Source)
	if err != nil {
		return nil, err
	}

	if opts.ForceRefresh {
		if refresher, ok := r.Store.(calendar.Refresher); ok {
			slog.Info("forcing calendar refresh")
			if err := refresher.ForceRefresh(ctx); err != nil {
				// Best-effort hint; the run proceeds on stale data.
				slog.Error("force refresh failed", "err", err)
			}
		} else {
			slog.Debug("store does not support force refresh; skipping")
		}
	}

	slog.Info("fetching events",
		"source", opts.Source,
		"from", start.Format("2006-01-02"),
		"to", end.Format("2006-01-02"))

	events, err := r.Store.QueryEvents(ctx, srcCal, start, end)
	if err != nil {
		return nil, fmt.Errorf("query source calendar %q: %w", opts.Source, err)
	}

	kept := Filter(events, opts.Filter, r.Account)
	candidates := BuildCandidates(kept, r.Account)

	sum := &Summary{
		Source:      opts.Source,
		Destination: opts.Destination,
		WindowStart: start,
		WindowEnd:   end,
		Found:       len(events),
		Kept:        len(kept),
	}

	if opts.Destination == "" {
		sum.Candidates = candidates
		return sum, nil
	}

	destCal, err := r.Store.FindCalendar(ctx, opts.Destination)
	if err != nil {
		return nil, err
	}

	// Single consistent snapshot of the destination; mutations applied
	// below are not re-read within this run.
	destEvents, err := r.Store.QueryEvents(ctx, destCal, start, end)
	if err != nil {
		return nil, fmt.Errorf("query destination calendar %q: %w", opts.Destination, err)
	}
	tracked := ScanTracked(destCal, destEvents)

	slog.Info("comparing source candidates with tracked destination events",
		"candidates", len(candidates),
		"tracked", len(tracked))

	plan := Reconcile(candidates, tracked)

	applier := &Applier{Store: r.Store, Dest: destCal}
	res := applier.Apply(ctx, plan)

	sum.Created = res.Created
	sum.Updated = res.Updated
	sum.Deleted = res.Deleted
	sum.Unchanged = res.Unchanged
	sum.Failed = len(res.Failures)
	sum.Failures = res.Failures
	return sum, nil
}

// window returns [start of today, start of today + days + 1) in the
// runner's location, so a zero-day window still covers all of today and a
// 7-day window includes events on the seventh day.
func (r *Runner) window(days int) (time.Time, time.Time) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, days+1)
}
