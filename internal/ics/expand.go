package ics

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"calsync/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the timezone all occurrences are converted into. If
	// nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd bound the occurrences of interest.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps expansion so a malformed rule cannot
	// produce an unbounded set. Zero means defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// Expand turns parsed VEVENTs into concrete events within the given range,
// ordered by start time. It handles:
//
//   - single non-recurring events
//   - RRULE-based recurrence
//   - EXDATE exception removal
//   - RECURRENCE-ID overrides
//   - all-day semantics
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]model.Event, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	var uidOrder []string

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, ok := baseByUID[ev.UID]; !ok {
			uidOrder = append(uidOrder, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	var out []model.Event
	for _, uid := range uidOrder {
		overrides := overridesByUID[uid]
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, overrides, cfg)
			if hitCap {
				slog.Warn("expand: truncated occurrences", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
			out = append(out, occ...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []model.Event {
	start, end := ev.Start, ev.End
	if o, ok := findOverrideForStart(overrides, start); ok {
		start, end = o.Start, o.End
		ev = o
	}

	// Range-check the normalized bounds: for all-day events the parse zone
	// and the configured zone can disagree on the instant.
	out := makeEvent(ev, start, end, cfg.Location)
	if !timeRangesOverlap(out.Start, out.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Event{out}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		slog.Error("expand: failed to parse RRULE", "err", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		// Best effort: align EXDATE location with the event's start.
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	// Between is inclusive at both bounds; the query window is [start, end).
	kept := occTimes[:0]
	for _, o := range occTimes {
		if o.Before(rangeEnd) {
			kept = append(kept, o)
		}
	}
	occTimes = kept

	hitCap := false
	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]model.Event, 0, len(occTimes))
	for _, occStart := range occTimes {
		var occEnd time.Time
		if ev.AllDay {
			// All-day: [date 00:00, next day 00:00) in the event's zone.
			date := time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occStart = date
			occEnd = date.Add(24 * time.Hour)
		} else {
			occEnd = occStart.Add(ev.End.Sub(ev.Start))
		}

		instEv, start, end := ev, occStart, occEnd
		if o, ok := findOverrideForStart(overrides, occStart); ok {
			instEv, start, end = o, o.Start, o.End
		}
		out = append(out, makeEvent(instEv, start, end, cfg.Location))
	}
	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID matches the
// given instance start with exact time equality.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.In(start.Location()).Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeEvent converts a (possibly overridden) ParsedEvent plus a concrete
// start/end into a model.Event normalized into loc. The event ID carries
// the instance start so each occurrence of a recurring event is
// addressable on its own.
func makeEvent(ev ParsedEvent, start, end time.Time, loc *time.Location) model.Event {
	startLocal := start.In(loc)
	endLocal := end.In(loc)
	if ev.AllDay {
		// All-day bounds are calendar dates, not instants. Rebuild them at
		// midnight in loc from the date the source named; converting the
		// parsed instant across zones would shift the date.
		startLocal = midnightIn(start, loc)
		endLocal = midnightIn(end, loc)
	}
	avail := model.Busy
	if ev.Transparent {
		avail = model.Free
	}
	return model.Event{
		ID:           ev.UID + "/" + startLocal.Format(time.RFC3339),
		Calendar:     ev.Calendar,
		Title:        ev.Summary,
		Start:        startLocal,
		End:          endLocal,
		AllDay:       ev.AllDay,
		Location:     ev.Location,
		Notes:        ev.Description,
		Availability: avail,
		Attendees:    ev.Attendees,
	}
}

// midnightIn keeps the calendar date t carries in its own zone and anchors
// it at midnight in loc.
func midnightIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// timeRangesOverlap treats both ranges as half-open [start, end).
func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
