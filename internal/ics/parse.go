package ics

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calsync/internal/model"
)

// ParsedEvent is the normalized representation of a VEVENT as produced by
// the parser. Recurrence expansion operates on this type.
type ParsedEvent struct {
	Calendar string

	UID string

	Summary     string
	Description string
	Location    string

	Start  time.Time
	End    time.Time
	AllDay bool

	// Transparent is true when the event carries TRANSP:TRANSPARENT,
	// i.e. it does not block the owner's availability.
	Transparent bool

	Attendees []model.Attendee

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present)
	IsOverride bool       // true if this VEVENT overrides a recurring instance
}

// Parse parses one ICS payload into a list of ParsedEvent.
//
//   - The underlying library's VTIMEZONE/TZID handling constructs proper
//     time.Time values (with Location set).
//   - All-day events are detected from the DTSTART value format.
//   - RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded; expansion
//     happens in expand.go.
func Parse(calendarName string, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(calendarName, comp)
		if perr != nil {
			// Log and skip this event, keep parsing the others.
			slog.Error("ics vevent parse failed", "err", perr, "calendar", calendarName)
			continue
		}
		events = append(events, ev)
	}

	slog.Debug("ics parse completed", "calendar", calendarName, "event_count", len(events))
	return events, nil
}

func parseVEvent(calendarName string, ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent
	out.Calendar = calendarName

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = unescapeText(p.Value)
	}

	// DTSTART / DTEND via the library's timezone-aware helpers.
	start, _ := ve.GetStartAt()
	end, _ := ve.GetEndAt()
	out.Start = start
	out.End = end

	// All-day: DTSTART with VALUE=DATE or a value without a time part.
	if dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart); dtStartProp != nil {
		if params := dtStartProp.ICalParameters; params != nil {
			if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
				out.AllDay = true
			}
		}
		if !strings.Contains(dtStartProp.Value, "T") {
			out.AllDay = true
		}
	}

	// TRANSP: TRANSPARENT means the event does not block availability.
	if p := ve.GetProperty("TRANSP"); p != nil {
		out.Transparent = strings.EqualFold(strings.TrimSpace(p.Value), "TRANSPARENT")
	}

	// ATTENDEE lines: address plus PARTSTAT parameter.
	for _, p := range ve.GetProperties("ATTENDEE") {
		addr := strings.TrimSpace(p.Value)
		if strings.HasPrefix(strings.ToLower(addr), "mailto:") {
			addr = addr[len("mailto:"):]
		}
		if addr == "" {
			continue
		}
		att := model.Attendee{Address: addr, Status: model.StatusUnknown}
		if params := p.ICalParameters; params != nil {
			if ps, ok := params["PARTSTAT"]; ok && len(ps) > 0 {
				att.Status = participationStatus(ps[0])
			}
		}
		out.Attendees = append(out.Attendees, att)
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE (can appear multiple times, each with a comma-separated list).
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	// RECURRENCE-ID marks an overridden instance of a recurring event.
	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		if t, err := parseICSTime(ridProp.Value); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

func participationStatus(v string) model.ParticipationStatus {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "NEEDS-ACTION":
		return model.StatusPending
	case "ACCEPTED":
		return model.StatusAccepted
	case "DECLINED":
		return model.StatusDeclined
	case "TENTATIVE":
		return model.StatusTentative
	default:
		return model.StatusUnknown
	}
}

// parseICSTime parses a basic ICS date/date-time string. It is a
// simplified helper for EXDATE/RECURRENCE-ID where full parameter context
// is unavailable; expansion normalizes timezones later.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Local date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, time.Local)
	}

	// Date-only (all-day), e.g. 20250101
	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, time.Local)
}
