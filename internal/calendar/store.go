// Package calendar defines the calendar store capability the sync engine
// depends on, plus store implementations that are not tied to a particular
// wire format (an in-memory store and a multiplexing store).
//
// Any calendar-capable backend (an ICS feed, a local ICS directory, CalDAV,
// a hosted calendar API) can satisfy Store; the reconciliation engine never
// sees anything beyond this interface.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calsync/internal/model"
)

// Calendar is a handle to a named calendar within a Store.
type Calendar struct {
	ID   string
	Name string
}

// Ref addresses one event within a calendar for update/delete.
type Ref struct {
	Calendar Calendar
	EventID  string
}

// EventFields carries the writable fields of an event.
type EventFields struct {
	Title        string
	Start        time.Time
	End          time.Time
	AllDay       bool
	Location     string
	Notes        string
	Availability model.Availability
}

// Store is the calendar store capability.
type Store interface {
	ListCalendars(ctx context.Context) ([]string, error)

	// FindCalendar resolves a calendar by name. When the name matches
	// nothing the returned error is a *NotFoundError carrying the full
	// set of available names.
	FindCalendar(ctx context.Context, name string) (Calendar, error)

	// QueryEvents returns the calendar's events overlapping [start, end),
	// ordered by start time.
	QueryEvents(ctx context.Context, cal Calendar, start, end time.Time) ([]model.Event, error)

	CreateEvent(ctx context.Context, cal Calendar, fields EventFields) (Ref, error)
	UpdateEvent(ctx context.Context, ref Ref, fields EventFields) error
	DeleteEvent(ctx context.Context, ref Ref) error
}

// Refresher is an optional Store capability: a best-effort hint asking the
// backend to re-synchronize its upstream sources before the next query. It
// is not a freshness guarantee.
type Refresher interface {
	ForceRefresh(ctx context.Context) error
}

// ErrReadOnly is returned by stores that cannot mutate events.
var ErrReadOnly = errors.New("calendar store is read-only")

// ErrEventNotFound is returned when a Ref no longer resolves to an event.
var ErrEventNotFound = errors.New("event not found")

// NotFoundError reports a calendar name that matched nothing in the store.
// Available carries every calendar name the store knows about, so the user
// can see what to ask for instead.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("calendar %q not found", e.Name)
	}
	return fmt.Sprintf("calendar %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
