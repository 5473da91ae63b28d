package model

import "time"

// ParticipationStatus is an attendee's response to an event invitation,
// mirroring the states calendar backends commonly report.
type ParticipationStatus int

const (
	StatusUnknown ParticipationStatus = iota
	StatusPending
	StatusAccepted
	StatusDeclined
	StatusTentative
)

func (s ParticipationStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusDeclined:
		return "declined"
	case StatusTentative:
		return "tentative"
	default:
		return "unknown"
	}
}

// Availability says whether an event blocks the owner's free/busy time.
type Availability int

const (
	Busy Availability = iota
	Free
)

func (a Availability) String() string {
	if a == Free {
		return "free"
	}
	return "busy"
}

// Attendee is a single participation record on an event.
type Attendee struct {
	Address string
	Status  ParticipationStatus
}

// Event is one calendar entry as surfaced by a calendar store. Events are
// ephemeral; they exist only for the duration of a run.
type Event struct {
	// ID is the store-scoped event identifier. It may be empty for events
	// that are not individually addressable (e.g. read-only feed
	// occurrences).
	ID       string
	Calendar string

	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Location string
	Notes    string

	Availability Availability
	Attendees    []Attendee
}

// DeclinedBy reports whether the account identified by isSelf has declined
// this event. Events without attendees, or where the account is not among
// the attendees, are never declined.
func (e Event) DeclinedBy(isSelf func(address string) bool) bool {
	if isSelf == nil {
		return false
	}
	for _, a := range e.Attendees {
		if isSelf(a.Address) {
			return a.Status == StatusDeclined
		}
	}
	return false
}
