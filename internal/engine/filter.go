package engine

import (
	"strings"

	"golang.org/x/text/cases"

	"calsync/internal/model"
)

// CurrentAccount identifies the local account among event attendees. It is
// injected rather than read from ambient state so declined detection stays
// testable.
type CurrentAccount interface {
	Is(address string) bool
}

// Account is a CurrentAccount matching one address, case-insensitively.
type Account string

func (a Account) Is(address string) bool {
	return strings.EqualFold(string(a), address)
}

// FilterOptions are the recognized exclusion predicates. Each one is
// independent; applying them in any order yields the same result.
type FilterOptions struct {
	ExcludeDeclined      bool
	ExcludeAllDay        bool
	ExcludeTitlePatterns []string
}

// Filter applies the configured exclusion predicates to events, preserving
// input order. An event survives only if every predicate keeps it. The
// input slice is not modified.
func Filter(events []model.Event, opts FilterOptions, account CurrentAccount) []model.Event {
	fold := cases.Fold()

	patterns := make([]string, 0, len(opts.ExcludeTitlePatterns))
	for _, p := range opts.ExcludeTitlePatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		patterns = append(patterns, fold.String(p))
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if opts.ExcludeAllDay && ev.AllDay {
			continue
		}
		if opts.ExcludeDeclined && declined(ev, account) {
			continue
		}
		if len(patterns) > 0 && titleMatchesAny(fold.String(ev.Title), patterns) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// declined reports whether the current account has declined the event.
// Organizer-only and attendee-less events are never declined.
func declined(ev model.Event, account CurrentAccount) bool {
	if account == nil {
		return false
	}
	return ev.DeclinedBy(account.Is)
}

func titleMatchesAny(foldedTitle string, foldedPatterns []string) bool {
	for _, p := range foldedPatterns {
		if strings.Contains(foldedTitle, p) {
			return true
		}
	}
	return false
}
