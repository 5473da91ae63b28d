package engine

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Summary is the final report of one run. It is always produced, whether or
// not individual mutations failed, and renders either as text (Render) or
// as JSON via the struct tags.
type Summary struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	Found int `json:"found"`
	Kept  int `json:"kept"`

	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`

	Failures []Failure `json:"failures,omitempty"`

	// Candidates is populated in list-only mode (no destination given).
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Render writes the human-readable report. In list-only mode it prints each
// candidate; in sync mode it prints the mutation counts and any per-item
// failures.
func (s *Summary) Render(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Source: %s\n", s.Source)
	fmt.Fprintf(&b, "Window: %s to %s\n",
		s.WindowStart.Format("2006-01-02"),
		s.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "Found %d event(s), kept %d after filters\n", s.Found, s.Kept)

	if s.Destination == "" {
		for _, c := range s.Candidates {
			b.WriteString("\n")
			fmt.Fprintf(&b, "Title: %s\n", c.Event.Title)
			fmt.Fprintf(&b, "Start: %s\n", c.Event.Start.Format(time.RFC3339))
			fmt.Fprintf(&b, "End: %s\n", c.Event.End.Format(time.RFC3339))
			if c.Event.Location != "" {
				fmt.Fprintf(&b, "Location: %s\n", c.Event.Location)
			}
			fmt.Fprintf(&b, "All Day: %t\n", c.Event.AllDay)
			fmt.Fprintf(&b, "Declined: %t\n", c.Declined)
			b.WriteString(strings.Repeat("-", 50) + "\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Sync to %s:\n", s.Destination)
	fmt.Fprintf(&b, "  Created:   %d\n", s.Created)
	fmt.Fprintf(&b, "  Updated:   %d\n", s.Updated)
	fmt.Fprintf(&b, "  Deleted:   %d\n", s.Deleted)
	fmt.Fprintf(&b, "  Unchanged: %d\n", s.Unchanged)
	fmt.Fprintf(&b, "  Failed:    %d\n", s.Failed)

	if len(s.Failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  - %s %q (%s): %s\n", f.Op, f.Title, f.Identity.Short(), f.Err)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
