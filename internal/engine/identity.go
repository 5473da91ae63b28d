package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"calsync/internal/model"
)

// Identity is the deterministic key derived from an event's normalized
// title and time bounds. It is stable across runs for unchanged events and
// is what the SOURCE_ID tag persists in the destination store.
type Identity string

// Short returns an abbreviated form for logs and diagnostics.
func (id Identity) Short() string {
	if len(id) <= 12 {
		return string(id)
	}
	return string(id[:12])
}

// Fingerprint is a digest over the mutable synced fields. Two events with
// equal fingerprints need no update.
type Fingerprint string

// DeriveIdentity maps an event to its Identity: SHA-256 over the trimmed
// title and the RFC 3339 UTC start and end instants, rendered as a 64-char
// hex string. Rendering the instants in UTC keeps the identity independent
// of the source's timezone representation.
//
// Because the title participates, renaming an event is indistinguishable
// from deleting the old event and creating a new one; the engine will
// schedule a delete plus a create rather than an update. That is the
// intended behavior, not an accident.
func DeriveIdentity(ev model.Event) Identity {
	sum := sha256.Sum256([]byte(identityKey(ev)))
	return Identity(hex.EncodeToString(sum[:]))
}

func identityKey(ev model.Event) string {
	return strings.TrimSpace(ev.Title) + "|" +
		ev.Start.UTC().Format(time.RFC3339) + "|" +
		ev.End.UTC().Format(time.RFC3339)
}

// DeriveFingerprint digests the fields that matter for update detection:
// title, start, end and availability. Location and notes deliberately do
// not participate; changing them alone never triggers an update.
func DeriveFingerprint(title string, start, end time.Time, avail model.Availability) Fingerprint {
	key := strings.TrimSpace(title) + "|" +
		start.UTC().Format(time.RFC3339) + "|" +
		end.UTC().Format(time.RFC3339) + "|" +
		avail.String()
	sum := sha256.Sum256([]byte(key))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Candidate is a filtered source event annotated with everything the
// reconciler needs: its identity, whether the current account declined it,
// the availability to write, and the update-detection fingerprint.
type Candidate struct {
	Event        model.Event
	Identity     Identity
	Declined     bool
	Availability model.Availability
	Fingerprint  Fingerprint
}

// BuildCandidates derives identities and fingerprints for the filtered
// events. Declined events are still synced for visibility but marked Free
// so they do not block the destination owner's availability.
//
// Two distinct events can hash to the same identity (truly identical
// title and times). Both are processed: the later one replaces the earlier
// in place and determines the content written for that identity. The
// collision is logged as a warning.
func BuildCandidates(events []model.Event, account CurrentAccount) []Candidate {
	out := make([]Candidate, 0, len(events))
	seen := make(map[Identity]int, len(events))

	for _, ev := range events {
		c := Candidate{
			Event:        ev,
			Identity:     DeriveIdentity(ev),
			Declined:     declined(ev, account),
			Availability: model.Busy,
		}
		if c.Declined {
			c.Availability = model.Free
		}
		c.Fingerprint = DeriveFingerprint(ev.Title, ev.Start, ev.End, c.Availability)

		if i, dup := seen[c.Identity]; dup {
			slog.Warn("identity collision between source events; later event wins",
				"identity", c.Identity.Short(),
				"title", ev.Title,
				"start", ev.Start)
			out[i] = c
			continue
		}
		seen[c.Identity] = len(out)
		out = append(out, c)
	}
	return out
}
