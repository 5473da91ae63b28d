package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calsync/internal/model"
)

func TestFilter(t *testing.T) {
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	account := Account("me@example.com")

	timed := testEvent("Planning", start, start.Add(time.Hour))
	allDay := testEvent("Company holiday", start, start.Add(24*time.Hour))
	allDay.AllDay = true
	declined := testEvent("Vendor pitch", start.Add(2*time.Hour), start.Add(3*time.Hour))
	declined.Attendees = []model.Attendee{
		{Address: "ME@Example.COM", Status: model.StatusDeclined},
	}
	focus := testEvent("Focus Time", start.Add(4*time.Hour), start.Add(5*time.Hour))

	all := []model.Event{timed, allDay, declined, focus}

	t.Run("no options keeps everything in order", func(t *testing.T) {
		out := Filter(all, FilterOptions{}, account)
		require.Len(t, out, 4)
		assert.Equal(t, "Planning", out[0].Title)
		assert.Equal(t, "Company holiday", out[1].Title)
		assert.Equal(t, "Vendor pitch", out[2].Title)
		assert.Equal(t, "Focus Time", out[3].Title)
	})

	t.Run("exclude all-day", func(t *testing.T) {
		out := Filter(all, FilterOptions{ExcludeAllDay: true}, account)
		require.Len(t, out, 3)
		for _, ev := range out {
			assert.False(t, ev.AllDay)
		}
	})

	t.Run("exclude declined matches the account case-insensitively", func(t *testing.T) {
		out := Filter(all, FilterOptions{ExcludeDeclined: true}, account)
		require.Len(t, out, 3)
		for _, ev := range out {
			assert.NotEqual(t, "Vendor pitch", ev.Title)
		}
	})

	t.Run("exclude declined keeps attendee-less events", func(t *testing.T) {
		out := Filter([]model.Event{timed}, FilterOptions{ExcludeDeclined: true}, account)
		assert.Len(t, out, 1)
	})

	t.Run("exclude declined keeps events the account is not invited to", func(t *testing.T) {
		ev := testEvent("Their standup", start, start.Add(time.Hour))
		ev.Attendees = []model.Attendee{
			{Address: "them@example.com", Status: model.StatusDeclined},
		}
		out := Filter([]model.Event{ev}, FilterOptions{ExcludeDeclined: true}, account)
		assert.Len(t, out, 1)
	})

	t.Run("title patterns are case-folded substrings", func(t *testing.T) {
		out := Filter(all, FilterOptions{ExcludeTitlePatterns: []string{"FOCUS"}}, account)
		require.Len(t, out, 3)
		for _, ev := range out {
			assert.NotEqual(t, "Focus Time", ev.Title)
		}
	})

	t.Run("blank patterns are ignored", func(t *testing.T) {
		out := Filter(all, FilterOptions{ExcludeTitlePatterns: []string{"", "  "}}, account)
		assert.Len(t, out, 4)
	})

	t.Run("predicates compose", func(t *testing.T) {
		out := Filter(all, FilterOptions{
			ExcludeDeclined:      true,
			ExcludeAllDay:        true,
			ExcludeTitlePatterns: []string{"focus"},
		}, account)
		require.Len(t, out, 1)
		assert.Equal(t, "Planning", out[0].Title)
	})

	t.Run("nil account never treats events as declined", func(t *testing.T) {
		out := Filter([]model.Event{declined}, FilterOptions{ExcludeDeclined: true}, nil)
		assert.Len(t, out, 1)
	})

	t.Run("input slice is untouched", func(t *testing.T) {
		before := make([]model.Event, len(all))
		copy(before, all)
		_ = Filter(all, FilterOptions{ExcludeAllDay: true, ExcludeTitlePatterns: []string{"focus"}}, account)
		assert.Equal(t, before, all)
	})
}
