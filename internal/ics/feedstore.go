package ics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"calsync/internal/calendar"
	"calsync/internal/model"
)

// FeedStore exposes a set of remote ICS subscriptions as read-only named
// calendars. Each feed is one calendar; recurrences are expanded at query
// time into the configured timezone.
type FeedStore struct {
	feeds   []Feed
	fetcher *Fetcher
	loc     *time.Location
}

// NewFeedStore creates a FeedStore over the given feeds. cacheDir backs
// the HTTP cache; loc (nil = time.Local) is the zone query results are
// normalized into.
func NewFeedStore(feeds []Feed, cacheDir string, loc *time.Location) *FeedStore {
	if loc == nil {
		loc = time.Local
	}
	return &FeedStore{
		feeds:   feeds,
		fetcher: NewFetcher(cacheDir),
		loc:     loc,
	}
}

func (s *FeedStore) ListCalendars(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.feeds))
	for _, f := range s.feeds {
		names = append(names, f.Name)
	}
	return names, nil
}

func (s *FeedStore) FindCalendar(ctx context.Context, name string) (calendar.Calendar, error) {
	for _, f := range s.feeds {
		if f.Name == name {
			return calendar.Calendar{ID: f.ID, Name: f.Name}, nil
		}
	}
	available, _ := s.ListCalendars(ctx)
	return calendar.Calendar{}, &calendar.NotFoundError{Name: name, Available: available}
}

func (s *FeedStore) QueryEvents(ctx context.Context, cal calendar.Calendar, start, end time.Time) ([]model.Event, error) {
	feed, ok := s.feedByName(cal.Name)
	if !ok {
		available, _ := s.ListCalendars(ctx)
		return nil, &calendar.NotFoundError{Name: cal.Name, Available: available}
	}

	res, err := s.fetcher.Fetch(ctx, feed, false)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %q: %w", feed.Name, err)
	}

	parsed, err := Parse(cal.Name, res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", feed.Name, err)
	}

	return Expand(parsed, ExpandConfig{
		Location:   s.loc,
		RangeStart: start,
		RangeEnd:   end,
	})
}

func (s *FeedStore) CreateEvent(ctx context.Context, cal calendar.Calendar, fields calendar.EventFields) (calendar.Ref, error) {
	return calendar.Ref{}, calendar.ErrReadOnly
}

func (s *FeedStore) UpdateEvent(ctx context.Context, ref calendar.Ref, fields calendar.EventFields) error {
	return calendar.ErrReadOnly
}

func (s *FeedStore) DeleteEvent(ctx context.Context, ref calendar.Ref) error {
	return calendar.ErrReadOnly
}

// ForceRefresh refetches every feed, bypassing the conditional-request
// cache, so subsequent queries see fresh upstream data. It is best-effort:
// per-feed failures are logged and joined, and stale cache remains usable.
func (s *FeedStore) ForceRefresh(ctx context.Context) error {
	var errs []error
	for _, feed := range s.feeds {
		if _, err := s.fetcher.Fetch(ctx, feed, true); err != nil {
			slog.Error("force refresh failed for feed", "id", feed.ID, "err", err)
			errs = append(errs, fmt.Errorf("feed %q: %w", feed.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *FeedStore) feedByName(name string) (Feed, bool) {
	for _, f := range s.feeds {
		if f.Name == name {
			return f, true
		}
	}
	return Feed{}, false
}
