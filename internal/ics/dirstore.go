package ics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"calsync/internal/calendar"
	"calsync/internal/model"
)

// DirStore is a writable calendar store backed by a directory of ICS
// files, one file per calendar (<name>.ics). It is the durable destination
// side of a sync: tag lines written into event descriptions persist in the
// files between runs.
//
// Writes are serialized through a store-wide mutex and land via a temp
// file + rename, so a crashed run never leaves a half-written calendar.
type DirStore struct {
	dir string
	loc *time.Location

	mu sync.Mutex
}

// NewDirStore opens (and creates, if needed) the calendar directory.
func NewDirStore(dir string, loc *time.Location) (*DirStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("calendar directory is empty")
	}
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &DirStore{dir: dir, loc: loc}, nil
}

// CreateCalendar creates an empty named calendar. Existing calendars are
// left alone.
func (s *DirStore) CreateCalendar(name string) (calendar.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.calendarPath(name)
	if _, err := os.Stat(path); err == nil {
		return calendar.Calendar{ID: name, Name: name}, nil
	}
	if err := s.save(path, ical.NewCalendar()); err != nil {
		return calendar.Calendar{}, err
	}
	return calendar.Calendar{ID: name, Name: name}, nil
}

func (s *DirStore) ListCalendars(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".ics"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirStore) FindCalendar(ctx context.Context, name string) (calendar.Calendar, error) {
	if _, err := os.Stat(s.calendarPath(name)); err != nil {
		available, lerr := s.ListCalendars(ctx)
		if lerr != nil {
			return calendar.Calendar{}, lerr
		}
		return calendar.Calendar{}, &calendar.NotFoundError{Name: name, Available: available}
	}
	return calendar.Calendar{ID: name, Name: name}, nil
}

func (s *DirStore) QueryEvents(ctx context.Context, cal calendar.Calendar, start, end time.Time) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, err := os.ReadFile(s.calendarPath(cal.Name))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	parsed, err := Parse(cal.Name, body)
	if err != nil {
		return nil, err
	}

	events, err := Expand(parsed, ExpandConfig{
		Location:   s.loc,
		RangeStart: start,
		RangeEnd:   end,
	})
	if err != nil {
		return nil, err
	}

	// Expanded IDs carry an instance suffix; collapse them back to the
	// VEVENT UID so refs stay addressable for update/delete.
	for i := range events {
		if idx := strings.LastIndex(events[i].ID, "/"); idx >= 0 {
			events[i].ID = events[i].ID[:idx]
		}
	}
	return events, nil
}

func (s *DirStore) CreateEvent(ctx context.Context, cal calendar.Calendar, fields calendar.EventFields) (calendar.Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.calendarPath(cal.Name)
	vcal, err := s.load(path)
	if err != nil {
		return calendar.Ref{}, err
	}

	uid := uuid.NewString()
	setEventFields(vcal.AddEvent(uid), fields)
	if err := s.save(path, vcal); err != nil {
		return calendar.Ref{}, err
	}
	return calendar.Ref{Calendar: cal, EventID: uid}, nil
}

func (s *DirStore) UpdateEvent(ctx context.Context, ref calendar.Ref, fields calendar.EventFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.calendarPath(ref.Calendar.Name)
	vcal, err := s.load(path)
	if err != nil {
		return err
	}
	if !removeVEvent(vcal, ref.EventID) {
		return calendar.ErrEventNotFound
	}
	setEventFields(vcal.AddEvent(ref.EventID), fields)
	return s.save(path, vcal)
}

func (s *DirStore) DeleteEvent(ctx context.Context, ref calendar.Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.calendarPath(ref.Calendar.Name)
	vcal, err := s.load(path)
	if err != nil {
		return err
	}
	if !removeVEvent(vcal, ref.EventID) {
		return calendar.ErrEventNotFound
	}
	return s.save(path, vcal)
}

func (s *DirStore) calendarPath(name string) string {
	return filepath.Join(s.dir, name+".ics")
}

func (s *DirStore) load(path string) (*ical.Calendar, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return ical.NewCalendar(), nil
	}
	return ical.ParseCalendar(strings.NewReader(string(body)))
}

// save writes the calendar atomically: temp file in the same directory,
// fsync, chmod 0600, rename over the target.
func (s *DirStore) save(path string, vcal *ical.Calendar) error {
	tmp, err := os.CreateTemp(s.dir, ".calsync-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(vcal.Serialize()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func setEventFields(ve *ical.VEvent, fields calendar.EventFields) {
	ve.SetDtStampTime(time.Now().UTC())
	if fields.AllDay {
		ve.SetAllDayStartAt(fields.Start)
		ve.SetAllDayEndAt(fields.End)
	} else {
		ve.SetStartAt(fields.Start.UTC())
		ve.SetEndAt(fields.End.UTC())
	}
	ve.SetProperty(ical.ComponentPropertySummary, escapeText(fields.Title))
	if fields.Location != "" {
		ve.SetProperty(ical.ComponentPropertyLocation, escapeText(fields.Location))
	}
	if fields.Notes != "" {
		ve.SetProperty(ical.ComponentPropertyDescription, escapeText(fields.Notes))
	}
	transp := "OPAQUE"
	if fields.Availability == model.Free {
		transp = "TRANSPARENT"
	}
	ve.SetProperty("TRANSP", transp)
}

func removeVEvent(vcal *ical.Calendar, uid string) bool {
	for i, comp := range vcal.Components {
		ve, ok := comp.(*ical.VEvent)
		if !ok {
			continue
		}
		p := ve.GetProperty(ical.ComponentPropertyUniqueId)
		if p != nil && p.Value == uid {
			vcal.Components = append(vcal.Components[:i], vcal.Components[i+1:]...)
			return true
		}
	}
	return false
}
