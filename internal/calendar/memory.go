package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"calsync/internal/model"
)

// MemoryStore is an in-memory Store implementation. It backs the engine
// tests and doubles as a scratch backend; it holds no state beyond the
// process lifetime.
type MemoryStore struct {
	mu        sync.Mutex
	order     []string
	calendars map[string]*memCalendar
}

type memCalendar struct {
	cal    Calendar
	events map[string]model.Event
}

// NewMemoryStore creates a store containing the named calendars.
func NewMemoryStore(names ...string) *MemoryStore {
	s := &MemoryStore{calendars: make(map[string]*memCalendar)}
	for _, name := range names {
		s.AddCalendar(name)
	}
	return s
}

// AddCalendar creates an empty calendar, or returns the existing handle if
// the name is already taken.
func (s *MemoryStore) AddCalendar(name string) Calendar {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mc, ok := s.calendars[name]; ok {
		return mc.cal
	}
	mc := &memCalendar{
		cal:    Calendar{ID: uuid.NewString(), Name: name},
		events: make(map[string]model.Event),
	}
	s.calendars[name] = mc
	s.order = append(s.order, name)
	return mc.cal
}

// Seed inserts events directly into a calendar, assigning fresh IDs. It is
// a test convenience; events go in exactly as given otherwise.
func (s *MemoryStore) Seed(name string, events ...model.Event) []string {
	cal := s.AddCalendar(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	mc := s.calendars[name]
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ev.ID = uuid.NewString()
		ev.Calendar = cal.Name
		mc.events[ev.ID] = ev
		ids = append(ids, ev.ID)
	}
	return ids
}

// Events returns a snapshot of every event in the named calendar, ordered
// by start time.
func (s *MemoryStore) Events(name string) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.calendars[name]
	if !ok {
		return nil
	}
	out := make([]model.Event, 0, len(mc.events))
	for _, ev := range mc.events {
		out = append(out, ev)
	}
	sortEvents(out)
	return out
}

func (s *MemoryStore) ListCalendars(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func (s *MemoryStore) FindCalendar(ctx context.Context, name string) (Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mc, ok := s.calendars[name]; ok {
		return mc.cal, nil
	}
	return Calendar{}, &NotFoundError{Name: name, Available: append([]string(nil), s.order...)}
}

func (s *MemoryStore) QueryEvents(ctx context.Context, cal Calendar, start, end time.Time) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.calendars[cal.Name]
	if !ok {
		return nil, &NotFoundError{Name: cal.Name, Available: append([]string(nil), s.order...)}
	}

	out := make([]model.Event, 0, len(mc.events))
	for _, ev := range mc.events {
		if ev.Start.Before(end) && ev.End.After(start) {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out, nil
}

func (s *MemoryStore) CreateEvent(ctx context.Context, cal Calendar, fields EventFields) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.calendars[cal.Name]
	if !ok {
		return Ref{}, &NotFoundError{Name: cal.Name, Available: append([]string(nil), s.order...)}
	}

	id := uuid.NewString()
	mc.events[id] = eventFromFields(id, cal.Name, fields)
	return Ref{Calendar: cal, EventID: id}, nil
}

func (s *MemoryStore) UpdateEvent(ctx context.Context, ref Ref, fields EventFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.calendars[ref.Calendar.Name]
	if !ok {
		return &NotFoundError{Name: ref.Calendar.Name, Available: append([]string(nil), s.order...)}
	}
	if _, ok := mc.events[ref.EventID]; !ok {
		return ErrEventNotFound
	}
	mc.events[ref.EventID] = eventFromFields(ref.EventID, ref.Calendar.Name, fields)
	return nil
}

func (s *MemoryStore) DeleteEvent(ctx context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.calendars[ref.Calendar.Name]
	if !ok {
		return &NotFoundError{Name: ref.Calendar.Name, Available: append([]string(nil), s.order...)}
	}
	if _, ok := mc.events[ref.EventID]; !ok {
		return ErrEventNotFound
	}
	delete(mc.events, ref.EventID)
	return nil
}

func eventFromFields(id, calName string, fields EventFields) model.Event {
	return model.Event{
		ID:           id,
		Calendar:     calName,
		Title:        fields.Title,
		Start:        fields.Start,
		End:          fields.End,
		AllDay:       fields.AllDay,
		Location:     fields.Location,
		Notes:        fields.Notes,
		Availability: fields.Availability,
	}
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].Title < events[j].Title
		}
		return events[i].Start.Before(events[j].Start)
	})
}
