package calendar

import (
	"context"
	"errors"
	"time"

	"calsync/internal/model"
)

// MultiStore presents several backends as a single calendar namespace, so
// a read-only feed backend and a writable local backend can serve one sync
// run. Names are resolved in backend order; the first backend that knows a
// name owns it. Mutations are routed to the owning backend.
type MultiStore struct {
	backends []Store
}

// NewMultiStore combines the given backends. At least one is required.
func NewMultiStore(backends ...Store) *MultiStore {
	return &MultiStore{backends: backends}
}

func (m *MultiStore) ListCalendars(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, b := range m.backends {
		names, err := b.ListCalendars(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// FindCalendar tries each backend in order. When every backend misses, the
// returned NotFoundError lists the names from all of them.
func (m *MultiStore) FindCalendar(ctx context.Context, name string) (Calendar, error) {
	for _, b := range m.backends {
		cal, err := b.FindCalendar(ctx, name)
		if err == nil {
			return cal, nil
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return Calendar{}, err
		}
	}
	available, err := m.ListCalendars(ctx)
	if err != nil {
		return Calendar{}, err
	}
	return Calendar{}, &NotFoundError{Name: name, Available: available}
}

func (m *MultiStore) QueryEvents(ctx context.Context, cal Calendar, start, end time.Time) ([]model.Event, error) {
	b, err := m.owner(ctx, cal.Name)
	if err != nil {
		return nil, err
	}
	return b.QueryEvents(ctx, cal, start, end)
}

func (m *MultiStore) CreateEvent(ctx context.Context, cal Calendar, fields EventFields) (Ref, error) {
	b, err := m.owner(ctx, cal.Name)
	if err != nil {
		return Ref{}, err
	}
	return b.CreateEvent(ctx, cal, fields)
}

func (m *MultiStore) UpdateEvent(ctx context.Context, ref Ref, fields EventFields) error {
	b, err := m.owner(ctx, ref.Calendar.Name)
	if err != nil {
		return err
	}
	return b.UpdateEvent(ctx, ref, fields)
}

func (m *MultiStore) DeleteEvent(ctx context.Context, ref Ref) error {
	b, err := m.owner(ctx, ref.Calendar.Name)
	if err != nil {
		return err
	}
	return b.DeleteEvent(ctx, ref)
}

// ForceRefresh forwards the refresh hint to every backend that supports it.
// Individual backend failures are joined; a refresh failure never hides
// another backend's attempt.
func (m *MultiStore) ForceRefresh(ctx context.Context) error {
	var errs []error
	for _, b := range m.backends {
		if r, ok := b.(Refresher); ok {
			if err := r.ForceRefresh(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// owner resolves the backend that knows the named calendar.
func (m *MultiStore) owner(ctx context.Context, name string) (Store, error) {
	for _, b := range m.backends {
		_, err := b.FindCalendar(ctx, name)
		if err == nil {
			return b, nil
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			return nil, err
		}
	}
	available, err := m.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}
	return nil, &NotFoundError{Name: name, Available: available}
}
