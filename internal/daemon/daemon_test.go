package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calsync/internal/calendar"
	"calsync/internal/config"
	"calsync/internal/engine"
	"calsync/internal/model"
)

func newTestScheduler(store calendar.Store) *Scheduler {
	runner := &engine.Runner{
		Store:    store,
		Account:  engine.Account("me@example.com"),
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC) },
	}
	return New(runner, time.UTC, time.Minute)
}

func TestAddJobRejectsBadCron(t *testing.T) {
	s := newTestScheduler(calendar.NewMemoryStore("Work", "Mirror"))

	err := s.AddJob(config.JobConfig{
		Name:        "broken",
		Cron:        "not a cron line",
		Source:      "Work",
		Destination: "Mirror",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestRunAllOnceSyncs(t *testing.T) {
	store := calendar.NewMemoryStore("Work", "Mirror")
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store.Seed("Work",
		model.Event{Title: "Standup", Start: base, End: base.Add(30 * time.Minute)},
	)

	s := newTestScheduler(store)
	require.NoError(t, s.AddJob(config.JobConfig{
		Name:        "mirror-work",
		Cron:        "@every 15m",
		Source:      "Work",
		Destination: "Mirror",
		Days:        7,
	}))

	s.RunAllOnce(context.Background())
	events := store.Events("Mirror")
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
}

func TestRunAllOnceStopsOnCancelledContext(t *testing.T) {
	store := calendar.NewMemoryStore("Work", "Mirror")
	s := newTestScheduler(store)
	require.NoError(t, s.AddJob(config.JobConfig{
		Name:        "mirror-work",
		Cron:        "@hourly",
		Source:      "Work",
		Destination: "Mirror",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.RunAllOnce(ctx)
	assert.Empty(t, store.Events("Mirror"))
}

func TestRunJobSkipsWhenDestinationBusy(t *testing.T) {
	store := calendar.NewMemoryStore("Work", "Mirror")
	base := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	store.Seed("Work",
		model.Event{Title: "Standup", Start: base, End: base.Add(30 * time.Minute)},
	)
	s := newTestScheduler(store)

	sj := scheduledJob{
		name:    "mirror-work",
		opts:    engine.Options{Source: "Work", Destination: "Mirror", Days: 7},
		timeout: time.Minute,
	}

	// Hold the destination lock as if a previous run were in flight.
	lock := s.lockFor("Mirror")
	lock.Lock()
	s.runJob(sj)
	assert.Empty(t, store.Events("Mirror"), "tick is skipped while the destination is locked")
	lock.Unlock()

	s.runJob(sj)
	assert.Len(t, store.Events("Mirror"), 1)
}

// blockingStore stalls queries until the caller's context is cancelled.
type blockingStore struct {
	*calendar.MemoryStore
}

func (b *blockingStore) QueryEvents(ctx context.Context, cal calendar.Calendar, start, end time.Time) ([]model.Event, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCancellationReachesRunningJob(t *testing.T) {
	store := &blockingStore{MemoryStore: calendar.NewMemoryStore("Work", "Mirror")}
	s := newTestScheduler(store)
	require.NoError(t, s.AddJob(config.JobConfig{
		Name:        "mirror-work",
		Cron:        "@hourly",
		Source:      "Work",
		Destination: "Mirror",
		// Long enough that only cancellation can explain a prompt return.
		TimeoutSeconds: 300,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		s.RunAllOnce(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not observe cancellation")
	}
}

func TestLockForIsPerDestination(t *testing.T) {
	s := newTestScheduler(calendar.NewMemoryStore())
	a := s.lockFor("Mirror")
	b := s.lockFor("Mirror")
	c := s.lockFor("Archive")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
