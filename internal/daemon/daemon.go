// Package daemon runs configured sync jobs on cron schedules. It is the
// scheduling layer around the engine: per-job timeouts, duration logging,
// and the per-destination mutual exclusion the engine itself deliberately
// does not provide (two concurrent runs against one destination calendar
// could both create the same missing identity).
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"

	"calsync/internal/config"
	"calsync/internal/engine"
)

// Scheduler owns the cron instance and the per-destination locks.
type Scheduler struct {
	runner *engine.Runner
	cron   *cron.Cron

	defaultTimeout time.Duration

	mu        stdsync.Mutex
	destLocks map[string]*stdsync.Mutex
	baseCtx   context.Context

	jobs []scheduledJob
}

type scheduledJob struct {
	name    string
	opts    engine.Options
	timeout time.Duration
}

// New creates a scheduler. loc anchors cron schedules (nil = time.Local);
// defaultTimeout bounds jobs that do not set their own.
func New(runner *engine.Runner, loc *time.Location, defaultTimeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Minute
	}
	return &Scheduler{
		runner:         runner,
		cron:           cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{})),
		defaultTimeout: defaultTimeout,
		destLocks:      make(map[string]*stdsync.Mutex),
	}
}

// AddJob registers one configured job with the cron scheduler. The cron
// expression is validated here; a bad expression is a setup error.
func (s *Scheduler) AddJob(job config.JobConfig) error {
	opts := engine.Options{
		Source:       job.Source,
		Destination:  job.Destination,
		Days:         job.Days,
		ForceRefresh: job.ForceRefresh,
		Filter: engine.FilterOptions{
			ExcludeDeclined:      job.ExcludeDeclined,
			ExcludeAllDay:        job.ExcludeAllDay,
			ExcludeTitlePatterns: job.ExcludeTitles,
		},
	}
	timeout := s.defaultTimeout
	if job.TimeoutSeconds > 0 {
		timeout = time.Duration(job.TimeoutSeconds) * time.Second
	}

	sj := scheduledJob{name: job.Name, opts: opts, timeout: timeout}
	if _, err := s.cron.AddFunc(job.Cron, func() { s.runJob(sj) }); err != nil {
		return fmt.Errorf("job %q: invalid cron expression %q: %w", job.Name, job.Cron, err)
	}
	s.jobs = append(s.jobs, sj)

	slog.Info("job scheduled",
		"job", job.Name,
		"cron", job.Cron,
		"source", job.Source,
		"destination", job.Destination,
		"timeout", timeout)
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// any in-flight job to finish. Cancelling ctx also cancels in-flight jobs,
// so shutdown does not wait out a job's full timeout.
func (s *Scheduler) Run(ctx context.Context) {
	s.setBaseContext(ctx)
	s.cron.Start()
	slog.Info("scheduler started", "jobs", len(s.jobs))
	<-ctx.Done()
	slog.Info("scheduler stopping")
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunAllOnce runs every registered job once, sequentially, outside the
// cron schedule. Used by the --once flag for supervised single-shot runs.
func (s *Scheduler) RunAllOnce(ctx context.Context) {
	s.setBaseContext(ctx)
	for _, sj := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(sj)
	}
}

// runJob executes one job under its destination lock and timeout. If the
// previous run of any job targeting the same destination is still going,
// this tick is skipped rather than queued: a skipped sync is recovered by
// the next tick, a doubled one duplicates events.
func (s *Scheduler) runJob(sj scheduledJob) {
	lock := s.lockFor(sj.opts.Destination)
	if !lock.TryLock() {
		slog.Warn("destination busy with a previous run, skipping tick",
			"job", sj.name,
			"destination", sj.opts.Destination)
		return
	}
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(s.baseContext(), sj.timeout)
	defer cancel()

	started := time.Now()
	slog.Info("job starting", "job", sj.name)

	sum, err := s.runner.Run(ctx, sj.opts)
	duration := time.Since(started).Round(time.Millisecond)
	if err != nil {
		slog.Error("job failed", "job", sj.name, "duration", duration, "err", err)
		return
	}

	slog.Info("job completed",
		"job", sj.name,
		"duration", duration,
		"found", sum.Found,
		"kept", sum.Kept,
		"created", sum.Created,
		"updated", sum.Updated,
		"deleted", sum.Deleted,
		"unchanged", sum.Unchanged,
		"failed", sum.Failed)
}

func (s *Scheduler) setBaseContext(ctx context.Context) {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
}

// baseContext is the context jobs derive their timeout from. Background
// until Run or RunAllOnce installs the caller's.
func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.baseCtx == nil {
		return context.Background()
	}
	return s.baseCtx
}

func (s *Scheduler) lockFor(destination string) *stdsync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.destLocks[destination]; ok {
		return l
	}
	l := &stdsync.Mutex{}
	s.destLocks[destination] = l
	return l
}

// cronLogger adapts slog to the cron.Logger interface. Cron's routine
// chatter goes to debug; its errors stay errors.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug(msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error(msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
