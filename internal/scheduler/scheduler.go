// Package scheduler drives one pipeline run at start and then one per day
// at a configured wall-clock time, never two at once.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Lllllllleong/dailyuploadflow/internal/pipeline"
	"golang.org/x/sync/semaphore"
)

// DefaultPollInterval is how often the wall clock is checked.
const DefaultPollInterval = 60 * time.Second

// Runner performs one pipeline run.
type Runner interface {
	Run(ctx context.Context) pipeline.Outcome
}

// Config configures a Scheduler.
type Config struct {
	At           TimeOfDay
	Location     *time.Location
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Scheduler owns the run guard: at most one run is in flight, and a
// trigger that finds a run in progress is skipped, not queued.
type Scheduler struct {
	runner Runner
	at     TimeOfDay
	loc    *time.Location
	poll   time.Duration
	log    *slog.Logger

	guard    *semaphore.Weighted
	inflight sync.WaitGroup

	now    func() time.Time
	ticker func(d time.Duration) (<-chan time.Time, func())
}

// New returns a Scheduler for runner.
func New(runner Runner, cfg Config) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		runner: runner,
		at:     cfg.At,
		loc:    cfg.Location,
		poll:   cfg.PollInterval,
		log:    cfg.Logger.With("schedule", cfg.At.String(), "timeZone", cfg.Location.String()),
		guard:  semaphore.NewWeighted(1),
		now:    time.Now,
		ticker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}, nil
}

// NextOccurrence returns the next scheduled run time after now.
func (s *Scheduler) NextOccurrence(now time.Time) time.Time {
	return s.at.Next(now, s.loc)
}

// Start runs once immediately, then at every daily occurrence until ctx is
// cancelled. Cancellation stops new runs; a run in flight is allowed to
// finish before Start returns ctx.Err().
func (s *Scheduler) Start(ctx context.Context, onResult func(pipeline.Outcome)) error {
	if onResult == nil {
		onResult = func(pipeline.Outcome) {}
	}
	defer s.inflight.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Info("Scheduler started, running first pass immediately.")
	s.fire(ctx, onResult)

	next := s.NextOccurrence(s.now())
	s.log.Info("Next scheduled run.", "at", next.Format(time.RFC3339))

	ticks, stop := s.ticker(s.poll)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopping.", "reason", ctx.Err())
			return ctx.Err()
		case <-ticks:
			now := s.now()
			if now.Before(next) {
				continue
			}
			// select picks randomly when a tick and cancellation are both ready.
			if err := ctx.Err(); err != nil {
				s.log.Info("Scheduler stopping.", "reason", err)
				return err
			}
			s.fire(ctx, onResult)
			// Computed from the current time, so any boundaries missed
			// while the process was asleep collapse into this one run.
			next = s.NextOccurrence(now)
			s.log.Info("Next scheduled run.", "at", next.Format(time.RFC3339))
		}
	}
}

// fire starts a run in the background unless one is already in flight.
func (s *Scheduler) fire(ctx context.Context, onResult func(pipeline.Outcome)) bool {
	if !s.guard.TryAcquire(1) {
		s.log.Warn("Skipping scheduled run, previous run still in progress.")
		return false
	}
	s.inflight.Add(1)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.inflight.Done()
		defer s.guard.Release(1)
		onResult(s.runner.Run(runCtx))
	}()
	return true
}

// RunOnce runs the pipeline synchronously under the same guard as Start.
// It reports false without running when another run is in flight.
func (s *Scheduler) RunOnce(ctx context.Context) (pipeline.Outcome, bool) {
	if !s.guard.TryAcquire(1) {
		s.log.Warn("Skipping run, previous run still in progress.")
		return pipeline.Outcome{}, false
	}
	defer s.guard.Release(1)
	return s.runner.Run(ctx), true
}
