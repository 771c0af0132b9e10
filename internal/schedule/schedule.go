// Package schedule fires the crawl sweep and dispatch run at fixed
// wall-clock trigger points in a fixed civil timezone, without any external
// cron dependency.
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/logimarket/leadflow/internal/lead"
)

const defaultPollInterval = time.Minute

// Trigger is a daily wall-clock fire point.
type Trigger struct {
	Hour   int
	Minute int
}

// Task is a scheduled unit of work. Errors are logged by the scheduler and
// never crash the polling loop.
type Task func(ctx context.Context) error

type job struct {
	name      string
	trigger   Trigger
	run       Task
	lastFired time.Time
}

// Scheduler polls the clock and fires registered jobs at most once per
// trigger per civil day. There is no catch-up: a process that is not
// running at the trigger minute misses that day's run.
type Scheduler struct {
	clock  lead.Clock
	tz     *time.Location
	poll   time.Duration
	logger *zap.Logger

	mu   sync.Mutex
	jobs []*job
	wg   sync.WaitGroup
}

// New creates a Scheduler evaluating triggers in tz.
func New(clock lead.Clock, tz *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		tz:     tz,
		poll:   defaultPollInterval,
		logger: logger,
	}
}

// Register adds a named job fired daily at trigger.
func (s *Scheduler) Register(name string, trigger Trigger, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{name: name, trigger: trigger, run: task})
}

// ShouldFire reports whether a job with the given trigger and last-fired
// marker is due at now. Pure, so trigger logic is testable without a real
// clock. now must already be in the scheduler's civil timezone.
func ShouldFire(now time.Time, trigger Trigger, lastFired time.Time) bool {
	if now.Hour() != trigger.Hour || now.Minute() != trigger.Minute {
		return false
	}
	return !sameCivilDay(now, lastFired)
}

// Run polls once per minute until the context finishes, then waits for any
// in-flight jobs. Jobs run concurrently with each other when their triggers
// coincide or a long run overlaps the next trigger; the crawl and dispatch
// tasks touch disjoint lead subsets, so overlap is safe.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now().In(s.tz)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if !ShouldFire(now, j.trigger, j.lastFired) {
			continue
		}
		j.lastFired = now
		s.launch(ctx, j, now)
	}
}

func (s *Scheduler) launch(ctx context.Context, j *job, now time.Time) {
	s.logger.Info("scheduled job firing",
		zap.String("job", j.name),
		zap.Time("at", now),
	)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled job panicked",
					zap.String("job", j.name),
					zap.Any("panic", r),
				)
			}
		}()
		if err := j.run(ctx); err != nil {
			// A failed run never blocks future scheduled runs.
			s.logger.Error("scheduled job failed",
				zap.String("job", j.name),
				zap.Error(err),
			)
		}
	}()
}

func sameCivilDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
