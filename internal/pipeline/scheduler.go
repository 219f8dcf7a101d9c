package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"spendlens/internal"
	"spendlens/internal/config"
)

// Scheduler triggers pipeline runs on the configured cadence: daily or
// weekly at schedule_time, or at the top of every hour.
type Scheduler struct {
	runner *Runner
	cfg    config.PipelineSettingsConfig
	logger *internal.Logger
	now    func() time.Time

	mu   sync.Mutex
	next time.Time
}

// NewScheduler creates a scheduler driving the given runner
func NewScheduler(runner *Runner, cfg config.PipelineSettingsConfig) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		logger: internal.NewDefaultLogger().Component("Scheduler"),
		now:    time.Now,
	}
}

// NextRun returns the next planned trigger time, zero before Start
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Start blocks, triggering runs until the context is canceled. A run
// still in flight when the next tick arrives is skipped, not queued.
func (s *Scheduler) Start(ctx context.Context) error {
	next := s.nextAfter(s.now())
	s.setNext(next)
	s.logger.Info("pipeline scheduled %s, first run at %s",
		s.cfg.ScheduleFrequency, next.Format(time.RFC3339))

	timer := time.NewTimer(next.Sub(s.now()))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			s.trigger(ctx)
			next = s.nextAfter(s.now())
			s.setNext(next)
			timer.Reset(next.Sub(s.now()))
		}
	}
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	s.next = t
	s.mu.Unlock()
}

func (s *Scheduler) trigger(ctx context.Context) {
	res, err := s.runner.Run(ctx, Options{})
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("scheduled run skipped, previous run still in progress")
	case err != nil:
		s.logger.Error("scheduled run failed: %v", err)
	case !res.Success:
		s.logger.Warn("scheduled run %s finished with errors", res.RunID)
	default:
		s.logger.Info("scheduled run %s completed, %d record(s)", res.RunID, res.RecordsProcessed)
	}
}

// nextAfter computes the first trigger strictly after now
func (s *Scheduler) nextAfter(now time.Time) time.Time {
	switch s.cfg.ScheduleFrequency {
	case "hourly":
		return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).
			Add(time.Hour)
	case "weekly":
		hour, min := s.clock()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		for next.Weekday() != time.Monday || !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	default: // daily
		hour, min := s.clock()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, min, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// clock parses schedule_time, falling back to the default 06:00 rather
// than refusing to schedule
func (s *Scheduler) clock() (int, int) {
	t, err := time.Parse("15:04", s.cfg.ScheduleTime)
	if err != nil {
		s.logger.Warn("invalid schedule_time %q, using 06:00", s.cfg.ScheduleTime)
		return 6, 0
	}
	return t.Hour(), t.Minute()
}
