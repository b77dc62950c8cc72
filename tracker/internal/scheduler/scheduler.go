// Package scheduler fires the daily scrape run at a fixed wall-clock time.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Config configures the daily trigger.
type Config struct {
	// Hour and Minute are the UTC wall-clock time of the daily run.
	// Default: 23:59.
	Hour   int
	Minute int
}

func (c *Config) defaults() {
	if c.Hour == 0 && c.Minute == 0 {
		c.Hour, c.Minute = 23, 59
	}
}

// RunFunc is the daily job. The day argument is the UTC date the run is
// attributed to, formatted YYYY-MM-DD.
type RunFunc func(ctx context.Context, day string) error

// Scheduler triggers one run per UTC day.
type Scheduler struct {
	run    RunFunc
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Scheduler.
func New(run RunFunc, cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		run:    run,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Next returns the first trigger instant strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	t = t.UTC()
	at := time.Date(t.Year(), t.Month(), t.Day(), s.config.Hour, s.config.Minute, 0, 0, time.UTC)
	if !at.After(t) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// Run blocks until ctx is cancelled, firing the job once per day at the
// configured time. A run that overlaps the next trigger instant delays the
// next run rather than stacking a second one.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		at := s.Next(s.now())
		timer := time.NewTimer(at.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		day := at.Format("2006-01-02")
		s.logger.Info("scheduler: daily run", "day", day)
		if err := s.run(ctx, day); err != nil {
			s.logger.Error("scheduler: daily run failed", "day", day, "error", err)
		}
	}
}
