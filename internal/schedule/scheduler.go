// Package schedule repeats checks on a fixed interval for the watch command.
package schedule

import (
	"context"
	"log/slog"
	"time"
)

const DefaultInterval = 30 * time.Minute

// CheckFunc runs one complete check.
type CheckFunc func(ctx context.Context) error

type Scheduler struct {
	Interval time.Duration
	Check    CheckFunc
	Logger   *slog.Logger

	// OnTick is called before every check, e.g. to record a heartbeat.
	OnTick func()
}

func NewScheduler(interval time.Duration, check CheckFunc, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{Interval: interval, Check: check, Logger: logger}
}

// Start runs a check immediately and then once per Interval until ctx is
// cancelled. Checks never overlap: a tick that fires during a slow check is
// drained afterwards, so the next check waits for the following tick. A
// failing check is logged and the loop continues.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Logger.Info("Check scheduler started", "interval", s.Interval.String())

	s.runOnce(ctx)
	drain(ticker)
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("Check scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
			drain(ticker)
		}
	}
}

// drain discards a tick that became due while a check was running.
func drain(t *time.Ticker) {
	select {
	case <-t.C:
	default:
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if s.OnTick != nil {
		s.OnTick()
	}
	if err := s.Check(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.Logger.Error("Scheduled check failed", "error", err)
	}
}
