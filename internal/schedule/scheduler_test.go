package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	var calls, ticks atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(10*time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return errors.New("check failed")
	}, nil)
	s.OnTick = func() { ticks.Add(1) }

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 checks despite failures, got %d", got)
	}
	if ticks.Load() != calls.Load() {
		t.Fatalf("OnTick should run before every check")
	}
}

func TestSchedulerFirstCheckIsImmediate(t *testing.T) {
	started := make(chan struct{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(time.Hour, func(context.Context) error {
		started <- struct{}{}
		return nil
	}, nil)
	go s.Start(ctx)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first check should not wait for the interval")
	}
}

func TestSchedulerSkipsTickMissedDuringSlowCheck(t *testing.T) {
	const interval = 100 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		calls       int
		firstEnded  time.Time
		secondStart time.Time
	)
	s := NewScheduler(interval, func(context.Context) error {
		calls++
		switch calls {
		case 1:
			time.Sleep(250 * time.Millisecond)
			firstEnded = time.Now()
		case 2:
			secondStart = time.Now()
			cancel()
		}
		return nil
	}, nil)

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	if calls != 2 {
		t.Fatalf("expected 2 checks, got %d", calls)
	}
	if gap := secondStart.Sub(firstEnded); gap < interval/5 {
		t.Fatalf("second check started %v after a slow check, want it to wait for the next tick", gap)
	}
}

func TestNewSchedulerDefaults(t *testing.T) {
	s := NewScheduler(0, func(context.Context) error { return nil }, nil)
	if s.Interval != DefaultInterval || s.Logger == nil {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}
