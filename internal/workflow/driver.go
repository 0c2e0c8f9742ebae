package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rahul/slotwatch/internal/observability"
)

const DefaultRetryDelay = 5 * time.Second

// Attempter runs one attempt of the form chain.
type Attempter interface {
	Attempt(ctx context.Context, runID string, n int) Outcome
}

// Report summarises a finished Driver.Run.
type Report struct {
	RunID     string
	Attempts  int
	Message   string
	Exhausted bool
}

// Driver owns the attempt budget of a check.
type Driver struct {
	Attempter  Attempter
	Session    Session
	RetryCount int
	Delay      time.Duration
	Events     *observability.Logger

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run attempts the chain up to RetryCount times. A rejected attempt is
// followed by Delay and a fresh session; a failed attempt ends the run with
// its error. When every attempt was rejected the report is marked
// Exhausted and ErrAttemptsExhausted is returned.
func (d *Driver) Run(ctx context.Context, runID string) (Report, error) {
	rep := Report{RunID: runID}
	if d.RetryCount < 1 {
		return rep, fmt.Errorf("retry count must be at least 1, got %d", d.RetryCount)
	}

	var last error
	for n := 1; n <= d.RetryCount; n++ {
		rep.Attempts = n
		out := d.Attempter.Attempt(ctx, runID, n)
		d.Events.LogAttempt(runID, n, d.RetryCount, out.Kind.String(), out.Err)

		switch out.Kind {
		case Success:
			rep.Message = out.Message
			return rep, nil
		case Failed:
			return rep, out.Err
		}

		last = out.Err
		if n == d.RetryCount {
			break
		}
		if err := d.sleep(ctx, d.Delay); err != nil {
			return rep, err
		}
		if err := d.Session.Reset(); err != nil {
			return rep, fmt.Errorf("reset session: %w", err)
		}
	}

	rep.Exhausted = true
	return rep, errors.Join(ErrAttemptsExhausted, last)
}

func (d *Driver) sleep(ctx context.Context, delay time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, delay)
	}
	return Sleep(ctx, delay)
}

// Sleep waits for delay or until ctx is done.
func Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Attempter = (*Orchestrator)(nil)
