package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahul/slotwatch/internal/observability"
	"github.com/rahul/slotwatch/internal/result"
)

// Delivery describes what Dispatcher.Deliver did with a message.
type Delivery struct {
	Verdict result.Verdict
	Sent    []string
	Failed  []string
}

// Notified reports whether at least one channel accepted the notification.
func (d Delivery) Notified() bool {
	return len(d.Sent) > 0
}

// Dispatcher turns a result message into notifications.
type Dispatcher struct {
	Classifier *result.Classifier
	Channels   Set
	Events     *observability.Logger
}

func NewDispatcher(c *result.Classifier, channels Set, events *observability.Logger) *Dispatcher {
	return &Dispatcher{
		Classifier: c,
		Channels:   channels,
		Events:     events,
	}
}

// Deliver classifies message. A no-slots message is only logged. Anything
// else is sent once to every channel; failures are joined and not retried.
func (d *Dispatcher) Deliver(ctx context.Context, runID, message string) (Delivery, error) {
	c := d.Classifier.Classify(message)
	d.Events.LogResult(runID, string(c.Verdict), message)

	out := Delivery{Verdict: c.Verdict}
	if c.Verdict == result.NoSlots {
		d.Events.Slog().Info("no free slots", "run_id", runID)
		return out, nil
	}
	if len(d.Channels) == 0 {
		d.Events.Slog().Warn("free slots found but no notification channel is configured", "run_id", runID, "message", message)
		return out, nil
	}

	n := Notification{Subject: Subject, Body: message}
	var errs []error
	for _, ch := range d.Channels {
		err := ch.Notify(ctx, n)
		d.Events.LogNotify(runID, ch.Name(), err)
		if err != nil {
			out.Failed = append(out.Failed, ch.Name())
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		out.Sent = append(out.Sent, ch.Name())
	}
	return out, errors.Join(errs...)
}
