package store

import "time"

// Status is how a check ended.
type Status string

const (
	StatusNoSlots        Status = "no_slots"
	StatusSlotsAvailable Status = "slots_available"
	StatusFailed         Status = "failed"
	StatusExhausted      Status = "exhausted"
)

// Run is one finished check.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempts   int       `json:"attempts"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Notified   bool      `json:"notified"`
}

// Duration is how long the check took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
