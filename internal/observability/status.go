package observability

import (
	"sync"
	"time"
)

// Phase is what the watch process is doing right now.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseChecking Phase = "CHECKING"
)

// Snapshot is a copy of Status taken under its lock.
type Snapshot struct {
	Phase         Phase     `json:"phase"`
	RunID         string    `json:"run_id,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	State         string    `json:"state,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	LastRunAt     time.Time `json:"last_run_at,omitempty"`
	LastRunStatus string    `json:"last_run_status,omitempty"`
	Started       time.Time `json:"started"`
}

// Status tracks the current check for the status API. It is safe for
// concurrent use.
type Status struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStatus() *Status {
	now := time.Now()
	return &Status{snap: Snapshot{Phase: PhaseIdle, LastHeartbeat: now, Started: now}}
}

// BeginRun marks a check as running.
func (s *Status) BeginRun(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Phase = PhaseChecking
	s.snap.RunID = runID
	s.snap.Attempt = 0
	s.snap.State = ""
}

// SetState records the workflow state of the running attempt.
func (s *Status) SetState(attempt int, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Attempt = attempt
	s.snap.State = state
}

// EndRun returns to idle and remembers how the check ended.
func (s *Status) EndRun(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Phase = PhaseIdle
	s.snap.LastRunAt = time.Now()
	s.snap.LastRunStatus = status
}

// Heartbeat updates the last heartbeat time.
func (s *Status) Heartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastHeartbeat = time.Now()
}

func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
