package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"golang.org/x/term"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeAttempt   EventType = "attempt"
	EventTypeCaptcha   EventType = "captcha"
	EventTypeState     EventType = "state"
	EventTypeResult    EventType = "result"
	EventTypeNotify    EventType = "notify"
	EventTypeHeartbeat EventType = "heartbeat"
)

// Event represents a structured log entry of a check.
type Event struct {
	Type      EventType
	RunID     string
	Attempt   int
	Data      map[string]any
	Timestamp time.Time
}

// Logger emits check events through slog.
type Logger struct {
	slog *slog.Logger
}

// NewLogger wraps l. A nil l uses slog.Default().
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.Default()
	}
	return &Logger{slog: l}
}

// Slog returns the underlying logger.
func (l *Logger) Slog() *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l.slog
}

// Log writes evt at info level, warn when its data carries an error and
// debug for state and heartbeat events.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	level := slog.LevelInfo
	attrs := []slog.Attr{slog.String("event", string(evt.Type))}
	if evt.RunID != "" {
		attrs = append(attrs, slog.String("run_id", evt.RunID))
	}
	if evt.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", evt.Attempt))
	}
	for _, k := range slices.Sorted(maps.Keys(evt.Data)) {
		v := evt.Data[k]
		if k == "error" && v != nil {
			level = slog.LevelWarn
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	if evt.Type == EventTypeHeartbeat || evt.Type == EventTypeState {
		level = slog.LevelDebug
	}
	ctx := context.Background()
	if !l.slog.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(evt.Timestamp, level, string(evt.Type), 0)
	r.AddAttrs(attrs...)
	_ = l.slog.Handler().Handle(ctx, r)
}

// Helper methods for common events

func (l *Logger) LogAttempt(runID string, attempt, of int, outcome string, err error) {
	data := map[string]any{"of": of, "outcome": outcome}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeAttempt, RunID: runID, Attempt: attempt, Data: data})
}

func (l *Logger) LogCaptcha(runID string, attempt int, imageURL, code string) {
	l.Log(Event{
		Type:    EventTypeCaptcha,
		RunID:   runID,
		Attempt: attempt,
		Data:    map[string]any{"image": imageURL, "code": code},
	})
}

func (l *Logger) LogState(runID string, attempt int, state string) {
	l.Log(Event{
		Type:    EventTypeState,
		RunID:   runID,
		Attempt: attempt,
		Data:    map[string]any{"state": state},
	})
}

func (l *Logger) LogResult(runID, verdict, message string) {
	l.Log(Event{
		Type:  EventTypeResult,
		RunID: runID,
		Data:  map[string]any{"verdict": verdict, "message": message},
	})
}

func (l *Logger) LogNotify(runID, channel string, err error) {
	data := map[string]any{"channel": channel}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{Type: EventTypeNotify, RunID: runID, Data: data})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]any{"status": "alive"},
	})
}

// ParseLevel accepts debug, info, warn/warning and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewSlog builds a text handler when w is a terminal and a JSON handler
// otherwise.
func NewSlog(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if IsTerminal(w) {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
