package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/slotwatch/internal/captcha"
	"github.com/rahul/slotwatch/internal/notify"
	"github.com/rahul/slotwatch/internal/observability"
	"github.com/rahul/slotwatch/internal/result"
	"github.com/rahul/slotwatch/internal/session"
	"github.com/rahul/slotwatch/internal/store"
	"github.com/rahul/slotwatch/internal/workflow"
	"github.com/rahul/slotwatch/pkg/config"
)

// Checker runs one complete check: the retry loop, notification and the
// history record.
type Checker struct {
	Driver          *workflow.Driver
	Dispatcher      *notify.Dispatcher
	Store           *store.RunStore
	Status          *observability.Status
	Events          *observability.Logger
	FailOnExhausted bool
}

// newChecker wires a Checker from cfg. solver and channels are built by the
// caller so tests can substitute them.
func newChecker(cfg *config.Config, events *observability.Logger, solver captcha.Solver, channels notify.Set) (*Checker, error) {
	ciphers, err := session.CipherSuites(cfg.HTTP.Cipher)
	if err != nil {
		return nil, err
	}
	sess, err := session.New(
		session.WithTimeout(cfg.HTTP.Timeout),
		session.WithUserAgent(cfg.HTTP.UserAgent),
		session.WithCipherSuites(ciphers...),
		session.WithLogger(events.Slog()),
	)
	if err != nil {
		return nil, err
	}

	classifier, err := result.NewClassifier(cfg.Notify.NoSlotPatterns...)
	if err != nil {
		return nil, err
	}

	status := observability.NewStatus()
	orch := &workflow.Orchestrator{
		Session:        sess,
		Solver:         solver,
		QueueURL:       cfg.QueueURL(),
		RequestNumber:  cfg.Queue.RequestNumber,
		ProtectionCode: cfg.Queue.ProtectionCode,
		Observer:       status,
		Events:         events,
	}

	c := &Checker{
		Driver: &workflow.Driver{
			Attempter:  orch,
			Session:    sess,
			RetryCount: cfg.Retry.Count,
			Delay:      cfg.Retry.Delay,
			Events:     events,
		},
		Dispatcher:      notify.NewDispatcher(classifier, channels, events),
		Status:          status,
		Events:          events,
		FailOnExhausted: cfg.Retry.FailOnExhausted,
	}

	if cfg.Store.Path != "" {
		c.Store, err = store.NewRunStore(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Run performs one check. Exhausting every attempt on captcha failures is
// only an error when FailOnExhausted is set.
func (c *Checker) Run(ctx context.Context) (store.Run, error) {
	run := store.Run{ID: uuid.NewString(), StartedAt: time.Now()}
	c.Status.BeginRun(run.ID)
	log := c.Events.Slog().With("run_id", run.ID)
	log.Info("Starting check")

	rep, err := c.Driver.Run(ctx, run.ID)
	run.Attempts = rep.Attempts

	switch {
	case err == nil:
		del, derr := c.Dispatcher.Deliver(ctx, run.ID, rep.Message)
		run.Message = rep.Message
		run.Status = store.Status(del.Verdict)
		run.Notified = del.Notified()
		if derr != nil {
			run.Error = derr.Error()
			err = fmt.Errorf("deliver notification: %w", derr)
		}
	case rep.Exhausted:
		run.Status = store.StatusExhausted
		run.Error = err.Error()
		log.Warn("Every attempt failed on the captcha; giving up until the next check", "attempts", rep.Attempts)
		if !c.FailOnExhausted {
			err = nil
		}
	default:
		run.Status = store.StatusFailed
		run.Error = err.Error()
		log.Error("Check failed", "attempts", rep.Attempts, "error", err)
	}

	run.FinishedAt = time.Now()
	c.Status.EndRun(string(run.Status))
	c.record(run)
	return run, err
}

func (c *Checker) record(run store.Run) {
	if c.Store == nil {
		return
	}
	// The check's own context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Store.Record(ctx, run); err != nil {
		c.Events.Slog().Error("Failed to record run", "run_id", run.ID, "error", err)
	}
}

func (c *Checker) Close() error {
	if c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

func buildSolver(cfg *config.Config) (captcha.Solver, error) {
	switch cfg.Solver.Provider {
	case "openai":
		prompt, err := captcha.LoadPrompt(cfg.Solver.PromptFile)
		if err != nil {
			return nil, err
		}
		opts := []openai.Option{
			openai.WithToken(cfg.Solver.OpenAI.APIKey),
			openai.WithModel(cfg.Solver.OpenAI.Model),
		}
		if cfg.Solver.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Solver.OpenAI.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return captcha.NewVisionSolver(llm, prompt), nil
	case "2captcha":
		return captcha.NewTwoCaptchaSolver(cfg.Solver.TwoCaptcha.APIKey, cfg.Solver.TwoCaptcha.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown solver provider %q", cfg.Solver.Provider)
}

func buildNotifiers(cfg *config.Config) (notify.Set, error) {
	var set notify.Set
	var errs []error

	if t := cfg.Notify.Telegram; t.Enabled {
		tg, err := notify.NewTelegram(t.Token, t.ChatID)
		if err != nil {
			errs = append(errs, err)
		} else {
			set = append(set, tg)
		}
	}
	if d := cfg.Notify.Discord; d.Enabled {
		dc, err := notify.NewDiscord(d.Token, d.ChannelID)
		if err != nil {
			errs = append(errs, err)
		} else {
			set = append(set, dc)
		}
	}
	if e := cfg.Notify.Email; e.Enabled {
		em, err := notify.NewEmail(e.SMTPAddr, e.From, e.To, e.Username, e.Password)
		if err != nil {
			errs = append(errs, err)
		} else {
			set = append(set, em)
		}
	}
	return set, errors.Join(errs...)
}

// setup validates cfg and builds a Checker from it.
func setup(cfg *config.Config, events *observability.Logger) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	solver, err := buildSolver(cfg)
	if err != nil {
		return nil, err
	}
	channels, err := buildNotifiers(cfg)
	if err != nil {
		return nil, err
	}
	events.Slog().Info("Notification channels", "channels", channels.Names())
	return newChecker(cfg, events, solver, channels)
}
