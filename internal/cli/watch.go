package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rahul/slotwatch/internal/observability"
	"github.com/rahul/slotwatch/internal/schedule"
	"github.com/rahul/slotwatch/internal/statusapi"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check the queue repeatedly",
	Long: `Run a check immediately and then every schedule.interval until
interrupted. With status.addr set, health, the current state and recent runs
are served over HTTP.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	events := observability.NewLogger(logger)

	checker, err := setup(cfg, events)
	if err != nil {
		return err
	}
	defer checker.Close()

	observability.PrintBanner(os.Stdout, cfg.Queue.BaseURL, cfg.Schedule.Interval.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Status.Addr != "" {
		var runs statusapi.RunLister
		if checker.Store != nil {
			runs = checker.Store
		}
		go func() {
			if err := statusapi.Serve(ctx, cfg.Status.Addr, statusapi.NewRouter(checker.Status, runs), logger); err != nil {
				logger.Error("Status API failed", "error", err)
			}
		}()
	}

	sched := schedule.NewScheduler(cfg.Schedule.Interval, func(ctx context.Context) error {
		_, err := checker.Run(ctx)
		return err
	}, logger)
	sched.OnTick = func() {
		checker.Status.Heartbeat()
		events.LogHeartbeat()
	}
	sched.Start(ctx)

	logger.Info("Shutting down")
	return nil
}
