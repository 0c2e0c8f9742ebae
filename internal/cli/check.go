package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rahul/slotwatch/internal/observability"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single queue check",
	Long: `Run one check of the queue page, retrying captcha misreads up to
retry.count times, and notify every configured channel if slots are offered.
Suitable for cron.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := checker.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Check finished", "run_id", run.ID, "status", run.Status, "attempts", run.Attempts, "notified", run.Notified)
	return nil
}
