// Package cli defines the cobra commands of the slotwatch binary.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rahul/slotwatch/internal/observability"
	"github.com/rahul/slotwatch/pkg/config"
)

var (
	configPath string
	logLevel   string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "slotwatch",
	Short: "Watch a consulate appointment queue for free slots",
	Long: `slotwatch opens the queue page of an existing request, solves its
captcha, walks the two-step form and reports when the site offers
anything other than "no free time".`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewSlog(os.Stderr, level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
