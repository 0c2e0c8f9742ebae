package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rahul/slotwatch/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent checks",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultRecentLimit, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.Path == "" {
		return fmt.Errorf("run history is disabled; set store.path or SLOTWATCH_DB")
	}
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	s, err := store.NewRunStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.Recent(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderRuns(runs))
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	statusStyles = map[store.Status]lipgloss.Style{
		store.StatusNoSlots:        lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		store.StatusSlotsAvailable: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50FA7B")),
		store.StatusExhausted:      lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C")),
		store.StatusFailed:         lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
)

// renderRuns formats runs as one line each, newest first.
func renderRuns(runs []store.Run) string {
	if len(runs) == 0 {
		return mutedStyle.Render("No checks recorded yet.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-19s  %-15s  %-8s  %-8s  %s", "STARTED", "STATUS", "ATTEMPTS", "NOTIFIED", "DETAIL")))
	b.WriteString("\n")
	for _, r := range runs {
		style, ok := statusStyles[r.Status]
		if !ok {
			style = lipgloss.NewStyle()
		}
		notified := "no"
		if r.Notified {
			notified = "yes"
		}
		detail := r.Message
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(&b, "%-19s  %s  %-8d  %-8s  %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			style.Render(fmt.Sprintf("%-15s", r.Status)),
			r.Attempts,
			notified,
			truncate(detail, 60),
		)
	}
	return b.String()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-3]) + "..."
}
