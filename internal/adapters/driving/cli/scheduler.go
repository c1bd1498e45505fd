package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/logger"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run scheduled background tasks",
	Long: `Runs the cron-driven background tasks:

  completed-epic-sync  import every completed epic from the tracker
  effort-reindex       rebuild the retrieval index for effort records

Schedules are read from the [scheduler] section of config.toml.`,
}

var schedulerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the scheduler in the foreground until interrupted",
	RunE:  runSchedulerStart,
}

var schedulerRunCmd = &cobra.Command{
	Use:       "run <task-id>",
	Short:     "Run one task now",
	Args:      cobra.ExactArgs(1),
	ValidArgs: domain.BuiltinTaskIDs(),
	RunE:      runSchedulerRun,
}

var schedulerHistory int

var schedulerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show task state and recent runs",
	Args:  cobra.NoArgs,
	RunE:  runSchedulerStatus,
}

func init() {
	schedulerStatusCmd.Flags().IntVar(&schedulerHistory, "history", 3, "recent runs to show per task")
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
	rootCmd.AddCommand(schedulerCmd)
}

func runSchedulerStart(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errNotConfigured("scheduler")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx)

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")
	err := scheduler.Start(ctx)
	if stopErr := scheduler.Stop(); stopErr != nil {
		logger.Warn("scheduler stop: %v", stopErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler stopped: %w", err)
	}
	return nil
}

func runSchedulerRun(cmd *cobra.Command, args []string) error {
	if scheduler == nil {
		return errNotConfigured("scheduler")
	}

	cmd.Printf("Running %s...\n", args[0])
	if err := scheduler.RunNow(context.Background(), args[0]); err != nil {
		return fmt.Errorf("task failed: %w", err)
	}
	cmd.Println("Done.")
	return nil
}

func runSchedulerStatus(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errNotConfigured("scheduler")
	}

	ctx := context.Background()
	tasks, err := scheduler.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	for i, task := range tasks {
		if i > 0 {
			cmd.Println()
		}
		state := "enabled"
		if !task.Enabled {
			state = "disabled"
		}
		cmd.Printf("%s (%s) [%s]\n", task.Name, task.ID, state)
		cmd.Printf("  Schedule: %s\n", formatSchedule(task.Schedule))
		cmd.Printf("  Next run: %s\n", formatWhen(task.NextRun))
		cmd.Printf("  Last run: %s\n", formatWhen(task.LastRun))
		if task.LastError != "" {
			cmd.Printf("  Last error: %s\n", task.LastError)
		}

		if schedulerHistory <= 0 {
			continue
		}
		runs, err := scheduler.History(ctx, task.ID, schedulerHistory)
		if err != nil {
			return fmt.Errorf("failed to read history for %s: %w", task.ID, err)
		}
		for _, r := range runs {
			outcome := "ok"
			if !r.Success {
				outcome = "failed: " + r.Error
			}
			cmd.Printf("    %s  %6s  %d items  %s\n",
				formatWhen(r.StartedAt), r.Duration().Round(time.Second), r.ItemsProcessed, outcome)
		}
	}
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatSchedule(expr string) string {
	if expr == "" {
		return "-"
	}
	return expr
}
