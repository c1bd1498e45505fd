package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

// syncPollInterval is how often job progress is printed.
var syncPollInterval = 500 * time.Millisecond

var (
	syncCategory string
	syncFilter   string
	syncNoWait   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import tickets from the tracker",
	Long: `Imports tickets from the configured tracker (Jira or GitHub) into the
effort records. The store is backed up before every epic import.`,
}

var syncTicketCmd = &cobra.Command{
	Use:   "ticket <key>",
	Short: "Import one ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncTicket,
}

var syncEpicCmd = &cobra.Command{
	Use:   "epic <key>",
	Short: "Import every child ticket of an epic",
	Args:  cobra.ExactArgs(1),
	RunE:  runSyncEpic,
}

var syncCompletedCmd = &cobra.Command{
	Use:   "completed",
	Short: "Import every completed epic in the background",
	Long: `Starts a background job that imports the children of every completed
epic. Progress is printed until the job finishes unless --no-wait is given.`,
	RunE: runSyncCompleted,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent sync job",
	RunE:  runSyncStatus,
}

func init() {
	syncTicketCmd.Flags().StringVarP(&syncCategory, "category", "c", "", `category as "major > minor > sub"`)
	syncEpicCmd.Flags().StringVarP(&syncCategory, "category", "c", "", `category as "major > minor > sub"`)
	syncEpicCmd.Flags().StringVar(&syncFilter, "filter", "", "only import children whose title contains this text")
	syncCompletedCmd.Flags().BoolVar(&syncNoWait, "no-wait", false, "return once the job has started")

	syncCmd.AddCommand(syncTicketCmd)
	syncCmd.AddCommand(syncEpicCmd)
	syncCmd.AddCommand(syncCompletedCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func parseCategoryFlag(s string) (domain.Category, error) {
	if s == "" {
		return domain.Unclassified(), nil
	}
	c, err := domain.ParseCategory(s)
	if err != nil {
		return domain.Category{}, fmt.Errorf("invalid category %q: %w", s, err)
	}
	return c, nil
}

// syncFailed adds a next step to tracker errors the user can act on.
func syncFailed(err error) error {
	switch {
	case domain.IsRateLimited(err):
		return fmt.Errorf("sync failed, tracker rate limit reached; retry later: %w", err)
	case domain.IsUnavailable(err):
		return fmt.Errorf("sync failed, tracker unreachable; check 'effortqa config tracker': %w", err)
	default:
		return fmt.Errorf("sync failed: %w", err)
	}
}

func runSyncTicket(cmd *cobra.Command, args []string) error {
	if trackerSync == nil {
		return errNotConfigured("tracker")
	}
	category, err := parseCategoryFlag(syncCategory)
	if err != nil {
		return err
	}

	res, err := trackerSync.SyncTicket(cmd.Context(), args[0], category)
	if err != nil {
		return syncFailed(err)
	}

	switch {
	case res.Added:
		cmd.Printf("Added %s.\n", res.TicketID)
	case res.Updated:
		cmd.Printf("Updated %s.\n", res.TicketID)
	default:
		cmd.Printf("Skipped %s: %s\n", res.TicketID, res.Reason)
	}
	return nil
}

func runSyncEpic(cmd *cobra.Command, args []string) error {
	if trackerSync == nil {
		return errNotConfigured("tracker")
	}
	category, err := parseCategoryFlag(syncCategory)
	if err != nil {
		return err
	}

	cmd.Printf("Synchronising epic %s...\n", args[0])
	res, err := trackerSync.SyncEpic(cmd.Context(), args[0], category, syncFilter)
	if err != nil {
		return syncFailed(err)
	}

	cmd.Printf("%s %s: %d tickets, %d added, %d updated, %d skipped\n",
		res.EpicKey, res.EpicName, res.Total, res.Added, res.Updated, res.Skipped)
	return nil
}

func runSyncCompleted(cmd *cobra.Command, _ []string) error {
	if trackerSync == nil {
		return errNotConfigured("tracker")
	}

	// The job outlives the command when --no-wait is set.
	handle, err := trackerSync.StartCompletedEpicSync(context.Background())
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			return errors.New("a sync job is already running; check 'effortqa sync status'")
		}
		return fmt.Errorf("failed to start sync: %w", err)
	}
	cmd.Printf("Started job %s\n", handle.ID())

	if syncNoWait {
		return nil
	}

	job, err := waitWithProgress(cmd, handle)
	if err != nil {
		return err
	}
	printJob(cmd, job)
	if job.State == domain.JobFailed {
		return fmt.Errorf("sync failed: %s", job.Message)
	}
	return nil
}

// waitWithProgress blocks on the job while printing progress updates.
func waitWithProgress(cmd *cobra.Command, handle driving.JobHandle) (domain.SyncJob, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan struct{})
	var (
		job     domain.SyncJob
		waitErr error
	)
	go func() {
		defer close(done)
		job, waitErr = handle.Wait(ctx)
	}()

	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()

	lastProgress := -1
	for {
		select {
		case <-done:
			if lastProgress >= 0 {
				cmd.Println()
			}
			return job, waitErr
		case <-ticker.C:
			s := handle.Status()
			if s.Progress != lastProgress {
				cmd.Printf("\r%3d%%  %d/%d epics  %s", s.Progress, s.Completed+s.Failed, s.Total, s.Current)
				lastProgress = s.Progress
			}
		}
	}
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	if trackerSync == nil {
		return errNotConfigured("tracker")
	}

	handle, ok := trackerSync.LastJob()
	if !ok {
		cmd.Println("No sync job has run.")
		return nil
	}
	printJob(cmd, handle.Status())
	return nil
}

func printJob(cmd *cobra.Command, job domain.SyncJob) {
	cmd.Printf("Job:       %s (%s)\n", job.ID, job.Kind)
	cmd.Printf("State:     %s\n", job.State)
	cmd.Printf("Progress:  %d%% (%d/%d, %d failed)\n", job.Progress, job.Completed, job.Total, job.Failed)
	if job.Current != "" && !job.State.IsTerminal() {
		cmd.Printf("Current:   %s\n", job.Current)
	}
	if job.Message != "" {
		cmd.Printf("Message:   %s\n", job.Message)
	}
	cmd.Printf("Started:   %s\n", job.StartedAt.Format(time.RFC3339))
	if !job.EndedAt.IsZero() {
		cmd.Printf("Ended:     %s\n", job.EndedAt.Format(time.RFC3339))
	}
	for _, item := range job.FailedItems {
		cmd.Printf("  failed: %s\n", item)
	}
}
