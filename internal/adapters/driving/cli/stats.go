package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show effort, feedback and index statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if statsService == nil {
		return errNotConfigured("stats service")
	}

	overview, err := statsService.Overview(context.Background(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(overview, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("[Effort]")
	if overview.Effort != nil {
		printEffortStats(cmd, overview.Effort)
	}
	cmd.Println()
	cmd.Println("[Feedback]")
	cmd.Printf("Accepted total: %d\n", overview.Accepted)
	cmd.Printf("Rejected total: %d\n", overview.Rejected)
	if overview.Feedback != nil {
		printWeekly(cmd, overview.Feedback)
	}
	cmd.Println()
	cmd.Println("[Index]")
	cmd.Printf("Documents: %d\n", overview.IndexDocuments)
	return nil
}
