package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

var epicJSON bool

var epicCmd = &cobra.Command{
	Use:   "epic [keyword]",
	Short: "Roll up effort by project",
	Long: `Groups effort records by their parent project (Epic) and reports the
total effort, per-phase breakdown and per-member totals of every project
whose name or key matches the keyword.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEpic,
}

func init() {
	epicCmd.Flags().BoolVar(&epicJSON, "json", false, "output groups as JSON")
	rootCmd.AddCommand(epicCmd)
}

func runEpic(cmd *cobra.Command, args []string) error {
	if epicAggregator == nil {
		return errNotConfigured("epic aggregator")
	}

	keyword := strings.Join(args, " ")
	groups, err := epicAggregator.Aggregate(context.Background(), keyword)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	if epicJSON {
		if groups == nil {
			groups = []domain.EpicGroup{}
		}
		data, err := json.MarshalIndent(groups, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal groups: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(groups) == 0 {
		cmd.Println(domain.MsgNoEpic)
		return nil
	}
	cmd.Println(epicAggregator.Render(keyword, groups))
	return nil
}
