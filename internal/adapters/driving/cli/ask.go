package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

var (
	askJSON     bool
	askRate     bool
	askExclude  []string
	askReporter string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask an effort question",
	Long: `Answers a free-text effort question.

The question is checked against the feedback cache of accepted answers
first. Questions naming a project are answered with a project roll-up.
Everything else goes through semantic retrieval over the effort records.

Use --rate to accept or reject the answer right away.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	askCmd.Flags().BoolVar(&askRate, "rate", false, "prompt to accept or reject the answer")
	askCmd.Flags().StringSliceVar(&askExclude, "exclude", nil, "ticket IDs to drop from retrieval")
	askCmd.Flags().StringVar(&askReporter, "reporter", "", "name recorded with the rating")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if resolver == nil {
		return errNotConfigured("resolver")
	}

	ctx := context.Background()
	question := strings.Join(args, " ")

	var result *domain.ResolveResult
	if len(askExclude) > 0 {
		result = resolver.ResolveExcluding(ctx, question, askExclude)
	} else {
		result = resolver.Resolve(ctx, question)
	}

	if askJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
	} else {
		printResult(cmd, result)
	}

	if askRate && result.FeedbackEligible {
		return promptRating(cmd, result)
	}
	return nil
}

func printResult(cmd *cobra.Command, result *domain.ResolveResult) {
	cmd.Println(result.Answer)
	cmd.Println()

	if len(result.Sources) > 0 {
		cmd.Println("Sources:")
		for i, src := range result.Sources {
			label := src.Source
			if src.TicketID != "" {
				label = src.TicketID
			}
			cmd.Printf("  [%d] %s\n", i+1, label)
			if src.Snippet != "" {
				cmd.Printf("      %s\n", truncate(src.Snippet, 120))
			}
		}
		cmd.Println()
	}

	line := "State: " + result.State.String()
	if result.Strategy != "" {
		line += " (" + result.Strategy + ")"
	}
	if result.Reason != "" {
		line += " - " + result.Reason
	}
	cmd.Println(line)
	if result.IsError() {
		cmd.Printf("Error: %s\n", result.Err)
	}
}

// promptRating reads y/n from the command input and records the judgement.
func promptRating(cmd *cobra.Command, result *domain.ResolveResult) error {
	if feedbackService == nil {
		return errNotConfigured("feedback service")
	}

	cmd.Print("\nWas this answer helpful? [y/n/skip]: ")
	reader := bufio.NewReader(cmd.InOrStdin())
	input := strings.ToLower(readLine(reader))

	var polarity domain.Polarity
	switch input {
	case "y", "yes":
		polarity = domain.PolarityAccepted
	case "n", "no":
		polarity = domain.PolarityRejected
	default:
		cmd.Println("Skipped.")
		return nil
	}

	outcome, err := feedbackService.Record(context.Background(), domain.FeedbackSubmission{
		Question: result.Question,
		Answer:   result.Answer,
		Sources:  result.Sources,
		Polarity: polarity,
		Reporter: askReporter,
	})
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	printOutcome(cmd, polarity, outcome)
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
