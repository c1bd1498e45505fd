package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

var (
	feedbackQuestion string
	feedbackAnswer   string
	feedbackReporter string
	feedbackPolarity string
	feedbackJSON     bool
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and inspect answer feedback",
	Long: `Record accept/reject judgements on answers and inspect the feedback cache.

Accepted answers are served directly the next time the same question is
asked. Rejected answers are remembered so they are not cached again.`,
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit <accepted|rejected>",
	Short: "Record a judgement on a question/answer pair",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackSubmit,
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feedback records",
	RunE:  runFeedbackList,
}

var feedbackShowCmd = &cobra.Command{
	Use:   "show <qa-hash>",
	Short: "Show one feedback record",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackShow,
}

var feedbackWeekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show this week's acceptance ratio",
	RunE:  runFeedbackWeek,
}

var feedbackReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the accepted-answer index",
	RunE:  runFeedbackReindex,
}

func init() {
	feedbackSubmitCmd.Flags().StringVarP(&feedbackQuestion, "question", "q", "", "question text (required)")
	feedbackSubmitCmd.Flags().StringVarP(&feedbackAnswer, "answer", "a", "", "answer text (required)")
	feedbackSubmitCmd.Flags().StringVar(&feedbackReporter, "reporter", "", "name recorded with the judgement")
	_ = feedbackSubmitCmd.MarkFlagRequired("question")
	_ = feedbackSubmitCmd.MarkFlagRequired("answer")

	feedbackListCmd.Flags().StringVar(&feedbackPolarity, "polarity", "", "accepted or rejected (default all)")
	feedbackListCmd.Flags().BoolVar(&feedbackJSON, "json", false, "output as JSON")

	feedbackCmd.AddCommand(feedbackSubmitCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackShowCmd)
	feedbackCmd.AddCommand(feedbackWeekCmd)
	feedbackCmd.AddCommand(feedbackReindexCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedbackSubmit(cmd *cobra.Command, args []string) error {
	if feedbackService == nil {
		return errNotConfigured("feedback service")
	}

	polarity, err := domain.ParsePolarity(args[0])
	if err != nil {
		return fmt.Errorf("invalid polarity %q: use accepted or rejected", args[0])
	}

	outcome, err := feedbackService.Record(context.Background(), domain.FeedbackSubmission{
		Question: feedbackQuestion,
		Answer:   feedbackAnswer,
		Polarity: polarity,
		Reporter: feedbackReporter,
	})
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	printOutcome(cmd, polarity, outcome)
	return nil
}

func printOutcome(cmd *cobra.Command, polarity domain.Polarity, outcome *domain.FeedbackOutcome) {
	switch {
	case outcome.IsNew:
		cmd.Printf("Recorded %s feedback %s.\n", polarity, outcome.QAHash)
	case outcome.TypeChanged:
		cmd.Printf("Feedback %s moved to %s.\n", outcome.QAHash, polarity)
	default:
		cmd.Printf("Feedback %s seen %d times.\n", outcome.QAHash, outcome.Count)
	}
	if outcome.AnswerReplaced {
		cmd.Println("The previous accepted answer for this question was replaced.")
	}
	if outcome.RemovedAccepted {
		cmd.Println("The accepted answer for this question was removed.")
	}
}

func runFeedbackList(cmd *cobra.Command, _ []string) error {
	if feedbackService == nil {
		return errNotConfigured("feedback service")
	}

	var polarity domain.Polarity
	if feedbackPolarity != "" {
		p, err := domain.ParsePolarity(feedbackPolarity)
		if err != nil {
			return fmt.Errorf("invalid polarity %q: use accepted or rejected", feedbackPolarity)
		}
		polarity = p
	}

	records, err := feedbackService.List(context.Background(), polarity)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}

	if feedbackJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal feedback: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No feedback recorded.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmd.Printf("%s  %-8s  x%-3d  %s\n", r.QAHash[:min(8, len(r.QAHash))], r.Polarity, r.Count, truncate(r.Question, 60))
	}
	cmd.Printf("\n%d records\n", len(records))
	return nil
}

func runFeedbackShow(cmd *cobra.Command, args []string) error {
	if feedbackService == nil {
		return errNotConfigured("feedback service")
	}

	r, err := feedbackService.Get(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("feedback not found: %s", args[0])
		}
		return fmt.Errorf("failed to get feedback: %w", err)
	}

	cmd.Printf("Hash:       %s\n", r.QAHash)
	cmd.Printf("Polarity:   %s\n", r.Polarity)
	cmd.Printf("Count:      %d\n", r.Count)
	cmd.Printf("First seen: %s\n", r.FirstSeenAt.Format(time.RFC3339))
	cmd.Printf("Last seen:  %s\n", r.LastSeenAt.Format(time.RFC3339))
	if len(r.ObservedBy) > 0 {
		cmd.Printf("Observed by: %v\n", r.ObservedBy)
	}
	cmd.Println()
	cmd.Printf("Q: %s\n", r.Question)
	cmd.Printf("A: %s\n", r.Answer)
	return nil
}

func runFeedbackWeek(cmd *cobra.Command, _ []string) error {
	if feedbackService == nil {
		return errNotConfigured("feedback service")
	}

	stats, err := feedbackService.WeeklyAcceptance(context.Background(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to compute weekly acceptance: %w", err)
	}
	printWeekly(cmd, stats)
	return nil
}

func printWeekly(cmd *cobra.Command, stats *domain.WeeklyFeedbackStats) {
	cmd.Printf("Week %d-W%02d (from %s)\n", stats.Year, stats.Week, stats.WeekStart.Format("2006-01-02"))
	cmd.Printf("  Answers served: %d\n", stats.AnswersServed)
	cmd.Printf("  Accepted:       %d\n", stats.Accepted)
	cmd.Printf("  Rejected:       %d\n", stats.Rejected)
	cmd.Printf("  Acceptance:     %.1f%%\n", stats.Ratio*100)
}

func runFeedbackReindex(cmd *cobra.Command, _ []string) error {
	if feedbackService == nil {
		return errNotConfigured("feedback service")
	}
	if err := feedbackService.Reindex(context.Background()); err != nil {
		return fmt.Errorf("failed to reindex feedback: %w", err)
	}
	cmd.Println("Accepted answers reindexed.")
	return nil
}
