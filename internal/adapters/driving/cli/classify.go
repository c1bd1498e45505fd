package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	classifyThreshold float64
	classifyDryRun    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Train and apply the category classifier",
}

var classifyTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier from classified records",
	RunE:  runClassifyTrain,
}

var classifyPredictCmd = &cobra.Command{
	Use:   "predict <text>",
	Short: "Predict the category of a title",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runClassifyPredict,
}

var classifyAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Classify unclassified records above a confidence threshold",
	RunE:  runClassifyAuto,
}

func init() {
	classifyAutoCmd.Flags().Float64Var(&classifyThreshold, "threshold", 0.6, "minimum confidence to apply a prediction")
	classifyAutoCmd.Flags().BoolVar(&classifyDryRun, "dry-run", false, "report predictions without saving them")

	classifyCmd.AddCommand(classifyTrainCmd)
	classifyCmd.AddCommand(classifyPredictCmd)
	classifyCmd.AddCommand(classifyAutoCmd)
	rootCmd.AddCommand(classifyCmd)
}

func runClassifyTrain(cmd *cobra.Command, _ []string) error {
	if classifierService == nil {
		return errNotConfigured("classifier")
	}
	if err := classifierService.Train(context.Background()); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	cmd.Println("Classifier trained.")
	return nil
}

func runClassifyPredict(cmd *cobra.Command, args []string) error {
	if classifierService == nil {
		return errNotConfigured("classifier")
	}

	c, confidence := classifierService.Predict(context.Background(), strings.Join(args, " "))
	if c.IsUnclassified() {
		cmd.Println("No prediction (train the classifier first or add classified records).")
		return nil
	}
	cmd.Printf("%s (%.2f)\n", c, confidence)
	return nil
}

func runClassifyAuto(cmd *cobra.Command, _ []string) error {
	if classifierService == nil {
		return errNotConfigured("classifier")
	}

	results, err := classifierService.AutoClassify(context.Background(), classifyThreshold, classifyDryRun)
	if err != nil {
		return fmt.Errorf("auto-classification failed: %w", err)
	}

	applied := 0
	for _, r := range results {
		mark := " "
		if r.Applied {
			mark = "*"
			applied++
		}
		cmd.Printf("%s %-14s %.2f  %s\n", mark, r.TicketID, r.Confidence, r.Category)
	}
	if classifyDryRun {
		cmd.Printf("\n%d predictions (dry run)\n", len(results))
	} else {
		cmd.Printf("\n%d of %d records classified\n", applied, len(results))
	}
	return nil
}
