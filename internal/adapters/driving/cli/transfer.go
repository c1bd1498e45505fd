package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

var (
	transferOutput    string
	transferFeedback  bool
	transferOverwrite bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export effort records (or feedback) as JSON",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import effort records (or feedback) from a JSON export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&transferOutput, "output", "o", "", "write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&transferFeedback, "feedback", false, "export feedback records")
	importCmd.Flags().BoolVar(&transferFeedback, "feedback", false, "import feedback records")
	importCmd.Flags().BoolVar(&transferOverwrite, "overwrite", false, "replace category and project of existing records")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	var w io.Writer = cmd.OutOrStdout()
	if transferOutput != "" {
		f, err := os.Create(transferOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", transferOutput, err)
		}
		defer f.Close()
		w = f
	}

	ctx := context.Background()
	if transferFeedback {
		if feedbackService == nil {
			return errNotConfigured("feedback service")
		}
		if err := feedbackService.Export(ctx, w); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	} else {
		if effortService == nil {
			return errNotConfigured("effort service")
		}
		if err := effortService.Export(ctx, w); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}

	if transferOutput != "" {
		cmd.Printf("Exported to %s\n", transferOutput)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	ctx := context.Background()
	var n int
	if transferFeedback {
		if feedbackService == nil {
			return errNotConfigured("feedback service")
		}
		n, err = feedbackService.Import(ctx, f)
	} else {
		if effortService == nil {
			return errNotConfigured("effort service")
		}
		n, err = effortService.Import(ctx, f, driving.AddOptions{
			OverwriteCategory: transferOverwrite,
			OverwriteProject:  transferOverwrite,
		})
	}
	if err != nil {
		return fmt.Errorf("import failed after %d records: %w", n, err)
	}

	cmd.Printf("Imported %d records.\n", n)
	return nil
}
