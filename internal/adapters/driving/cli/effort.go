package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

var (
	effortTitle      string
	effortEstimate   float64
	effortUnit       string
	effortMember     string
	effortCategory   string
	effortProjectKey string
	effortProject    string
	effortReason     string
	effortNotes      string
	effortOverwrite  bool
	effortJSON       bool
)

var effortCmd = &cobra.Command{
	Use:   "effort",
	Short: "Manage effort records",
	Long:  `Add, list and search the historical effort records answers are built from.`,
}

var effortAddCmd = &cobra.Command{
	Use:   "add <ticket-id>",
	Short: "Add or update an effort record",
	Long: `Adds an effort record, or updates an existing one.

Estimates are stored in man-days. Use --unit M/M to enter a man-month value,
which is converted with the configured days per month.`,
	Args: cobra.ExactArgs(1),
	RunE: runEffortAdd,
}

var effortListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effort records",
	RunE:  runEffortList,
}

var effortShowCmd = &cobra.Command{
	Use:   "show <ticket-id>",
	Short: "Show one effort record",
	Args:  cobra.ExactArgs(1),
	RunE:  runEffortShow,
}

var effortSimilarCmd = &cobra.Command{
	Use:   "similar <feature>",
	Short: "Find records whose title contains a feature name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEffortSimilar,
}

var effortStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the effort records",
	RunE:  runEffortStats,
}

var effortBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot every effort record to a backup file",
	RunE:  runEffortBackup,
}

var effortReindexCmd = &cobra.Command{
	Use:   "reindex [ticket-id...]",
	Short: "Rebuild the retrieval index for effort records",
	RunE:  runEffortReindex,
}

func init() {
	f := effortAddCmd.Flags()
	f.StringVarP(&effortTitle, "title", "t", "", "ticket title (required)")
	f.Float64VarP(&effortEstimate, "estimate", "e", 0, "estimated effort")
	f.StringVar(&effortUnit, "unit", string(domain.UnitManDay), "estimate unit: M/D or M/M")
	f.StringVarP(&effortMember, "member", "m", "", "team member")
	f.StringVarP(&effortCategory, "category", "c", "", `category as "major > minor > sub"`)
	f.StringVar(&effortProjectKey, "project-key", "", "parent project (Epic) key")
	f.StringVar(&effortProject, "project", "", "parent project (Epic) name")
	f.StringVar(&effortReason, "reason", "", "estimation reason")
	f.StringVar(&effortNotes, "notes", "", "free-form notes")
	f.BoolVar(&effortOverwrite, "overwrite", false, "replace category and project of an existing record")
	_ = effortAddCmd.MarkFlagRequired("title")

	effortListCmd.Flags().BoolVar(&effortJSON, "json", false, "output as JSON")
	effortStatsCmd.Flags().BoolVar(&effortJSON, "json", false, "output as JSON")

	effortCmd.AddCommand(effortAddCmd)
	effortCmd.AddCommand(effortListCmd)
	effortCmd.AddCommand(effortShowCmd)
	effortCmd.AddCommand(effortSimilarCmd)
	effortCmd.AddCommand(effortStatsCmd)
	effortCmd.AddCommand(effortBackupCmd)
	effortCmd.AddCommand(effortReindexCmd)
	rootCmd.AddCommand(effortCmd)
}

func runEffortAdd(cmd *cobra.Command, args []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	category := domain.Unclassified()
	if effortCategory != "" {
		c, err := domain.ParseCategory(effortCategory)
		if err != nil {
			return fmt.Errorf("invalid category %q: %w", effortCategory, err)
		}
		category = c
	}

	unit := domain.EstimateUnit(strings.ToUpper(effortUnit))
	if unit != domain.UnitManDay && unit != domain.UnitManMonth {
		return fmt.Errorf("invalid unit %q: use M/D or M/M", effortUnit)
	}

	rec := &domain.EffortRecord{
		TicketID:         args[0],
		Title:            effortTitle,
		Estimate:         domain.ConvertEstimate(effortEstimate, unit, daysPerMonth()),
		EstimationReason: effortReason,
		TeamMember:       effortMember,
		Category:         category,
		ProjectKey:       effortProjectKey,
		ProjectName:      effortProject,
		Notes:            effortNotes,
	}
	if unit == domain.UnitManMonth {
		rec.EstimateOriginal = effortEstimate
		rec.EstimateUnit = unit
	}

	outcome, err := effortService.Add(context.Background(), rec, driving.AddOptions{
		OverwriteCategory: effortOverwrite,
		OverwriteProject:  effortOverwrite,
	})
	if err != nil {
		return fmt.Errorf("failed to add record: %w", err)
	}

	switch {
	case outcome.Created:
		cmd.Printf("Added %s (%s).\n", rec.TicketID, rec.DisplayEstimate())
	case outcome.Updated:
		cmd.Printf("Updated %s.\n", rec.TicketID)
	default:
		cmd.Printf("%s unchanged.\n", rec.TicketID)
	}
	return nil
}

// daysPerMonth reads the configured conversion factor.
func daysPerMonth() float64 {
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && s.Tracker.DaysPerMonth > 0 {
			return s.Tracker.DaysPerMonth
		}
	}
	return domain.DefaultAppSettings().Tracker.DaysPerMonth
}

func runEffortList(cmd *cobra.Command, _ []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	records, err := effortService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	return outputRecords(cmd, records, effortJSON)
}

func runEffortSimilar(cmd *cobra.Command, args []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	records, err := effortService.SearchSimilar(context.Background(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputRecords(cmd, records, false)
}

func outputRecords(cmd *cobra.Command, records []domain.EffortRecord, asJSON bool) error {
	if asJSON {
		if records == nil {
			records = []domain.EffortRecord{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal records: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(records) == 0 {
		cmd.Println("No effort records found.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmd.Printf("%-14s %8s M/D  %s\n", r.TicketID, domain.FormatEffort(r.Estimate), truncate(r.Title, 60))
		if !r.Category.IsUnclassified() {
			cmd.Printf("%-14s               %s\n", "", r.Category)
		}
	}
	cmd.Printf("\n%d records\n", len(records))
	return nil
}

func runEffortShow(cmd *cobra.Command, args []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	r, err := effortService.Get(context.Background(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("record not found: %s", args[0])
		}
		return fmt.Errorf("failed to get record: %w", err)
	}

	cmd.Printf("Ticket:   %s\n", r.TicketID)
	cmd.Printf("Title:    %s\n", r.Title)
	cmd.Printf("Estimate: %s\n", r.DisplayEstimate())
	if r.TeamMember != "" {
		cmd.Printf("Member:   %s\n", r.TeamMember)
	}
	category := "(unclassified)"
	if !r.Category.IsUnclassified() {
		category = r.Category.String()
	}
	cmd.Printf("Category: %s\n", category)
	if r.ProjectKey != "" {
		cmd.Printf("Project:  %s %s\n", r.ProjectKey, r.ProjectName)
	}
	if r.EstimationReason != "" {
		cmd.Printf("Reason:   %s\n", r.EstimationReason)
	}
	if r.Notes != "" {
		cmd.Printf("Notes:    %s\n", r.Notes)
	}
	return nil
}

func runEffortStats(cmd *cobra.Command, _ []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	stats, err := effortService.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	if effortJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printEffortStats(cmd, stats)
	return nil
}

func printEffortStats(cmd *cobra.Command, stats *domain.EffortStats) {
	cmd.Printf("Tickets:      %d\n", stats.TotalTickets)
	cmd.Printf("Total effort: %s M/D\n", domain.FormatEffort(stats.TotalEffort))
	cmd.Printf("Average:      %s M/D\n", domain.FormatEffort(stats.AverageEffort))
	cmd.Printf("Unclassified: %d\n", stats.Unclassified)

	if len(stats.ByCategory) > 0 {
		cmd.Println("\nBy category:")
		for _, k := range sortedKeys(stats.ByCategory) {
			cmd.Printf("  %-20s %s M/D\n", k, domain.FormatEffort(stats.ByCategory[k]))
		}
	}
	if len(stats.ByMember) > 0 {
		cmd.Println("\nBy member:")
		for _, k := range sortedKeys(stats.ByMember) {
			cmd.Printf("  %-20s %s M/D\n", k, domain.FormatEffort(stats.ByMember[k]))
		}
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runEffortBackup(cmd *cobra.Command, _ []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	path, err := effortService.Backup(context.Background())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	cmd.Printf("Backup written to %s\n", path)
	return nil
}

func runEffortReindex(cmd *cobra.Command, args []string) error {
	if effortService == nil {
		return errNotConfigured("effort service")
	}

	if err := effortService.Reindex(context.Background(), args...); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if len(args) == 0 {
		cmd.Println("All effort records reindexed.")
	} else {
		cmd.Printf("Reindexed %d records.\n", len(args))
	}
	return nil
}
