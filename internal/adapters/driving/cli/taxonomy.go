package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Manage the category taxonomy",
	Long: `Every effort record is classified as "major > minor > sub" from a closed
taxonomy. The taxonomy lives in ~/.effortqa/taxonomy.yaml and is reloaded
when the file changes.`,
	RunE: runTaxonomyList,
}

var taxonomyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every category",
	RunE:  runTaxonomyList,
}

var taxonomyAddCmd = &cobra.Command{
	Use:   "add <major> <minor> <sub>",
	Short: "Add a category",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaxonomyAdd,
}

var taxonomyUpdateCmd = &cobra.Command{
	Use:   "update <old> <new>",
	Short: `Rename a category, both given as "major > minor > sub"`,
	Args:  cobra.ExactArgs(2),
	RunE:  runTaxonomyUpdate,
}

var taxonomyRemoveCmd = &cobra.Command{
	Use:   "remove <major> <minor> <sub>",
	Short: "Remove a category",
	Args:  cobra.ExactArgs(3),
	RunE:  runTaxonomyRemove,
}

var taxonomyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Reset records whose category is no longer in the taxonomy",
	RunE:  runTaxonomyMigrate,
}

func init() {
	taxonomyCmd.AddCommand(taxonomyListCmd)
	taxonomyCmd.AddCommand(taxonomyAddCmd)
	taxonomyCmd.AddCommand(taxonomyUpdateCmd)
	taxonomyCmd.AddCommand(taxonomyRemoveCmd)
	taxonomyCmd.AddCommand(taxonomyMigrateCmd)
	rootCmd.AddCommand(taxonomyCmd)
}

func runTaxonomyList(cmd *cobra.Command, _ []string) error {
	if taxonomyService == nil {
		return errNotConfigured("taxonomy service")
	}

	t := taxonomyService.Get()
	cmd.Printf("Taxonomy version %d\n\n", t.Version)
	for _, major := range t.Majors {
		cmd.Println(major.Name)
		for _, minor := range major.Minors {
			cmd.Printf("  %s\n", minor.Name)
			for _, sub := range minor.Subs {
				cmd.Printf("    - %s\n", sub)
			}
		}
	}
	return nil
}

func runTaxonomyAdd(cmd *cobra.Command, args []string) error {
	if taxonomyService == nil {
		return errNotConfigured("taxonomy service")
	}

	c := domain.NewCategory(args[0], args[1], args[2])
	if err := taxonomyService.Add(c); err != nil {
		return fmt.Errorf("failed to add category: %w", err)
	}
	cmd.Printf("Added %s\n", c)
	return nil
}

func runTaxonomyUpdate(cmd *cobra.Command, args []string) error {
	if taxonomyService == nil {
		return errNotConfigured("taxonomy service")
	}

	old, err := domain.ParseCategory(args[0])
	if err != nil {
		return fmt.Errorf("invalid category %q: %w", args[0], err)
	}
	updated, err := domain.ParseCategory(args[1])
	if err != nil {
		return fmt.Errorf("invalid category %q: %w", args[1], err)
	}

	if err := taxonomyService.Update(old, updated); err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	cmd.Printf("Updated %s -> %s\n", old, updated)
	return nil
}

func runTaxonomyRemove(cmd *cobra.Command, args []string) error {
	if taxonomyService == nil {
		return errNotConfigured("taxonomy service")
	}

	c := domain.NewCategory(args[0], args[1], args[2])
	if err := taxonomyService.Remove(c); err != nil {
		return fmt.Errorf("failed to remove category: %w", err)
	}
	cmd.Printf("Removed %s\n", c)
	cmd.Println("Run 'effortqa taxonomy migrate' to reset records that used it.")
	return nil
}

func runTaxonomyMigrate(cmd *cobra.Command, _ []string) error {
	if taxonomyService == nil {
		return errNotConfigured("taxonomy service")
	}

	n, err := taxonomyService.Migrate(context.Background())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	cmd.Printf("Reset %d records to unclassified.\n", n)
	return nil
}
