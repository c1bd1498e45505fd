// Package cli provides the effortqa command-line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verbose bool

// Services injected by main. Commands check for nil before use.
var (
	resolver          driving.Resolver
	feedbackService   driving.FeedbackService
	effortService     driving.EffortService
	epicAggregator    driving.EpicAggregator
	trackerSync       driving.TrackerSync
	taxonomyService   driving.TaxonomyService
	classifierService driving.CategoryClassifierService
	statsService      driving.StatsService
	settingsService   driving.SettingsService
	scheduler         driving.Scheduler

	metricsServe func(ctx context.Context) error
)

// Services groups the driving ports the commands use.
type Services struct {
	Resolver   driving.Resolver
	Feedback   driving.FeedbackService
	Efforts    driving.EffortService
	Epics      driving.EpicAggregator
	Tracker    driving.TrackerSync
	Taxonomy   driving.TaxonomyService
	Classifier driving.CategoryClassifierService
	Stats      driving.StatsService
	Settings   driving.SettingsService
	Scheduler  driving.Scheduler

	// MetricsServe, when set, is started in the background by
	// long-running commands and must return when ctx is done.
	MetricsServe func(ctx context.Context) error
}

var rootCmd = &cobra.Command{
	Use:   "effortqa",
	Short: "Answer effort questions from historical tickets",
	Long: `effortqa answers natural-language questions about how much effort a
feature took, using historical tickets, a feedback cache of judged answers
and project roll-ups.

Ask a question, rate the answer, and the next identical question is served
from the accepted answer.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	resolver = s.Resolver
	feedbackService = s.Feedback
	effortService = s.Efforts
	epicAggregator = s.Epics
	trackerSync = s.Tracker
	taxonomyService = s.Taxonomy
	classifierService = s.Classifier
	statsService = s.Stats
	settingsService = s.Settings
	scheduler = s.Scheduler
	metricsServe = s.MetricsServe
}

// startMetrics runs the metrics endpoint until ctx is done.
func startMetrics(ctx context.Context) {
	if metricsServe == nil {
		return
	}
	go func() {
		if err := metricsServe(ctx); err != nil {
			logger.Warn("metrics server: %v", err)
		}
	}()
}

// errNotConfigured is returned by commands whose service main left nil,
// usually because the store behind it failed to open.
func errNotConfigured(what string) error {
	return fmt.Errorf("%s not configured", what)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
