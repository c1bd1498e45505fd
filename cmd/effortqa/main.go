// Command effortqa answers effort questions from historical tickets.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/ai"
	memorycache "github.com/custodia-labs/effortqa/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/effortqa/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/classifier/bayes"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/tracker/github"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/tracker/jira"
	"github.com/custodia-labs/effortqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/services"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// envDataDir relocates every file effortqa keeps on disk.
const envDataDir = "EFFORTQA_DATA_DIR"

func main() {
	if slices.Contains(os.Args[1:], "-v") || slices.Contains(os.Args[1:], "--verbose") {
		logger.SetVerbose(true)
	}

	ctx, cancel := context.WithCancel(context.Background())

	cleanup, err := wire(ctx)
	if err != nil {
		cancel()
		logger.Error("%v", err)
		os.Exit(1)
	}

	cli.SetVersion(version)
	err = cli.Execute()

	cancel()
	cleanup()
	if err != nil {
		os.Exit(1)
	}
}

// wire builds every adapter and service and hands them to the CLI.
// The returned func releases what was opened.
func wire(ctx context.Context) (func(), error) {
	home, err := dataHome()
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewProbe(0))
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	store, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if v, err := store.SchemaVersion(ctx); err == nil {
		logger.Debug("sqlite: %s at schema %d", store.Path(), v)
	}

	promptStore, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}
	taxonomyStore, err := file.NewTaxonomyStore(home)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening taxonomy: %w", err)
	}
	backupStore, err := file.NewBackupStore(filepath.Join(home, "backups"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening backups: %w", err)
	}

	aiServices := ai.Connect(ctx, *settings)
	metrics := prometheus.Default()
	cache := newAnswerCache(ctx, settings.RedisAddr)
	index := store.VectorIndex(aiServices.Embedding)
	efforts := store.EffortStore()

	taxonomyService, err := services.NewTaxonomyService(taxonomyStore, efforts)
	if err != nil {
		aiServices.Close()
		store.Close()
		return nil, err
	}
	effortService := services.NewEffortService(efforts, index, backupStore, taxonomyService)
	taxonomyService.SetReindexer(effortService)

	feedbackService := services.NewFeedbackService(
		store.FeedbackStore(), index, store.AnswerLog(), cache, metrics,
		settings.Retrieval.FeedbackEpsilon,
	)

	epicAggregator := services.NewEpicAggregator(efforts, aiServices.LLM, settings.Tracker.BaseURL)
	epicAggregator.SetPromptStore(promptStore)

	model := bayes.New(0)
	classifierService := services.NewCategoryClassifier(model, effortService, taxonomyService)
	if err := classifierService.Train(ctx); err != nil {
		logger.Warn("classifier: %v", err)
	}

	resolver := services.NewResolver(services.ResolverDeps{
		Feedback:   feedbackService,
		Epics:      epicAggregator,
		Efforts:    efforts,
		Index:      index,
		LLM:        aiServices.LLM,
		Classifier: model,
		Cache:      cache,
		AnswerLog:  store.AnswerLog(),
		Metrics:    metrics,
		Settings:   settings.Retrieval,
	})
	resolver.SetPromptStore(promptStore)

	trackerSync := services.NewTrackerSync(
		newTracker(ctx, settings.Tracker), effortService, metrics, settings.Tracker.Project,
	)
	scheduler := services.NewScheduler(
		settingsService.GetSchedulerConfig(), store.SchedulerStore(), trackerSync, effortService,
	)
	statsService := services.NewStatsService(effortService, feedbackService, index)

	go func() {
		if err := taxonomyService.Watch(ctx); err != nil {
			logger.Warn("taxonomy watch: %v", err)
		}
	}()

	var metricsServe func(context.Context) error
	if settings.MetricsAddr != "" {
		addr := settings.MetricsAddr
		metricsServe = func(ctx context.Context) error {
			return metrics.Serve(ctx, addr)
		}
	}

	cli.SetServices(&cli.Services{
		Resolver:     resolver,
		Feedback:     feedbackService,
		Efforts:      effortService,
		Epics:        epicAggregator,
		Tracker:      trackerSync,
		Taxonomy:     taxonomyService,
		Classifier:   classifierService,
		Stats:        statsService,
		Settings:     settingsService,
		Scheduler:    scheduler,
		MetricsServe: metricsServe,
	})

	return func() {
		aiServices.Close()
		if err := store.Close(); err != nil {
			logger.Warn("closing database: %v", err)
		}
	}, nil
}

// dataHome returns $EFFORTQA_DATA_DIR or ~/.effortqa.
func dataHome() (string, error) {
	if dir := os.Getenv(envDataDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".effortqa"), nil
}

// newAnswerCache prefers redis and falls back to memory when redis is not
// configured or does not answer.
func newAnswerCache(ctx context.Context, addr string) driven.AnswerCache {
	if addr == "" {
		return memorycache.New(0)
	}
	cache, err := rediscache.New(ctx, rediscache.Config{Addr: addr})
	if err != nil {
		logger.Warn("redis cache unavailable, using memory: %v", err)
		return memorycache.New(0)
	}
	return cache
}

// newTracker builds the configured tracker. A nil tracker leaves sync
// commands reporting the tracker as unavailable.
func newTracker(ctx context.Context, t domain.TrackerSettings) driven.Tracker {
	if !t.IsConfigured() {
		return nil
	}

	var (
		tracker driven.Tracker
		err     error
	)
	switch t.Kind {
	case domain.TrackerGitHub:
		tracker, err = github.New(ctx, github.Config{
			Token:         t.APIToken,
			Owner:         t.GitHubOwner,
			Repo:          t.GitHubRepo,
			MonthProjects: t.MonthProjects,
			DaysPerMonth:  t.DaysPerMonth,
		})
	default:
		tracker, err = jira.New(jira.Config{
			BaseURL:          t.BaseURL,
			Username:         t.Username,
			APIToken:         t.APIToken,
			StoryPointFields: t.StoryPointFields,
			MonthProjects:    t.MonthProjects,
			DaysPerMonth:     t.DaysPerMonth,
		})
	}
	if err != nil {
		logger.Warn("tracker disabled: %v", err)
		return nil
	}
	return tracker
}
