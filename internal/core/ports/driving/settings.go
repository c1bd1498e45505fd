package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// SettingsService reads and edits config.toml for the `settings` command
// and the setup probe. Every getter returns the effective settings:
// built-in defaults, then the file, then EFFORTQA_* and provider API key
// environment variables.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider and SetLLMProvider validate before saving. An
	// empty model selects the provider default; an empty key keeps the
	// stored one.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	SetTracker(tracker domain.TrackerSettings) error

	// Validate reports the first problem that would stop ask or sync.
	Validate() error

	GetDefaults() domain.AppSettings
	GetSchedulerConfig() domain.SchedulerConfig

	// CheckEmbedding and CheckLLM ping the configured providers.
	CheckEmbedding(ctx context.Context) error
	CheckLLM(ctx context.Context) error
}
