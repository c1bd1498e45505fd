package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func newSettingsService(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)
	service.getenv = func(name string) string { return env[name] }
	return service, store
}

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newSettingsService(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Tracker.Kind, settings.Tracker.Kind)
	assert.InDelta(t, 20.0, settings.Tracker.DaysPerMonth, 1e-9)
	assert.Equal(t, domain.DefaultStoryPointFields(), settings.Tracker.StoryPointFields)
	assert.Empty(t, settings.RedisAddr)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newSettingsService(nil)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("retrieval.k", int64(8))
	_ = store.Set("retrieval.mmr_lambda", 0.7)
	_ = store.Set("retrieval.feedback_epsilon", "0.05")
	_ = store.Set("retrieval.cache_ttl", "30s")
	_ = store.Set("tracker.kind", "github")
	_ = store.Set("tracker.mm_to_days", int64(22))
	_ = store.Set("tracker.month_projects", []any{"WORK", "OPS"})
	_ = store.Set("cache.redis_addr", "localhost:6379")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, 8, settings.Retrieval.K)
	assert.InDelta(t, 0.7, settings.Retrieval.MMRLambda, 1e-9)
	assert.InDelta(t, 0.05, settings.Retrieval.FeedbackEpsilon, 1e-9)
	assert.Equal(t, 30*time.Second, settings.Retrieval.CacheTTL)
	assert.Equal(t, domain.TrackerGitHub, settings.Tracker.Kind)
	assert.InDelta(t, 22.0, settings.Tracker.DaysPerMonth, 1e-9)
	assert.Equal(t, []string{"WORK", "OPS"}, settings.Tracker.MonthProjects)
	assert.Equal(t, "localhost:6379", settings.RedisAddr)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service, store := newSettingsService(nil)
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("tracker.kind", "trello")
	_ = store.Set("retrieval.cache_ttl", "soon")
	_ = store.Set("retrieval.mmr_lambda", true)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Tracker.Kind, settings.Tracker.Kind)
	assert.Equal(t, defaults.Retrieval.CacheTTL, settings.Retrieval.CacheTTL)
	assert.InDelta(t, defaults.Retrieval.MMRLambda, settings.Retrieval.MMRLambda, 1e-9)
}

func TestSettingsService_Get_EnvOverrides(t *testing.T) {
	service, store := newSettingsService(map[string]string{
		EnvJiraURL:         "https://jira.example.com",
		EnvJiraUsername:    "bot@example.com",
		EnvJiraAPIToken:    "jira-token",
		EnvAnthropicAPIKey: "sk-ant",
		EnvOpenAIAPIKey:    "sk-openai",
	})
	_ = store.Set("tracker.base_url", "https://old.example.com")
	_ = store.Set("llm.provider", "anthropic")
	_ = store.Set("embedding.provider", "openai")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com", settings.Tracker.BaseURL)
	assert.Equal(t, "bot@example.com", settings.Tracker.Username)
	assert.Equal(t, "jira-token", settings.Tracker.APIToken)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)
	assert.Equal(t, "sk-openai", settings.Embedding.APIKey)

	// Overrides are not persisted
	assert.Equal(t, "https://old.example.com", store.GetString("tracker.base_url"))
	assert.Empty(t, store.GetString("llm.api_key"))
}

func TestSettingsService_Save(t *testing.T) {
	service, store := newSettingsService(nil)

	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderAnthropic, Model: "claude-3-5-sonnet-latest", APIKey: "sk"}
	settings.Retrieval.CacheTTL = 5 * time.Minute
	settings.Tracker.Project = "ENOMIX"

	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, "sk", store.GetString("llm.api_key"))
	assert.Equal(t, "5m0s", store.GetString("retrieval.cache_ttl"))
	assert.Equal(t, "ENOMIX", store.GetString("tracker.project"))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings.Retrieval, retrieved.Retrieval)
	assert.Equal(t, settings.LLM, retrieved.LLM)
}

func TestSettingsService_Save_EmptyAPIKey(t *testing.T) {
	service, store := newSettingsService(nil)
	_ = store.Set("llm.api_key", "existing-key")

	settings := domain.DefaultAppSettings()
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"}
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "existing-key", store.GetString("llm.api_key"))
}

// Mock config store that always fails on Set
type failingConfigStore struct {
	*memory.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value interface{}) error {
	if f.failOn == "" || key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

func TestSettingsService_Save_Errors(t *testing.T) {
	tests := []struct {
		key   string
		label string
	}{
		{"embedding.provider", "embedding provider"},
		{"llm.model", "llm model"},
		{"retrieval.mmr_lambda", "retrieval mmr_lambda"},
		{"tracker.mm_to_days", "tracker mm_to_days"},
		{"llm.api_key", "llm api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: tt.key}
			service := NewSettingsService(store, nil)

			settings := domain.DefaultAppSettings()
			settings.LLM.APIKey = "sk"
			err := service.Save(&settings)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.label)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama", func(t *testing.T) {
		service, _ := newSettingsService(nil)
		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
		assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	})

	t.Run("openai", func(t *testing.T) {
		service, _ := newSettingsService(nil)
		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk"))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
		assert.Empty(t, settings.Embedding.BaseURL)
		assert.Equal(t, "sk", settings.Embedding.APIKey)
	})

	t.Run("rejections", func(t *testing.T) {
		service, _ := newSettingsService(nil)
		assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
		assert.Error(t, service.SetEmbeddingProvider(domain.AIProvider("cohere"), "", ""))
		assert.ErrorIs(t, service.SetEmbeddingProvider(domain.AIProviderAnthropic, "", "sk"), domain.ErrUnsupportedType)
	})

	t.Run("keeps custom ollama url", func(t *testing.T) {
		service, store := newSettingsService(nil)
		require.NoError(t, store.Set("embedding.provider", "ollama"))
		require.NoError(t, store.Set("embedding.base_url", "http://gpu-box:11434"))

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "all-minilm", ""))

		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "http://gpu-box:11434", settings.Embedding.BaseURL)
		assert.Equal(t, "all-minilm", settings.Embedding.Model)
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service, _ := newSettingsService(nil)
	require.NoError(t, service.SetLLMProvider(domain.AIProviderAnthropic, "", "sk-ant"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderAnthropic, settings.LLM.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", settings.LLM.Model)
	assert.Equal(t, "sk-ant", settings.LLM.APIKey)

	assert.ErrorIs(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""), domain.ErrInvalidInput)
	assert.Error(t, service.SetLLMProvider(domain.AIProvider("invalid"), "", ""))
}

func TestSettingsService_SetTracker(t *testing.T) {
	service, store := newSettingsService(nil)

	err := service.SetTracker(domain.TrackerSettings{
		Kind: domain.TrackerJira, BaseURL: "https://jira.example.com", APIToken: "tok", Project: "ENOMIX",
	})
	require.NoError(t, err)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "https://jira.example.com", settings.Tracker.BaseURL)
	assert.InDelta(t, 20.0, settings.Tracker.DaysPerMonth, 1e-9)
	assert.Equal(t, domain.DefaultStoryPointFields(), settings.Tracker.StoryPointFields)
	assert.Equal(t, "tok", store.GetString("tracker.api_token"))

	// Token is kept when omitted
	require.NoError(t, service.SetTracker(domain.TrackerSettings{Kind: domain.TrackerJira, BaseURL: "https://jira.example.com"}))
	assert.Equal(t, "tok", store.GetString("tracker.api_token"))

	assert.ErrorIs(t, service.SetTracker(domain.TrackerSettings{Kind: "trello"}), domain.ErrUnsupportedType)
	assert.ErrorIs(t, service.SetTracker(domain.TrackerSettings{Kind: domain.TrackerJira, DaysPerMonth: -1}), domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		service, _ := newSettingsService(nil)
		assert.NoError(t, service.Validate())
	})

	t.Run("k larger than fetch_k", func(t *testing.T) {
		service, store := newSettingsService(nil)
		_ = store.Set("retrieval.k", 50)
		assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
	})

	t.Run("lambda out of range", func(t *testing.T) {
		service, store := newSettingsService(nil)
		_ = store.Set("retrieval.mmr_lambda", 1.5)
		assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
	})

	t.Run("llm without key", func(t *testing.T) {
		service, store := newSettingsService(nil)
		_ = store.Set("llm.provider", "openai")
		assert.Error(t, service.Validate())
	})

	t.Run("llm key from env", func(t *testing.T) {
		service, store := newSettingsService(map[string]string{EnvOpenAIAPIKey: "sk"})
		_ = store.Set("llm.provider", "openai")
		assert.NoError(t, service.Validate())
	})
}

func TestSettingsService_GetSchedulerConfig(t *testing.T) {
	service, store := newSettingsService(nil)

	cfg := service.GetSchedulerConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.GetTaskConfig(domain.TaskIDCompletedEpicSync).Schedule)

	_ = store.Set("scheduler.enabled", false)
	_ = store.Set("scheduler.epic_sync.cron", "0 1 * * 1")
	_ = store.Set("scheduler.reindex.enabled", false)

	cfg = service.GetSchedulerConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "0 1 * * 1", cfg.GetTaskConfig(domain.TaskIDCompletedEpicSync).Schedule)
	assert.False(t, cfg.GetTaskConfig(domain.TaskIDEffortReindex).Enabled)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newSettingsService(nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

// stubProbe records the settings it was asked to check.
type stubProbe struct {
	embedErr error
	llmErr   error
	llm      *domain.LLMSettings
	embed    *domain.EmbeddingSettings
}

func (p *stubProbe) ProbeEmbedding(_ context.Context, s *domain.EmbeddingSettings) error {
	p.embed = s
	return p.embedErr
}

func (p *stubProbe) ProbeLLM(_ context.Context, s *domain.LLMSettings) error {
	p.llm = s
	return p.llmErr
}

func TestSettingsService_CheckProviders(t *testing.T) {
	ctx := context.Background()
	store := memory.NewConfigStore()

	service := NewSettingsService(store, nil)
	assert.NoError(t, service.CheckEmbedding(ctx))
	assert.NoError(t, service.CheckLLM(ctx))

	probe := &stubProbe{}
	service = NewSettingsService(store, probe)
	service.getenv = func(string) string { return "" }
	require.NoError(t, service.SetLLMProvider(domain.AIProviderOllama, "llama3.1", ""))
	assert.NoError(t, service.CheckEmbedding(ctx))
	assert.NoError(t, service.CheckLLM(ctx))
	require.NotNil(t, probe.llm)
	assert.Equal(t, "llama3.1", probe.llm.Model)
	assert.NotNil(t, probe.embed)

	service = NewSettingsService(store, &stubProbe{embedErr: assert.AnError, llmErr: assert.AnError})
	assert.ErrorIs(t, service.CheckEmbedding(ctx), assert.AnError)
	assert.ErrorIs(t, service.CheckLLM(ctx), assert.AnError)
}
