package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyRetrievalK          = "retrieval.k"
	keyRetrievalFetchK     = "retrieval.fetch_k"
	keyRetrievalLambda     = "retrieval.mmr_lambda"
	keyRetrievalEpsilon    = "retrieval.feedback_epsilon"
	keyRetrievalConfidence = "retrieval.category_confidence"
	keyRetrievalMinDocs    = "retrieval.min_docs"
	keyRetrievalCacheTTL   = "retrieval.cache_ttl"

	keyTrackerKind          = "tracker.kind"
	keyTrackerBaseURL       = "tracker.base_url"
	keyTrackerUsername      = "tracker.username"
	keyTrackerAPIToken      = "tracker.api_token"
	keyTrackerProject       = "tracker.project"
	keyTrackerMonthProjects = "tracker.month_projects"
	keyTrackerDaysPerMonth  = "tracker.mm_to_days"
	keyTrackerSPFields      = "tracker.story_point_fields"
	keyTrackerGitHubOwner   = "tracker.github.owner"
	keyTrackerGitHubRepo    = "tracker.github.repo"

	keySchedulerEnabled     = "scheduler.enabled"
	keySchedulerEpicSync    = "scheduler.epic_sync.cron"
	keySchedulerEpicEnabled = "scheduler.epic_sync.enabled"
	keySchedulerReindex     = "scheduler.reindex.cron"
	keySchedulerReindexOn   = "scheduler.reindex.enabled"

	keyCacheRedisAddr = "cache.redis_addr"
	keyMetricsAddr    = "metrics.addr"
)

const ollamaBaseURL = "http://localhost:11434"

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvJiraURL         = "JIRA_URL"
	EnvJiraUsername    = "JIRA_USERNAME"
	EnvJiraAPIToken    = "JIRA_API_TOKEN"
	EnvGitHubToken     = "GITHUB_TOKEN"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvRedisAddr       = "EFFORTQA_REDIS_ADDR"
)

// SettingsService maps domain.AppSettings onto dotted config keys.
type SettingsService struct {
	configStore driven.ConfigStore
	probe       driven.ProviderProbe
	getenv      func(string) string
}

// NewSettingsService creates a settings service. probe may be nil, in
// which case provider checks always pass.
func NewSettingsService(configStore driven.ConfigStore, probe driven.ProviderProbe) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		probe:       probe,
		getenv:      os.Getenv,
	}
}

// Get returns the stored settings with environment overrides applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.stored()
	s.applyEnv(settings)
	return settings, nil
}

// stored reads the config store alone; Set* edit this view so that
// environment values are never written back.
func (s *SettingsService) stored() *domain.AppSettings {
	defaults := domain.DefaultAppSettings()

	return &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			K:                  s.getInt(keyRetrievalK, defaults.Retrieval.K),
			FetchK:             s.getInt(keyRetrievalFetchK, defaults.Retrieval.FetchK),
			MMRLambda:          s.getFloat(keyRetrievalLambda, defaults.Retrieval.MMRLambda),
			FeedbackEpsilon:    s.getFloat(keyRetrievalEpsilon, defaults.Retrieval.FeedbackEpsilon),
			CategoryConfidence: s.getFloat(keyRetrievalConfidence, defaults.Retrieval.CategoryConfidence),
			MinDocs:            s.getInt(keyRetrievalMinDocs, defaults.Retrieval.MinDocs),
			CacheTTL:           s.getDuration(keyRetrievalCacheTTL, defaults.Retrieval.CacheTTL),
		},
		Tracker: domain.TrackerSettings{
			Kind:             s.getTrackerKind(defaults.Tracker.Kind),
			BaseURL:          s.configStore.GetString(keyTrackerBaseURL),
			Username:         s.configStore.GetString(keyTrackerUsername),
			APIToken:         s.configStore.GetString(keyTrackerAPIToken),
			Project:          s.configStore.GetString(keyTrackerProject),
			MonthProjects:    s.getStringSlice(keyTrackerMonthProjects, defaults.Tracker.MonthProjects),
			DaysPerMonth:     s.getFloat(keyTrackerDaysPerMonth, defaults.Tracker.DaysPerMonth),
			StoryPointFields: s.getStringSlice(keyTrackerSPFields, defaults.Tracker.StoryPointFields),
			GitHubOwner:      s.configStore.GetString(keyTrackerGitHubOwner),
			GitHubRepo:       s.configStore.GetString(keyTrackerGitHubRepo),
		},
		RedisAddr:   s.configStore.GetString(keyCacheRedisAddr),
		MetricsAddr: s.configStore.GetString(keyMetricsAddr),
	}
}

// applyEnv overlays environment variables. Overrides are never persisted.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	overlay := func(dst *string, name string) {
		if v := s.getenv(name); v != "" {
			*dst = v
		}
	}

	if settings.Tracker.Kind == domain.TrackerJira {
		overlay(&settings.Tracker.BaseURL, EnvJiraURL)
		overlay(&settings.Tracker.Username, EnvJiraUsername)
		overlay(&settings.Tracker.APIToken, EnvJiraAPIToken)
	} else {
		overlay(&settings.Tracker.APIToken, EnvGitHubToken)
	}

	switch settings.LLM.Provider {
	case domain.AIProviderOpenAI:
		overlay(&settings.LLM.APIKey, EnvOpenAIAPIKey)
	case domain.AIProviderAnthropic:
		overlay(&settings.LLM.APIKey, EnvAnthropicAPIKey)
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI {
		overlay(&settings.Embedding.APIKey, EnvOpenAIAPIKey)
	}
	overlay(&settings.RedisAddr, EnvRedisAddr)
}

// Save writes every section. Secrets are written only when set, so saving
// an env-derived view never blanks a stored key.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
		label string
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String(), "embedding provider"},
		{keyEmbedModel, settings.Embedding.Model, "embedding model"},
		{keyEmbedBaseURL, settings.Embedding.BaseURL, "embedding base_url"},
		{keyLLMProvider, settings.LLM.Provider.String(), "llm provider"},
		{keyLLMModel, settings.LLM.Model, "llm model"},
		{keyLLMBaseURL, settings.LLM.BaseURL, "llm base_url"},
		{keyRetrievalK, settings.Retrieval.K, "retrieval k"},
		{keyRetrievalFetchK, settings.Retrieval.FetchK, "retrieval fetch_k"},
		{keyRetrievalLambda, settings.Retrieval.MMRLambda, "retrieval mmr_lambda"},
		{keyRetrievalEpsilon, settings.Retrieval.FeedbackEpsilon, "retrieval feedback_epsilon"},
		{keyRetrievalConfidence, settings.Retrieval.CategoryConfidence, "retrieval category_confidence"},
		{keyRetrievalMinDocs, settings.Retrieval.MinDocs, "retrieval min_docs"},
		{keyRetrievalCacheTTL, settings.Retrieval.CacheTTL.String(), "retrieval cache_ttl"},
		{keyTrackerKind, string(settings.Tracker.Kind), "tracker kind"},
		{keyTrackerBaseURL, settings.Tracker.BaseURL, "tracker base_url"},
		{keyTrackerUsername, settings.Tracker.Username, "tracker username"},
		{keyTrackerProject, settings.Tracker.Project, "tracker project"},
		{keyTrackerMonthProjects, settings.Tracker.MonthProjects, "tracker month_projects"},
		{keyTrackerDaysPerMonth, settings.Tracker.DaysPerMonth, "tracker mm_to_days"},
		{keyTrackerSPFields, settings.Tracker.StoryPointFields, "tracker story_point_fields"},
		{keyTrackerGitHubOwner, settings.Tracker.GitHubOwner, "tracker github owner"},
		{keyTrackerGitHubRepo, settings.Tracker.GitHubRepo, "tracker github repo"},
		{keyCacheRedisAddr, settings.RedisAddr, "cache redis_addr"},
		{keyMetricsAddr, settings.MetricsAddr, "metrics addr"},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.label, err)
		}
	}

	secrets := []struct {
		key, value, label string
	}{
		{keyEmbedAPIKey, settings.Embedding.APIKey, "embedding api_key"},
		{keyLLMAPIKey, settings.LLM.APIKey, "llm api_key"},
		{keyTrackerAPIToken, settings.Tracker.APIToken, "tracker api_token"},
	}
	for _, v := range secrets {
		if v.value == "" {
			continue
		}
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.label, err)
		}
	}

	return nil
}

// SetEmbeddingProvider validates and stores the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.CanEmbed() {
		return fmt.Errorf("%w: %q cannot embed (choose from %v)",
			domain.ErrUnsupportedType, provider, domain.AllEmbeddingProviders())
	}
	settings := s.stored()
	e := &settings.Embedding
	if err := pickProvider(provider, model, apiKey, domain.DefaultEmbeddingModels(),
		&e.Provider, &e.Model, &e.BaseURL, &e.APIKey); err != nil {
		return err
	}
	return s.Save(settings)
}

// SetLLMProvider validates and stores the completion provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, provider)
	}
	settings := s.stored()
	l := &settings.LLM
	if err := pickProvider(provider, model, apiKey, domain.DefaultLLMModels(),
		&l.Provider, &l.Model, &l.BaseURL, &l.APIKey); err != nil {
		return err
	}
	return s.Save(settings)
}

// pickProvider writes a provider choice into one settings section. A local
// provider keeps its stored base URL or gets the Ollama default; a hosted
// one has it cleared and must come with a key.
func pickProvider(
	provider domain.AIProvider, model, apiKey string, defaults map[domain.AIProvider]string,
	dstProvider *domain.AIProvider, dstModel, dstBaseURL, dstKey *string,
) error {
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: %s needs an API key", domain.ErrInvalidInput, provider)
	}
	if model == "" {
		model = defaults[provider]
	}
	switch {
	case !provider.IsLocal():
		*dstBaseURL = ""
	case *dstBaseURL == "" || *dstProvider != provider:
		*dstBaseURL = ollamaBaseURL
	}
	*dstProvider = provider
	*dstModel = model
	*dstKey = apiKey
	return nil
}

// SetTracker configures the ticket tracker.
func (s *SettingsService) SetTracker(tracker domain.TrackerSettings) error {
	switch tracker.Kind {
	case domain.TrackerJira, domain.TrackerGitHub:
	default:
		return fmt.Errorf("%w: tracker %q", domain.ErrUnsupportedType, tracker.Kind)
	}
	if tracker.DaysPerMonth < 0 {
		return fmt.Errorf("%w: mm_to_days must not be negative", domain.ErrInvalidInput)
	}

	settings := s.stored()
	defaults := domain.DefaultAppSettings().Tracker
	if tracker.DaysPerMonth == 0 {
		tracker.DaysPerMonth = defaults.DaysPerMonth
	}
	if len(tracker.StoryPointFields) == 0 {
		tracker.StoryPointFields = settings.Tracker.StoryPointFields
	}
	if tracker.MonthProjects == nil {
		tracker.MonthProjects = settings.Tracker.MonthProjects
	}
	if tracker.APIToken == "" {
		tracker.APIToken = settings.Tracker.APIToken
	}
	settings.Tracker = tracker

	return s.Save(settings)
}

// Validate checks the retrieval bounds and that any chosen AI provider has
// what it needs.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	r := settings.Retrieval
	if r.K <= 0 || r.FetchK < r.K {
		return fmt.Errorf("%w: retrieval needs 0 < k <= fetch_k (k=%d fetch_k=%d)", domain.ErrInvalidInput, r.K, r.FetchK)
	}
	if r.MMRLambda < 0 || r.MMRLambda > 1 {
		return fmt.Errorf("%w: mmr_lambda must be within [0,1], got %g", domain.ErrInvalidInput, r.MMRLambda)
	}
	if r.FeedbackEpsilon <= 0 {
		return fmt.Errorf("%w: feedback_epsilon must be positive", domain.ErrInvalidInput)
	}

	if settings.Embedding.Provider != "" && !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %s is not fully configured", settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %s is not fully configured", settings.LLM.Provider)
	}

	return nil
}

// GetDefaults returns domain.DefaultAppSettings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig overlays scheduler.* keys on the default task table.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool(keySchedulerEnabled, cfg.Enabled)

	epic := cfg.TaskConfigs[domain.TaskIDCompletedEpicSync]
	epic.Schedule = s.getString(keySchedulerEpicSync, epic.Schedule)
	epic.Enabled = s.getBool(keySchedulerEpicEnabled, epic.Enabled)
	cfg.TaskConfigs[domain.TaskIDCompletedEpicSync] = epic

	reindex := cfg.TaskConfigs[domain.TaskIDEffortReindex]
	reindex.Schedule = s.getString(keySchedulerReindex, reindex.Schedule)
	reindex.Enabled = s.getBool(keySchedulerReindexOn, reindex.Enabled)
	cfg.TaskConfigs[domain.TaskIDEffortReindex] = reindex

	return cfg
}

// CheckEmbedding pings the embedding provider in the effective settings.
func (s *SettingsService) CheckEmbedding(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeEmbedding(ctx, &settings.Embedding)
}

// CheckLLM pings the LLM provider in the effective settings.
func (s *SettingsService) CheckLLM(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.probe.ProbeLLM(ctx, &settings.LLM)
}

// Typed reads that fall back to a default when the key is unset.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.configStore.GetFloat(key); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, ok := s.configStore.GetDuration(key); ok {
		return d
	}
	return defaultVal
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getTrackerKind(defaultVal domain.TrackerKind) domain.TrackerKind {
	switch kind := domain.TrackerKind(s.configStore.GetString(keyTrackerKind)); kind {
	case domain.TrackerJira, domain.TrackerGitHub:
		return kind
	default:
		return defaultVal
	}
}
