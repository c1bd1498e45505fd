package domain

import (
	"slices"
	"time"
)

// AIProvider names a backend for embeddings or completions.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// providerInfo describes what a provider offers. An empty embedModel means
// the provider has no embedding endpoint.
type providerInfo struct {
	label      string
	local      bool
	embedModel string
	llmModel   string
}

var providers = map[AIProvider]providerInfo{
	AIProviderOllama:    {label: "Ollama (local)", local: true, embedModel: "nomic-embed-text", llmModel: "llama3.2"},
	AIProviderOpenAI:    {label: "OpenAI (cloud)", embedModel: "text-embedding-3-small", llmModel: "gpt-4o-mini"},
	AIProviderAnthropic: {label: "Anthropic (cloud)", llmModel: "claude-3-5-sonnet-latest"},
}

// providerOrder fixes the order providers are offered in menus.
var providerOrder = []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}

func (p AIProvider) String() string { return string(p) }

// IsValid reports whether p is a known provider.
func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

// IsLocal reports whether p runs on this machine. Local providers take a
// base URL instead of an API key.
func (p AIProvider) IsLocal() bool { return providers[p].local }

// RequiresAPIKey is true for every known hosted provider.
func (p AIProvider) RequiresAPIKey() bool { return p.IsValid() && !p.IsLocal() }

// CanEmbed reports whether p serves embeddings.
func (p AIProvider) CanEmbed() bool { return providers[p].embedModel != "" }

// Description is the menu label, or "Unknown".
func (p AIProvider) Description() string {
	if info, ok := providers[p]; ok {
		return info.label
	}
	return "Unknown"
}

// AllEmbeddingProviders lists the providers that serve embeddings.
func AllEmbeddingProviders() []AIProvider {
	var out []AIProvider
	for _, p := range providerOrder {
		if p.CanEmbed() {
			out = append(out, p)
		}
	}
	return out
}

// AllLLMProviders lists every provider; all of them serve completions.
func AllLLMProviders() []AIProvider { return slices.Clone(providerOrder) }

// DefaultEmbeddingModels maps each embedding provider to its default model.
func DefaultEmbeddingModels() map[AIProvider]string {
	out := make(map[AIProvider]string)
	for p, info := range providers {
		if info.embedModel != "" {
			out[p] = info.embedModel
		}
	}
	return out
}

// DefaultLLMModels maps each provider to its default completion model.
func DefaultLLMModels() map[AIProvider]string {
	out := make(map[AIProvider]string, len(providers))
	for p, info := range providers {
		out[p] = info.llmModel
	}
	return out
}

// EmbeddingDimensions gives vector lengths for models whose size is known.
// The vector index refuses vectors of any other length.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// EmbeddingSettings selects the model that embeds records, accepted
// answers and questions. BaseURL applies to local providers only.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether an embedder can be built from e.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider.CanEmbed() && (!e.Provider.RequiresAPIKey() || e.APIKey != "")
}

// LLMSettings selects the completion model used for answers, synopses
// and category hints.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether a client can be built from l.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && (!l.Provider.RequiresAPIKey() || l.APIKey != "")
}

// RetrievalSettings tunes semantic retrieval and the feedback gate.
type RetrievalSettings struct {
	// K is the number of diverse results kept after MMR.
	K int

	// FetchK is the candidate pool size fetched before MMR.
	FetchK int

	// MMRLambda balances relevance (1.0) against diversity (0.0).
	MMRLambda float64

	// FeedbackEpsilon is the maximum vector distance for a semantic feedback hit.
	FeedbackEpsilon float64

	// CategoryConfidence is the classifier confidence above which
	// retrieval is filtered by the predicted category.
	CategoryConfidence float64

	// MinDocs is the document count below which the next rewrite strategy is tried.
	MinDocs int

	// CacheTTL is how long a semantic answer stays cached. Zero disables caching.
	CacheTTL time.Duration
}

// TrackerKind identifies the external ticket tracker.
type TrackerKind string

// Supported trackers.
const (
	TrackerJira   TrackerKind = "jira"
	TrackerGitHub TrackerKind = "github"
)

// TrackerSettings configures the external ticket tracker.
type TrackerSettings struct {
	Kind     TrackerKind
	BaseURL  string
	Username string
	APIToken string

	// Project limits completed-epic discovery to one project key.
	Project string

	// MonthProjects lists project keys whose estimates are in M/M.
	MonthProjects []string

	// DaysPerMonth converts M/M estimates into effort-days.
	DaysPerMonth float64

	// StoryPointFields is the field-priority list for estimate extraction.
	StoryPointFields []string

	// GitHubOwner and GitHubRepo select the repository for the GitHub tracker.
	GitHubOwner string
	GitHubRepo  string
}

// IsConfigured returns true if enough is set to reach the tracker.
func (t TrackerSettings) IsConfigured() bool {
	switch t.Kind {
	case TrackerJira:
		return t.BaseURL != "" && t.APIToken != ""
	case TrackerGitHub:
		return t.APIToken != "" && t.GitHubOwner != "" && t.GitHubRepo != ""
	default:
		return false
	}
}

// AppSettings is the effective content of config.toml.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Retrieval RetrievalSettings
	Tracker   TrackerSettings

	// RedisAddr selects the redis answer cache. Empty uses memory.
	RedisAddr string

	// MetricsAddr is the listen address for the Prometheus handler.
	MetricsAddr string
}

// DefaultStoryPointFields is the default story-point field priority.
func DefaultStoryPointFields() []string {
	return []string{
		"customfield_10105",
		"customfield_10016",
		"customfield_10020",
		"customfield_10021",
		"customfield_10014",
		"customfield_10015",
		"customfield_10017",
		"customfield_10019",
	}
}

// DefaultAppSettings leaves both AI providers unset; ask then answers from
// exact and keyword matches only.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			K:                  12,
			FetchK:             40,
			MMRLambda:          0.5,
			FeedbackEpsilon:    0.1,
			CategoryConfidence: 0.2,
			MinDocs:            3,
			CacheTTL:           10 * time.Minute,
		},
		Tracker: TrackerSettings{
			Kind:             TrackerJira,
			MonthProjects:    []string{"WORK"},
			DaysPerMonth:     20,
			StoryPointFields: DefaultStoryPointFields(),
		},
	}
}
