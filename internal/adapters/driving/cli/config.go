package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and configure AI providers and the ticket tracker.

Settings are stored in ~/.effortqa/config.toml. JIRA_URL, JIRA_USERNAME,
JIRA_API_TOKEN, OPENAI_API_KEY and ANTHROPIC_API_KEY override the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for semantic retrieval.`,
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to write answers and project synopses.`,
	RunE:  runConfigLLM,
}

var configTrackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Configure the ticket tracker",
	Long: `Configure the tracker tickets are imported from.

Jira needs a base URL, a username and an API token. GitHub needs a token and
the owner/repo that holds the issues. The token is read without echo.`,
	RunE: runConfigTracker,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configTrackerCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())

	cmd.Println("[Retrieval]")
	r := settings.Retrieval
	cmd.Printf("  k: %d (fetch %d, lambda %.2f)\n", r.K, r.FetchK, r.MMRLambda)
	cmd.Printf("  Feedback epsilon: %.3f\n", r.FeedbackEpsilon)
	cmd.Printf("  Category confidence: %.2f\n", r.CategoryConfidence)
	cmd.Printf("  Cache TTL: %s\n", r.CacheTTL)
	cmd.Println()

	cmd.Println("[Tracker]")
	t := settings.Tracker
	cmd.Printf("  Kind: %s\n", t.Kind)
	switch t.Kind {
	case domain.TrackerGitHub:
		cmd.Printf("  Repository: %s/%s\n", t.GitHubOwner, t.GitHubRepo)
	default:
		cmd.Printf("  Base URL: %s\n", t.BaseURL)
		cmd.Printf("  Username: %s\n", t.Username)
	}
	if t.APIToken != "" {
		cmd.Printf("  Token: %s\n", maskAPIKey(t.APIToken))
	} else {
		cmd.Printf("  Token: (not set)\n")
	}
	if t.Project != "" {
		cmd.Printf("  Project: %s\n", t.Project)
	}
	cmd.Printf("  M/M projects: %s (x%s days)\n", strings.Join(t.MonthProjects, ", "), domain.FormatEffort(t.DaysPerMonth))
	cmd.Println()

	if settings.RedisAddr != "" || settings.MetricsAddr != "" {
		cmd.Println("[Services]")
		if settings.RedisAddr != "" {
			cmd.Printf("  Redis: %s\n", settings.RedisAddr)
		}
		if settings.MetricsAddr != "" {
			cmd.Printf("  Metrics: %s\n", settings.MetricsAddr)
		}
		cmd.Println()
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'effortqa config llm' and 'effortqa config embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() && baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureProvider(cmd, reader, providerStep{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		validate:  settingsService.CheckEmbedding,
	})
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureProvider(cmd, reader, providerStep{
		label:     "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		set:       settingsService.SetLLMProvider,
		validate:  settingsService.CheckLLM,
	})
}

// providerStep describes one interactive provider configuration.
type providerStep struct {
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	validate  func(context.Context) error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, step providerStep) error {
	cmd.Printf("Select %s Provider\n", step.label)
	for i, p := range step.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(step.providers), 1)
	selected := step.providers[idx-1]

	defaultModel := step.defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := step.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", step.label, err)
	}

	cmd.Print("Validating configuration... ")
	if err := step.validate(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", step.label, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", step.label, selected.Description(), model)
	return nil
}

func runConfigTracker(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}

	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("reading settings: %w", err)
	}
	tracker := current.Tracker

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Tracker")
	kinds := []domain.TrackerKind{domain.TrackerJira, domain.TrackerGitHub}
	for i, k := range kinds {
		cmd.Printf("  %d. %s\n", i+1, k)
	}
	cmd.Print("\nEnter choice [1]: ")
	tracker.Kind = kinds[parseChoice(readLine(reader), len(kinds), 1)-1]

	switch tracker.Kind {
	case domain.TrackerGitHub:
		tracker.GitHubOwner = prompt(cmd, reader, "Repository owner", tracker.GitHubOwner)
		tracker.GitHubRepo = prompt(cmd, reader, "Repository name", tracker.GitHubRepo)
	default:
		tracker.BaseURL = prompt(cmd, reader, "Jira base URL", tracker.BaseURL)
		tracker.Username = prompt(cmd, reader, "Username (email)", tracker.Username)
		tracker.Project = prompt(cmd, reader, "Project key for completed epics (optional)", tracker.Project)
	}

	cmd.Print("API token (leave empty to keep current): ")
	if token := readSecret(cmd, reader); token != "" {
		tracker.APIToken = token
	}
	cmd.Println()

	days := prompt(cmd, reader, "Days per man-month", domain.FormatEffort(tracker.DaysPerMonth))
	if v, err := strconv.ParseFloat(days, 64); err == nil {
		tracker.DaysPerMonth = v
	}

	if err := settingsService.SetTracker(tracker); err != nil {
		return fmt.Errorf("failed to configure tracker: %w", err)
	}
	cmd.Printf("Tracker configured: %s\n", tracker.Kind)
	return nil
}

// prompt reads one line, returning current when the input is empty.
func prompt(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, current)
	} else {
		cmd.Printf("%s: ", label)
	}
	if v := readLine(reader); v != "" {
		return v
	}
	return current
}

// Helper functions.

// readLine treats EOF as an empty answer, which selects the default.
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo when the command input is a terminal,
// otherwise from reader.
func readSecret(cmd *cobra.Command, reader *bufio.Reader) string {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
