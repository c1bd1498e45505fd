// Package anthropic completes prompts with the Anthropic Messages API
// through the official SDK. Anthropic offers no embeddings.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLM)(nil)

const (
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens fills a zero GenerateOptions.MaxTokens; the API
	// rejects requests without one.
	DefaultMaxTokens = 1024
)

// Config configures an LLM. APIKey is required; an empty BaseURL uses the
// SDK's endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type LLM struct {
	client anthropic.Client
	model  string
}

func NewLLM(cfg Config) (*LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", domain.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithRequestTimeout(cfg.Timeout)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &LLM{client: anthropic.NewClient(opts...), model: cfg.Model}, nil
}

// Generate joins the text blocks of the reply.
func (l *LLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	msg, err := l.client.Messages.New(ctx, l.params(prompt, opts))
	if err != nil {
		return "", fmt.Errorf("%w: anthropic: %w", domain.ErrLLMUnavailable, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic: reply has no text (stop reason %s)", domain.ErrLLMUnavailable, msg.StopReason)
	}
	return strings.TrimSpace(text.String()), nil
}

func (l *LLM) params(prompt string, opts driven.GenerateOptions) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:     anthropic.Model(l.model),
		MaxTokens: DefaultMaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
	if opts.MaxTokens > 0 {
		p.MaxTokens = int64(opts.MaxTokens)
	}
	if opts.System != "" {
		p.System = []anthropic.TextBlockParam{{Text: opts.System}}
	}
	if opts.Temperature > 0 {
		p.Temperature = anthropic.Float(opts.Temperature)
	}
	return p
}

func (l *LLM) ModelName() string { return l.model }

// Ping lists one model, which checks the key without inference.
func (l *LLM) Ping(ctx context.Context) error {
	if _, err := l.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}); err != nil {
		return fmt.Errorf("%w: anthropic: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}

func (l *LLM) Close() error { return nil }
