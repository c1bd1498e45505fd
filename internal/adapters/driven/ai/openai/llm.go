package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLM)(nil)

const (
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures an LLM. APIKey is required.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLM sends each prompt as a one-turn /chat/completions conversation.
type LLM struct {
	client
	model string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

func NewLLM(cfg LLMConfig) (*LLM, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	c, err := newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout, domain.ErrLLMUnavailable)
	if err != nil {
		return nil, err
	}
	return &LLM{client: c, model: cfg.Model}, nil
}

func (l *LLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatRequest{Model: l.model, MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}
	if opts.System != "" {
		req.Messages = append(req.Messages, message{Role: "system", Content: opts.System})
	}
	req.Messages = append(req.Messages, message{Role: "user", Content: prompt})

	var resp struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := l.call(ctx, http.MethodPost, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: %s returned no choices", domain.ErrLLMUnavailable, l.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (l *LLM) ModelName() string { return l.model }
func (l *LLM) Ping(ctx context.Context) error { return l.ping(ctx) }
func (l *LLM) Close() error { return nil }
