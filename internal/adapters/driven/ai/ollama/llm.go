package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLM)(nil)

const (
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures an LLM. Zero fields take the defaults above.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLM completes prompts with /api/generate, non-streaming.
type LLM struct {
	client
	model string
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options *generateTuning `json:"options,omitempty"`
}

type generateTuning struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// NewLLM makes no request until first use.
func NewLLM(cfg LLMConfig) *LLM {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLM{
		client: newClient(cfg.BaseURL, cfg.Timeout, domain.ErrLLMUnavailable),
		model:  cfg.Model,
	}
}

func (l *LLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{Model: l.model, Prompt: prompt, System: opts.System}
	// Without options the model's Modelfile defaults apply.
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		req.Options = &generateTuning{NumPredict: opts.MaxTokens, Temperature: opts.Temperature}
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := l.call(ctx, http.MethodPost, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

func (l *LLM) ModelName() string { return l.model }
func (l *LLM) Ping(ctx context.Context) error { return l.ping(ctx) }
func (l *LLM) Close() error { return nil }
