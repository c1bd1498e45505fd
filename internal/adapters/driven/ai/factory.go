// Package ai turns provider settings into the embedding and LLM ports.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/ai/anthropic"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/ai/ollama"
	"github.com/custodia-labs/effortqa/internal/adapters/driven/ai/openai"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/logger"
)

const (
	pingTimeout = 5 * time.Second
	fixHint     = "run 'effortqa config llm' or 'effortqa config embedding' to fix"
)

var embedders = map[domain.AIProvider]func(*domain.EmbeddingSettings, int) (driven.EmbeddingService, error){
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		return ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: s.BaseURL, Model: s.Model, Dimensions: dims}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings, dims int) (driven.EmbeddingService, error) {
		e, err := openai.NewEmbedder(openai.EmbedderConfig{
			APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model, Dimensions: dims,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	},
}

var llms = map[domain.AIProvider]func(*domain.LLMSettings) (driven.LLMService, error){
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return ollama.NewLLM(ollama.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		l, err := openai.NewLLM(openai.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return l, nil
	},
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.LLMService, error) {
		l, err := anthropic.NewLLM(anthropic.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return l, nil
	},
}

// Services are the AI ports available to the engine. Either may be nil:
// without embeddings only keyword answers work, and without an LLM
// semantic questions end in the not-found answer.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
	Warnings  []string
}

func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.LLM != nil {
		_ = s.LLM.Close()
	}
}

// Connect builds and pings both configured providers. A failure leaves
// that port nil and adds a warning; start-up continues.
func Connect(ctx context.Context, settings domain.AppSettings) *Services {
	out := &Services{}
	var err error

	if out.Embedding, err = ConnectEmbedding(ctx, &settings.Embedding); err != nil {
		logger.Warn("embedding disabled: %v", err)
		out.Warnings = append(out.Warnings, err.Error())
	}
	if out.LLM, err = ConnectLLM(ctx, &settings.LLM); err != nil {
		logger.Warn("LLM disabled: %v", err)
		out.Warnings = append(out.Warnings, err.Error())
	}
	return out
}

// NewEmbedding builds the configured embedding adapter without contacting
// it. It returns nil, nil when no provider is configured.
func NewEmbedding(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if s == nil {
		return nil, nil
	}
	if s.Provider == domain.AIProviderAnthropic {
		return nil, fmt.Errorf("%w: anthropic has no embeddings, use ollama or openai", domain.ErrUnsupportedType)
	}
	if !s.IsConfigured() {
		return nil, nil
	}
	build, ok := embedders[s.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, s.Provider)
	}
	return build(s, domain.EmbeddingDimensions()[s.Model])
}

// NewLLM builds the configured LLM adapter without contacting it. It
// returns nil, nil when no provider is configured.
func NewLLM(s *domain.LLMSettings) (driven.LLMService, error) {
	if s == nil || !s.IsConfigured() {
		return nil, nil
	}
	build, ok := llms[s.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, s.Provider)
	}
	return build(s)
}

// ConnectEmbedding is NewEmbedding followed by a ping.
func ConnectEmbedding(ctx context.Context, s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := NewEmbedding(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}
	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w); %s", domain.ErrEmbeddingUnavailable, s.Provider, err, fixHint)
	}
	return svc, nil
}

// ConnectLLM is NewLLM followed by a ping.
func ConnectLLM(ctx context.Context, s *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := NewLLM(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w; %s", domain.ErrLLMUnavailable, err, fixHint)
	}
	if svc == nil {
		return nil, nil
	}
	if err := ping(ctx, svc.Ping); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w); %s", domain.ErrLLMUnavailable, s.Provider, err, fixHint)
	}
	return svc, nil
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
