package driven

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// ProviderProbe checks that provider settings work before they are relied
// on. A nil or provider-less settings value is not an error.
type ProviderProbe interface {
	ProbeEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error
	ProbeLLM(ctx context.Context, settings *domain.LLMSettings) error
}
