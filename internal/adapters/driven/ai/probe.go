package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.ProviderProbe = (*Probe)(nil)

// DefaultProbeTimeout bounds one provider check.
const DefaultProbeTimeout = 15 * time.Second

// Probe builds the configured service, pings it and closes it again.
// `effortqa config llm` and `config embedding` run it before reporting OK.
type Probe struct {
	timeout time.Duration
}

// NewProbe returns a probe; a non-positive timeout uses DefaultProbeTimeout.
func NewProbe(timeout time.Duration) *Probe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Probe{timeout: timeout}
}

// ProbeEmbedding pings the embedding provider.
func (p *Probe) ProbeEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	svc, err := ConnectEmbedding(ctx, settings)
	if svc != nil {
		_ = svc.Close()
	}
	return err
}

// ProbeLLM pings the LLM provider.
func (p *Probe) ProbeLLM(ctx context.Context, settings *domain.LLMSettings) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	svc, err := ConnectLLM(ctx, settings)
	if svc != nil {
		_ = svc.Close()
	}
	return err
}
