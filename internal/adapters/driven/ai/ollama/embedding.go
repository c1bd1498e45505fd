package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*Embedder)(nil)

const (
	DefaultEmbeddingModel      = "nomic-embed-text"
	DefaultEmbeddingTimeout    = 30 * time.Second
	DefaultEmbeddingDimensions = 768
	DefaultConcurrency         = 4
)

// EmbedderConfig configures an Embedder. Zero fields take the defaults
// above; Dimensions should match Model.
type EmbedderConfig struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Dimensions  int
	Concurrency int
}

// Embedder embeds one text per /api/embeddings request. Batches fan out
// over at most Concurrency requests at a time.
type Embedder struct {
	client
	model       string
	dimensions  int
	concurrency int
}

func NewEmbedder(cfg EmbedderConfig) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultEmbeddingTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultEmbeddingDimensions
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Embedder{
		client:      newClient(cfg.BaseURL, cfg.Timeout, domain.ErrEmbeddingUnavailable),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		concurrency: cfg.Concurrency,
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{e.model, text}

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := e.call(ctx, http.MethodPost, "/api/embeddings", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: ollama: %s returned an empty embedding", domain.ErrEmbeddingUnavailable, e.model)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedder) Dimensions() int { return e.dimensions }
func (e *Embedder) ModelName() string { return e.model }
func (e *Embedder) Ping(ctx context.Context) error { return e.ping(ctx) }
func (e *Embedder) Close() error { return nil }
