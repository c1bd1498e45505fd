package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// AnswerCache holds recent semantic answers keyed by normalised question.
// Failures are non-fatal: callers treat errors as misses.
type AnswerCache interface {
	// Get returns the cached result and true on a hit.
	Get(ctx context.Context, key string) (*domain.ResolveResult, bool, error)

	// Set stores a result for ttl.
	Set(ctx context.Context, key string, result *domain.ResolveResult, ttl time.Duration) error

	// Flush drops every cached answer.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}
