package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// Resolver answers free-text effort questions.
// Resolve never returns an error: every failure is expressed in the result.
type Resolver interface {
	// Resolve runs the full resolution pipeline for one question.
	Resolve(ctx context.Context, question string) *domain.ResolveResult

	// ResolveExcluding re-asks a question while dropping the named tickets
	// from semantic retrieval. Feedback lookup is skipped.
	ResolveExcluding(ctx context.Context, question string, excludeTickets []string) *domain.ResolveResult
}
