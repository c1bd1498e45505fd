package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// EpicAggregator rolls effort records up by parent project.
type EpicAggregator interface {
	// Aggregate returns one group per matching project, or nil when nothing matched.
	Aggregate(ctx context.Context, keyword string) ([]domain.EpicGroup, error)

	// Render formats groups as a plain-text report headed by the keyword.
	Render(keyword string, groups []domain.EpicGroup) string
}
