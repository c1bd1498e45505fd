package driven

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// TaxonomyStore persists the category taxonomy.
type TaxonomyStore interface {
	// Load returns the stored taxonomy, or the default when none exists.
	Load() (*domain.Taxonomy, error)

	// Save persists the taxonomy.
	Save(t *domain.Taxonomy) error

	// Watch calls onChange whenever the stored taxonomy changes outside
	// this process. It blocks until ctx is cancelled.
	Watch(ctx context.Context, onChange func(*domain.Taxonomy)) error
}
