package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// TaxonomyService manages the closed category taxonomy.
type TaxonomyService interface {
	// Get returns a copy of the current taxonomy.
	Get() *domain.Taxonomy

	// List returns every complete category triple.
	List() []domain.Category

	// Add inserts a triple.
	Add(c domain.Category) error

	// Update replaces one triple with another.
	Update(old, updated domain.Category) error

	// Remove deletes a triple.
	Remove(c domain.Category) error

	// Validate checks that c is unclassified or present in the taxonomy.
	Validate(c domain.Category) error

	// Migrate resets stored records with invalid categories to unclassified.
	Migrate(ctx context.Context) (int, error)
}
