package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure TaxonomyStore implements the interface.
var _ driven.TaxonomyStore = (*TaxonomyStore)(nil)

// TaxonomyStore is an in-memory implementation of driven.TaxonomyStore.
type TaxonomyStore struct {
	mu       sync.RWMutex
	taxonomy *domain.Taxonomy
}

// NewTaxonomyStore creates a store holding t, or the default taxonomy when nil.
func NewTaxonomyStore(t *domain.Taxonomy) *TaxonomyStore {
	if t == nil {
		t = domain.DefaultTaxonomy()
	}
	return &TaxonomyStore{taxonomy: t.Clone()}
}

// Load returns a copy of the stored taxonomy.
func (s *TaxonomyStore) Load() (*domain.Taxonomy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taxonomy.Clone(), nil
}

// Save replaces the stored taxonomy.
func (s *TaxonomyStore) Save(t *domain.Taxonomy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxonomy = t.Clone()
	return nil
}

// Watch blocks until ctx is cancelled. Nothing changes an in-memory
// taxonomy from outside the process.
func (s *TaxonomyStore) Watch(ctx context.Context, _ func(*domain.Taxonomy)) error {
	<-ctx.Done()
	return nil
}
