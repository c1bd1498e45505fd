package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure TaxonomyService implements the interface.
var _ driving.TaxonomyService = (*TaxonomyService)(nil)

// reindexer refreshes the vector index for changed records.
type reindexer interface {
	Reindex(ctx context.Context, ticketIDs ...string) error
}

// TaxonomyService owns the live category taxonomy. Reads are served from
// memory; every mutation is persisted before it becomes visible.
type TaxonomyService struct {
	store   driven.TaxonomyStore
	efforts driven.EffortStore
	index   reindexer

	mu      sync.RWMutex
	current *domain.Taxonomy
}

// NewTaxonomyService loads the taxonomy from store.
func NewTaxonomyService(store driven.TaxonomyStore, efforts driven.EffortStore) (*TaxonomyService, error) {
	t, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	if t == nil {
		t = domain.DefaultTaxonomy()
	}
	return &TaxonomyService{store: store, efforts: efforts, current: t}, nil
}

// SetReindexer sets the service that refreshes the index after records
// are relabelled.
func (s *TaxonomyService) SetReindexer(r reindexer) {
	s.index = r
}

// Get returns a copy of the current taxonomy.
func (s *TaxonomyService) Get() *domain.Taxonomy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// List returns every complete triple.
func (s *TaxonomyService) List() []domain.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Categories()
}

// Validate checks c against the current taxonomy.
func (s *TaxonomyService) Validate(c domain.Category) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Validate(c)
}

// Add inserts a triple.
func (s *TaxonomyService) Add(c domain.Category) error {
	c = domain.NewCategory(c.Major, c.Minor, c.Sub)
	return s.mutate(func(t *domain.Taxonomy) error { return t.Add(c) })
}

// Update replaces old with updated. Records carrying old are moved to
// updated; call Migrate for anything left invalid.
func (s *TaxonomyService) Update(old, updated domain.Category) error {
	updated = domain.NewCategory(updated.Major, updated.Minor, updated.Sub)
	if err := s.mutate(func(t *domain.Taxonomy) error { return t.Replace(old, updated) }); err != nil {
		return err
	}
	if s.efforts == nil {
		return nil
	}
	ctx := context.Background()
	n, err := s.relabel(ctx, func(c domain.Category) (domain.Category, bool) {
		return updated, c == old
	})
	if n > 0 {
		logger.Info("taxonomy: moved %d records from %s to %s", n, old, updated)
	}
	return err
}

// Remove deletes a triple.
func (s *TaxonomyService) Remove(c domain.Category) error {
	return s.mutate(func(t *domain.Taxonomy) error { return t.Remove(c) })
}

// Migrate resets stored records whose category no longer resolves.
func (s *TaxonomyService) Migrate(ctx context.Context) (int, error) {
	if s.efforts == nil {
		return 0, nil
	}
	n, err := s.relabel(ctx, func(c domain.Category) (domain.Category, bool) {
		return domain.Unclassified(), s.Validate(c) != nil
	})
	logger.Info("taxonomy: migrated %d records to unclassified", n)
	return n, err
}

// Watch follows external edits to the taxonomy until ctx is cancelled.
func (s *TaxonomyService) Watch(ctx context.Context) error {
	return s.store.Watch(ctx, func(t *domain.Taxonomy) {
		if t == nil {
			return
		}
		s.mu.Lock()
		s.current = t.Clone()
		s.mu.Unlock()
		logger.Info("taxonomy: reloaded version %d", t.Version)
	})
}

func (s *TaxonomyService) mutate(fn func(*domain.Taxonomy) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if next.Version == s.current.Version {
		return nil
	}
	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("%w: save taxonomy: %w", domain.ErrPersistence, err)
	}
	s.current = next
	logger.Debug("taxonomy: now at version %d", next.Version)
	return nil
}

// relabel rewrites the category of every record for which fn reports true.
func (s *TaxonomyService) relabel(
	ctx context.Context,
	fn func(domain.Category) (domain.Category, bool),
) (int, error) {
	records, err := s.efforts.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: list records: %w", domain.ErrPersistence, err)
	}

	var changed []string
	var errs []error
	for i := range records {
		rec := &records[i]
		if rec.Category.IsUnclassified() {
			continue
		}
		next, ok := fn(rec.Category)
		if !ok {
			continue
		}
		if err := s.efforts.UpdateCategory(ctx, rec.TicketID, next); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rec.TicketID, err))
			continue
		}
		changed = append(changed, rec.TicketID)
	}

	if len(changed) > 0 && s.index != nil {
		if err := s.index.Reindex(ctx, changed...); err != nil {
			logger.Warn("taxonomy: reindex after relabel failed: %v", err)
			errs = append(errs, err)
		}
	}
	return len(changed), errors.Join(errs...)
}
