package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure EffortStore implements the interface.
var _ driven.EffortStore = (*EffortStore)(nil)

// EffortStore is an in-memory implementation of driven.EffortStore.
type EffortStore struct {
	mu      sync.RWMutex
	records map[string]domain.EffortRecord
	order   []string
}

// NewEffortStore creates a new in-memory effort store.
func NewEffortStore() *EffortStore {
	return &EffortStore{
		records: make(map[string]domain.EffortRecord),
	}
}

// Upsert inserts or replaces a record.
func (s *EffortStore) Upsert(_ context.Context, rec *domain.EffortRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.TicketID]; !ok {
		s.order = append(s.order, rec.TicketID)
	}
	s.records[rec.TicketID] = *rec
	return nil
}

// Get retrieves a record by ticket ID.
func (s *EffortStore) Get(_ context.Context, ticketID string) (*domain.EffortRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[ticketID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// List returns every record in insertion order.
func (s *EffortStore) List(_ context.Context) ([]domain.EffortRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.EffortRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out, nil
}

// Count returns the number of records.
func (s *EffortStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// UpdateCategory replaces a record's category triple.
func (s *EffortStore) UpdateCategory(_ context.Context, ticketID string, category domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ticketID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Category = category
	s.records[ticketID] = rec
	return nil
}

// UpdateProject sets a record's parent epic.
func (s *EffortStore) UpdateProject(_ context.Context, ticketID, projectKey, projectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ticketID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ProjectKey = projectKey
	rec.ProjectName = projectName
	s.records[ticketID] = rec
	return nil
}

// SearchTitle returns records whose title contains term, case-insensitively.
func (s *EffortStore) SearchTitle(_ context.Context, term string) ([]domain.EffortRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(term)
	var out []domain.EffortRecord
	for _, id := range s.order {
		rec := s.records[id]
		if strings.Contains(strings.ToLower(rec.Title), needle) {
			out = append(out, rec)
		}
	}
	return out, nil
}
