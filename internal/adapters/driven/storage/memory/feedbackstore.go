package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure FeedbackStore implements the interface.
var _ driven.FeedbackStore = (*FeedbackStore)(nil)

// FeedbackStore is an in-memory implementation of driven.FeedbackStore.
type FeedbackStore struct {
	mu      sync.RWMutex
	records map[string]domain.FeedbackRecord
	order   []string
}

// NewFeedbackStore creates a new in-memory feedback store.
func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{
		records: make(map[string]domain.FeedbackRecord),
	}
}

// Get retrieves a record by hash.
func (s *FeedbackStore) Get(_ context.Context, qaHash string) (*domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[qaHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneFeedback(rec), nil
}

// Save inserts or replaces a record.
func (s *FeedbackStore) Save(_ context.Context, rec *domain.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.QAHash]; !ok {
		s.order = append(s.order, rec.QAHash)
	}
	s.records[rec.QAHash] = *cloneFeedback(*rec)
	return nil
}

// SetPolarity flips the polarity of an existing record.
func (s *FeedbackStore) SetPolarity(_ context.Context, qaHash string, polarity domain.Polarity, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[qaHash]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Polarity = polarity
	rec.LastSeenAt = seenAt
	s.records[qaHash] = rec
	return nil
}

// Delete removes a record.
func (s *FeedbackStore) Delete(_ context.Context, qaHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[qaHash]; !ok {
		return nil
	}
	delete(s.records, qaHash)
	s.order = slices.DeleteFunc(s.order, func(h string) bool { return h == qaHash })
	return nil
}

// List returns records with the given polarity in insertion order.
func (s *FeedbackStore) List(_ context.Context, polarity domain.Polarity) ([]domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.FeedbackRecord
	for _, h := range s.order {
		rec := s.records[h]
		if polarity == "" || rec.Polarity == polarity {
			out = append(out, *cloneFeedback(rec))
		}
	}
	return out, nil
}

// CountSince counts records of a polarity last seen at or after since.
func (s *FeedbackStore) CountSince(_ context.Context, polarity domain.Polarity, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if rec.Polarity == polarity && !rec.LastSeenAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func cloneFeedback(rec domain.FeedbackRecord) *domain.FeedbackRecord {
	rec.Sources = slices.Clone(rec.Sources)
	rec.ObservedBy = slices.Clone(rec.ObservedBy)
	return &rec
}
