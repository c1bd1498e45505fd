package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

// mockResolver is a mock implementation of driving.Resolver.
type mockResolver struct {
	result   *domain.ResolveResult
	excluded []string
}

func (m *mockResolver) Resolve(_ context.Context, question string) *domain.ResolveResult {
	if m.result != nil {
		return m.result
	}
	return &domain.ResolveResult{Question: question, Answer: domain.MsgNotFound, State: domain.StateNoAnswer}
}

func (m *mockResolver) ResolveExcluding(ctx context.Context, question string, exclude []string) *domain.ResolveResult {
	m.excluded = exclude
	return m.Resolve(ctx, question)
}

// mockFeedbackService records submissions. Unused methods panic via the nil embed.
type mockFeedbackService struct {
	driving.FeedbackService
	submissions []domain.FeedbackSubmission
	err         error
}

func (m *mockFeedbackService) Record(_ context.Context, sub domain.FeedbackSubmission) (*domain.FeedbackOutcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.submissions = append(m.submissions, sub)
	return &domain.FeedbackOutcome{
		QAHash: domain.QAHash(sub.Question, sub.Answer),
		IsNew:  len(m.submissions) == 1,
		Count:  len(m.submissions),
	}, nil
}

// mockEpicAggregator is a mock implementation of driving.EpicAggregator.
type mockEpicAggregator struct {
	groups []domain.EpicGroup
	err    error
}

func (m *mockEpicAggregator) Aggregate(_ context.Context, _ string) ([]domain.EpicGroup, error) {
	return m.groups, m.err
}

func (m *mockEpicAggregator) Render(keyword string, groups []domain.EpicGroup) string {
	return keyword + " report"
}

// mockStatsService is a mock implementation of driving.StatsService.
type mockStatsService struct {
	overview *driving.Overview
	err      error
}

func (m *mockStatsService) Overview(_ context.Context, _ time.Time) (*driving.Overview, error) {
	return m.overview, m.err
}

// mockEffortService serves Get from a map. Unused methods panic via the nil embed.
type mockEffortService struct {
	driving.EffortService
	records map[string]domain.EffortRecord
	err     error
}

func (m *mockEffortService) Get(_ context.Context, id string) (*domain.EffortRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// mockTaxonomyService serves a fixed taxonomy. Unused methods panic via the nil embed.
type mockTaxonomyService struct {
	driving.TaxonomyService
	taxonomy *domain.Taxonomy
}

func (m *mockTaxonomyService) Get() *domain.Taxonomy {
	return m.taxonomy.Clone()
}
