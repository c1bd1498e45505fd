package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure StatsService implements the interface.
var _ driving.StatsService = (*StatsService)(nil)

// StatsService combines effort, feedback and index statistics.
type StatsService struct {
	efforts  driving.EffortService
	feedback driving.FeedbackService
	index    driven.VectorIndex
}

// NewStatsService creates a stats service. index may be nil.
func NewStatsService(efforts driving.EffortService, feedback driving.FeedbackService, index driven.VectorIndex) *StatsService {
	return &StatsService{efforts: efforts, feedback: feedback, index: index}
}

// Overview returns effort, feedback and index statistics as of now.
func (s *StatsService) Overview(ctx context.Context, now time.Time) (*driving.Overview, error) {
	effort, err := s.efforts.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("effort stats: %w", err)
	}
	out := &driving.Overview{Effort: effort}

	if s.feedback != nil {
		if out.Feedback, err = s.feedback.WeeklyAcceptance(ctx, now); err != nil {
			return nil, fmt.Errorf("feedback stats: %w", err)
		}
		accepted, err := s.feedback.List(ctx, domain.PolarityAccepted)
		if err != nil {
			return nil, fmt.Errorf("list accepted feedback: %w", err)
		}
		rejected, err := s.feedback.List(ctx, domain.PolarityRejected)
		if err != nil {
			return nil, fmt.Errorf("list rejected feedback: %w", err)
		}
		out.Accepted = len(accepted)
		out.Rejected = len(rejected)
	}

	if s.index != nil {
		n, err := s.index.Count(ctx)
		if err != nil {
			logger.Warn("stats: index count failed: %v", err)
		}
		out.IndexDocuments = n
	}
	return out, nil
}
