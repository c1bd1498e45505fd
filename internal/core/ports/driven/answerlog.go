package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// AnswerLog records every served answer for acceptance statistics.
type AnswerLog interface {
	// Append records one served answer.
	Append(ctx context.Context, entry *domain.AnswerLogEntry) error

	// CountSince counts answers served at or after since, excluding rejected queries.
	CountSince(ctx context.Context, since time.Time) (int, error)

	// Recent returns the most recent entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.AnswerLogEntry, error)
}
