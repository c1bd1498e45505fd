package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// FeedbackStore persists feedback records. QAHash is the primary key, so
// a hash can only ever hold one polarity.
type FeedbackStore interface {
	// Get retrieves a record by hash. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, qaHash string) (*domain.FeedbackRecord, error)

	// Save inserts or replaces a record by hash.
	Save(ctx context.Context, rec *domain.FeedbackRecord) error

	// SetPolarity flips the polarity of an existing record and touches LastSeenAt.
	SetPolarity(ctx context.Context, qaHash string, polarity domain.Polarity, seenAt time.Time) error

	// Delete removes a record. Unknown hashes are ignored.
	Delete(ctx context.Context, qaHash string) error

	// List returns records with the given polarity, oldest first.
	// An empty polarity lists every record.
	List(ctx context.Context, polarity domain.Polarity) ([]domain.FeedbackRecord, error)

	// CountSince counts records of a polarity last seen at or after since.
	CountSince(ctx context.Context, polarity domain.Polarity, since time.Time) (int, error)
}
