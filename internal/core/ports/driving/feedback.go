package driving

import (
	"context"
	"io"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// FeedbackService records and looks up question/answer judgements.
type FeedbackService interface {
	// Record stores a judgement, deduplicating by qa_hash.
	Record(ctx context.Context, sub domain.FeedbackSubmission) (*domain.FeedbackOutcome, error)

	// Lookup returns an accepted record that answers the question, or nil.
	// Backend failures are reported as a miss.
	Lookup(ctx context.Context, question string) *domain.FeedbackRecord

	// Get retrieves a record by hash.
	Get(ctx context.Context, qaHash string) (*domain.FeedbackRecord, error)

	// List returns records of one polarity. Empty lists all.
	List(ctx context.Context, polarity domain.Polarity) ([]domain.FeedbackRecord, error)

	// WeeklyAcceptance reports the acceptance ratio for the ISO week containing now.
	WeeklyAcceptance(ctx context.Context, now time.Time) (*domain.WeeklyFeedbackStats, error)

	// Reindex rebuilds the accepted partition in the vector index.
	Reindex(ctx context.Context) error

	// Export writes every record as a JSON list.
	Export(ctx context.Context, w io.Writer) error

	// Import reads a JSON list written by Export and replaces matching hashes.
	Import(ctx context.Context, r io.Reader) (int, error)
}
