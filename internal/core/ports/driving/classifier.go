package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// ClassificationResult is one auto-classification decision.
type ClassificationResult struct {
	TicketID   string          `json:"ticket_id"`
	Category   domain.Category `json:"category"`
	Confidence float64         `json:"confidence"`
	Applied    bool            `json:"applied"`
}

// CategoryClassifierService trains and applies the category classifier.
type CategoryClassifierService interface {
	// Train rebuilds the model from the classified records in the store.
	Train(ctx context.Context) error

	// Predict classifies free text.
	Predict(ctx context.Context, text string) (domain.Category, float64)

	// AutoClassify tags unclassified records predicted above the threshold.
	AutoClassify(ctx context.Context, threshold float64, dryRun bool) ([]ClassificationResult, error)
}
