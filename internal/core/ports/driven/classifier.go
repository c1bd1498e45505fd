package driven

import "github.com/custodia-labs/effortqa/internal/core/domain"

// CategoryClassifier predicts a taxonomy category from free text.
// It is only used to narrow retrieval and to tag unclassified records.
type CategoryClassifier interface {
	// Train rebuilds the model from classified records. Unclassified records are ignored.
	Train(records []domain.EffortRecord) error

	// Predict returns the most likely category and its confidence in [0,1].
	// An untrained model returns the unclassified category with zero confidence.
	Predict(text string) (domain.Category, float64)

	// Trained reports whether the model has seen any examples.
	Trained() bool
}
