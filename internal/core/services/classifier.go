package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure CategoryClassifier implements the interface.
var _ driving.CategoryClassifierService = (*CategoryClassifier)(nil)

// DefaultAutoClassifyThreshold is the confidence above which AutoClassify
// tags a record when the caller passes no threshold.
const DefaultAutoClassifyThreshold = 0.6

// CategoryClassifier trains the category model from stored records and
// applies it to unclassified ones.
type CategoryClassifier struct {
	model    driven.CategoryClassifier
	efforts  driving.EffortService
	taxonomy categoryValidator
}

// NewCategoryClassifier creates the classifier service.
func NewCategoryClassifier(
	model driven.CategoryClassifier,
	efforts driving.EffortService,
	taxonomy categoryValidator,
) *CategoryClassifier {
	return &CategoryClassifier{model: model, efforts: efforts, taxonomy: taxonomy}
}

// Train rebuilds the model from every classified record.
func (c *CategoryClassifier) Train(ctx context.Context) error {
	records, err := c.efforts.List(ctx)
	if err != nil {
		return err
	}
	if err := c.model.Train(records); err != nil {
		return fmt.Errorf("train classifier: %w", err)
	}
	logger.Info("classifier: trained on %d records", len(records))
	return nil
}

// Predict classifies free text. Predictions outside the taxonomy are
// reported as unclassified.
func (c *CategoryClassifier) Predict(_ context.Context, text string) (domain.Category, float64) {
	if strings.TrimSpace(text) == "" || !c.model.Trained() {
		return domain.Unclassified(), 0
	}
	cat, confidence := c.model.Predict(text)
	if cat.IsUnclassified() {
		return cat, 0
	}
	if c.taxonomy != nil && c.taxonomy.Validate(cat) != nil {
		logger.Debug("classifier: dropping stale prediction %s", cat)
		return domain.Unclassified(), 0
	}
	return cat, confidence
}

// AutoClassify tags unclassified records whose prediction reaches threshold.
// With dryRun no record is changed.
func (c *CategoryClassifier) AutoClassify(
	ctx context.Context,
	threshold float64,
	dryRun bool,
) ([]driving.ClassificationResult, error) {
	if threshold <= 0 {
		threshold = DefaultAutoClassifyThreshold
	}
	if !c.model.Trained() {
		if err := c.Train(ctx); err != nil {
			return nil, err
		}
	}

	records, err := c.efforts.List(ctx)
	if err != nil {
		return nil, err
	}

	var results []driving.ClassificationResult
	for i := range records {
		rec := &records[i]
		if !rec.Category.IsUnclassified() {
			continue
		}
		cat, confidence := c.Predict(ctx, rec.Title)
		if cat.IsUnclassified() || confidence < threshold {
			continue
		}
		res := driving.ClassificationResult{TicketID: rec.TicketID, Category: cat, Confidence: confidence}
		if !dryRun {
			if err := c.efforts.SetCategory(ctx, rec.TicketID, cat); err != nil {
				return results, fmt.Errorf("classify %s: %w", rec.TicketID, err)
			}
			res.Applied = true
		}
		results = append(results, res)
	}
	logger.Info("classifier: %d records above %.2f (dry run: %t)", len(results), threshold, dryRun)
	return results, nil
}
