package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// Overview combines effort and feedback statistics.
type Overview struct {
	Effort         *domain.EffortStats         `json:"effort"`
	Feedback       *domain.WeeklyFeedbackStats `json:"feedback"`
	Accepted       int                         `json:"accepted_total"`
	Rejected       int                         `json:"rejected_total"`
	IndexDocuments int                         `json:"index_documents"`
}

// StatsService reports on the whole engine.
type StatsService interface {
	// Overview returns effort, feedback and index statistics.
	Overview(ctx context.Context, now time.Time) (*Overview, error)
}
