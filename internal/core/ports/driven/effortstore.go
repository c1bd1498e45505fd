package driven

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// EffortStore persists effort records keyed by ticket ID.
// There is deliberately no delete operation.
type EffortStore interface {
	// Upsert inserts or replaces a record by ticket ID.
	Upsert(ctx context.Context, rec *domain.EffortRecord) error

	// Get retrieves a record. Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, ticketID string) (*domain.EffortRecord, error)

	// List returns every record in insertion order.
	List(ctx context.Context) ([]domain.EffortRecord, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int, error)

	// UpdateCategory replaces the whole category triple of one record.
	UpdateCategory(ctx context.Context, ticketID string, category domain.Category) error

	// UpdateProject sets the parent epic of one record.
	UpdateProject(ctx context.Context, ticketID, projectKey, projectName string) error

	// SearchTitle returns records whose title contains the term, case-insensitively.
	SearchTitle(ctx context.Context, term string) ([]domain.EffortRecord, error)
}
