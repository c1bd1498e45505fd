package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// AddOptions controls how EffortService.Add merges with an existing record.
type AddOptions struct {
	// OverwriteCategory replaces an existing record's category.
	OverwriteCategory bool

	// OverwriteProject replaces an existing record's project linkage.
	OverwriteProject bool

	// SkipReindex leaves the vector index untouched. Callers batching
	// many adds reindex once at the end.
	SkipReindex bool
}

// AddOutcome reports what Add did.
type AddOutcome struct {
	Created   bool
	Updated   bool
	Unchanged bool
}

// EffortService manages the canonical effort record store.
type EffortService interface {
	// Add inserts or updates a record.
	Add(ctx context.Context, rec *domain.EffortRecord, opts AddOptions) (*AddOutcome, error)

	// Get retrieves one record.
	Get(ctx context.Context, ticketID string) (*domain.EffortRecord, error)

	// List returns every record.
	List(ctx context.Context) ([]domain.EffortRecord, error)

	// SetCategory replaces a record's category after validating it.
	SetCategory(ctx context.Context, ticketID string, category domain.Category) error

	// SearchSimilar returns records whose title contains the feature name.
	SearchSimilar(ctx context.Context, feature string) ([]domain.EffortRecord, error)

	// Reindex re-materialises records into the vector index.
	// With no ticket IDs the whole effort partition is rebuilt.
	Reindex(ctx context.Context, ticketIDs ...string) error

	// Stats summarises the store.
	Stats(ctx context.Context) (*domain.EffortStats, error)

	// Backup snapshots every record and returns the snapshot location.
	Backup(ctx context.Context) (string, error)

	// Export writes every record as a JSON list.
	Export(ctx context.Context, w io.Writer) error

	// Import reads a JSON list and adds each record.
	Import(ctx context.Context, r io.Reader, opts AddOptions) (int, error)
}
