package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// JobHandle observes one background job.
type JobHandle interface {
	// ID returns the job identifier.
	ID() string

	// Status returns a snapshot of the job state.
	Status() domain.SyncJob

	// Wait blocks until the job finishes or ctx is cancelled.
	Wait(ctx context.Context) (domain.SyncJob, error)

	// Cancel asks the job to stop after the current item.
	Cancel()
}

// TrackerSync imports tickets from the external tracker.
type TrackerSync interface {
	// SyncTicket imports one ticket with an optional category.
	SyncTicket(ctx context.Context, key string, category domain.Category) (*domain.TicketSyncResult, error)

	// SyncEpic imports every child of an epic, optionally filtered by title.
	SyncEpic(ctx context.Context, epicKey string, category domain.Category, titleFilter string) (*domain.EpicSyncResult, error)

	// StartCompletedEpicSync starts a background sync of every completed epic.
	// Returns domain.ErrSyncInProgress when a job is already running.
	StartCompletedEpicSync(ctx context.Context) (JobHandle, error)

	// LastJob returns the most recent job, if any.
	LastJob() (JobHandle, bool)
}
