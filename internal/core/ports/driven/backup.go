package driven

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// BackupStore writes effort record snapshots. Only the latest snapshot is kept.
type BackupStore interface {
	// WriteSnapshot replaces the snapshot and returns its location.
	WriteSnapshot(ctx context.Context, records []domain.EffortRecord) (string, error)

	// ReadSnapshot returns the records in the latest snapshot.
	ReadSnapshot(ctx context.Context) ([]domain.EffortRecord, error)
}
