package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure BackupStore implements the interface.
var _ driven.BackupStore = (*BackupStore)(nil)

// BackupStore keeps the latest snapshot in memory.
type BackupStore struct {
	mu       sync.RWMutex
	snapshot []domain.EffortRecord
	writes   int
}

// NewBackupStore creates a new in-memory backup store.
func NewBackupStore() *BackupStore {
	return &BackupStore{}
}

// WriteSnapshot replaces the snapshot.
func (b *BackupStore) WriteSnapshot(_ context.Context, records []domain.EffortRecord) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshot = slices.Clone(records)
	b.writes++
	return "memory://effort_records_backup.json", nil
}

// ReadSnapshot returns the latest snapshot.
func (b *BackupStore) ReadSnapshot(_ context.Context) ([]domain.EffortRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.snapshot), nil
}

// Writes returns how many snapshots have been written.
func (b *BackupStore) Writes() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}
