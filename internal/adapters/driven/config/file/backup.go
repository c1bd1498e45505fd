package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure BackupStore implements the interface.
var _ driven.BackupStore = (*BackupStore)(nil)

// BackupFile is the snapshot file name inside the backup directory.
const BackupFile = "effort_records_backup.json"

// BackupStore writes the latest effort record snapshot as a JSON file.
// Each write replaces the previous snapshot.
type BackupStore struct {
	path string
}

type snapshot struct {
	CreatedAt time.Time             `json:"created_at"`
	Count     int                   `json:"count"`
	Records   []domain.EffortRecord `json:"records"`
}

// NewBackupStore creates a backup store in dir. If dir is empty, defaults
// to ~/.effortqa/backups.
func NewBackupStore(dir string) (*BackupStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".effortqa", "backups")
	}
	return &BackupStore{path: filepath.Join(dir, BackupFile)}, nil
}

// WriteSnapshot replaces the snapshot file and returns its path.
func (b *BackupStore) WriteSnapshot(ctx context.Context, records []domain.EffortRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if records == nil {
		records = []domain.EffortRecord{}
	}

	data, err := json.MarshalIndent(snapshot{
		CreatedAt: time.Now().UTC(),
		Count:     len(records),
		Records:   records,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return "", fmt.Errorf("%w: create backup directory: %w", domain.ErrPersistence, err)
	}
	if info, err := os.Stat(b.path); err == nil {
		logger.Debug("backup: replacing snapshot from %s", info.ModTime().Format(time.DateTime))
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("%w: write snapshot: %w", domain.ErrPersistence, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: replace snapshot: %w", domain.ErrPersistence, err)
	}

	logger.Info("backup: %d records (%.1fKB) -> %s", len(records), float64(len(data))/1024, b.path)
	return b.path, nil
}

// ReadSnapshot returns the records in the snapshot file, or none when no
// snapshot has been written.
func (b *BackupStore) ReadSnapshot(ctx context.Context) ([]domain.EffortRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %w", domain.ErrPersistence, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: parse snapshot: %w", domain.ErrPersistence, err)
	}
	return snap.Records, nil
}
