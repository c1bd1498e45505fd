package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func TestBackupStore_ReadWithoutSnapshot(t *testing.T) {
	store, err := NewBackupStore(t.TempDir())
	require.NoError(t, err)

	records, err := store.ReadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBackupStore_WriteReplacesSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBackupStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.WriteSnapshot(ctx, []domain.EffortRecord{
		{TicketID: "PRJ-1", Title: "로그인 API", Estimate: 2},
		{TicketID: "PRJ-2", Title: "결제 화면", Estimate: 3.5,
			Category: domain.NewCategory("결제", "카드결제", "신용카드")},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BackupFile), path)

	records, err := store.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "결제 > 카드결제 > 신용카드", records[1].Category.String())

	_, err = store.WriteSnapshot(ctx, []domain.EffortRecord{{TicketID: "PRJ-3", Estimate: 1}})
	require.NoError(t, err)

	records, err = store.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "PRJ-3", records[0].TicketID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackupStore_EmptySnapshot(t *testing.T) {
	store, err := NewBackupStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.WriteSnapshot(context.Background(), nil)
	require.NoError(t, err)

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"records": []`)
}

func TestBackupStore_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BackupFile), []byte("{"), 0o600))

	store, err := NewBackupStore(dir)
	require.NoError(t, err)

	_, err = store.ReadSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestBackupStore_CancelledContext(t *testing.T) {
	store, err := NewBackupStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.WriteSnapshot(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewBackupStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewBackupStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".effortqa", "backups", BackupFile), store.path)
}
