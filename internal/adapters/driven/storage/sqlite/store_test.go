package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// setupTestStore opens a store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store, func() { assert.NoError(t, store.Close()) }
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
	assert.NoError(t, store.db.Ping())

	var mode string
	require.NoError(t, store.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestNewStore_Errors(t *testing.T) {
	_, err := NewStore("")
	assert.ErrorContains(t, err, "data directory is required")

	_, err = NewStore("/invalid\x00path")
	assert.ErrorContains(t, err, "creating data directory")
}

func TestNewStore_SchemaIsCurrent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	all, err := migrations.All()
	require.NoError(t, err)
	version, err := store.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all[len(all)-1].Version, version)

	for _, table := range []string{
		"effort_records", "feedback", "answer_log", "index_documents", "scheduled_tasks", "task_results",
	} {
		var n int
		require.NoError(t, store.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.EffortStore().Upsert(context.Background(), record("A-1", "로그인", 2)))
	require.NoError(t, first.Close())

	second, err := NewStore(dir)
	require.NoError(t, err)
	defer second.Close()

	var applied int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)

	n, err := second.EffortStore().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMigrate_AppliesOnlyNewerVersions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	all, err := migrations.All()
	require.NoError(t, err)
	next := all[len(all)-1].Version + 1

	extra := append(all, migrations.Migration{
		Version: next,
		Name:    "notes",
		Up:      "CREATE TABLE notes (id INTEGER PRIMARY KEY);",
	})
	require.NoError(t, store.migrate(ctx, extra))
	require.NoError(t, store.migrate(ctx, extra))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, version)
}

func TestMigrate_FailedScriptRollsBack(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	before, err := store.SchemaVersion(ctx)
	require.NoError(t, err)

	err = store.migrate(ctx, []migrations.Migration{{
		Version: before + 1,
		Name:    "broken",
		Up:      "CREATE TABLE half (id INTEGER); NOT SQL;",
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	after, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_Close(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.Error(t, store.db.Ping())
}

func TestPersistErr(t *testing.T) {
	err := persistErr("reading", assert.AnError)

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "reading")
}

func TestColumnHelpers(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.FixedZone("KST", 9*3600))

	assert.Equal(t, "2026-03-02T00:30:00.000000000Z", formatTime(at))
	assert.True(t, parseTime(formatTime(at)).Equal(at))
	assert.True(t, parseTime("garbage").IsZero())
	assert.Nil(t, formatNullableTime(time.Time{}))
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
	assert.Nil(t, nullString(""))
	assert.Equal(t, "x", nullString("x"))
}
