package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/effortqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "effortqa.db"

// timeLayout is fixed-width UTC so stored timestamps compare lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var pragmas = []string{"journal_mode(WAL)", "busy_timeout(5000)"}

// Store owns the database handle. The port accessors return thin views
// sharing its connection pool.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens dataDir/effortqa.db, creating the directory and file as
// needed, and brings the schema up to date.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("sqlite: data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", path+"?_pragma="+strings.Join(pragmas, "&_pragma="))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	s := &Store{db: db, path: path}
	if err := s.upgrade(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }
func (s *Store) Path() string { return s.path }

func (s *Store) EffortStore() driven.EffortStore { return &effortStore{db: s.db} }
func (s *Store) FeedbackStore() driven.FeedbackStore { return &feedbackStore{db: s.db} }
func (s *Store) AnswerLog() driven.AnswerLog { return &answerLog{db: s.db} }
func (s *Store) SchedulerStore() driven.SchedulerStore { return &schedulerStore{db: s.db} }

// VectorIndex returns the persistent index, embedding with embedder.
func (s *Store) VectorIndex(embedder driven.EmbeddingService) driven.VectorIndex {
	return &vectorIndex{db: s.db, embedder: embedder}
}

// SchemaVersion returns the newest applied migration, 0 for a fresh file.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, persistErr("reading schema version", err)
	}
	return v, nil
}

func (s *Store) upgrade(ctx context.Context) error {
	all, err := migrations.All()
	if err != nil {
		return err
	}
	if err := s.migrate(ctx, all); err != nil {
		return fmt.Errorf("migrating %s: %w", s.path, err)
	}
	return nil
}

// migrate applies each migration newer than the schema version in its own
// transaction, recording it in schema_migrations.
func (s *Store) migrate(ctx context.Context, all []migrations.Migration) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return err
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		if err := s.apply(ctx, m); err != nil {
			return fmt.Errorf("%03d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (s *Store) apply(ctx context.Context, m migrations.Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, formatTime(time.Now())); err != nil {
		return err
	}
	return tx.Commit()
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// formatNullableTime returns nil for the zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// collect drains rows through scan and closes them. what names the rows
// in errors.
func collect[T any](rows *sql.Rows, what string, scan func(scanner) (*T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, persistErr("scanning "+what, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterating "+what, err)
	}
	return out, nil
}
