package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// feedbackStore implements driven.FeedbackStore.
type feedbackStore struct {
	db *sql.DB
}

var _ driven.FeedbackStore = (*feedbackStore)(nil)

const feedbackColumns = `qa_hash, question, answer, sources, polarity,
	first_seen_at, last_seen_at, count, observed_by`

// Get retrieves a record by hash.
func (s *feedbackStore) Get(ctx context.Context, qaHash string) (*domain.FeedbackRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+feedbackColumns+" FROM feedback WHERE qa_hash = ?", qaHash)
	rec, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, persistErr("getting feedback", err)
	}
	return rec, nil
}

// Save inserts or replaces a record by hash.
func (s *feedbackStore) Save(ctx context.Context, rec *domain.FeedbackRecord) error {
	if rec == nil || rec.QAHash == "" {
		return domain.ErrInvalidInput
	}
	sources, err := json.Marshal(nonNil(rec.Sources))
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}
	observedBy, err := json.Marshal(nonNil(rec.ObservedBy))
	if err != nil {
		return fmt.Errorf("marshalling observers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (`+feedbackColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(qa_hash) DO UPDATE SET
			question = excluded.question,
			answer = excluded.answer,
			sources = excluded.sources,
			polarity = excluded.polarity,
			first_seen_at = excluded.first_seen_at,
			last_seen_at = excluded.last_seen_at,
			count = excluded.count,
			observed_by = excluded.observed_by
	`, rec.QAHash, rec.Question, rec.Answer, string(sources), string(rec.Polarity),
		formatTime(rec.FirstSeenAt), formatTime(rec.LastSeenAt), rec.Count, string(observedBy))
	if err != nil {
		return persistErr("saving feedback", err)
	}
	return nil
}

// SetPolarity flips the polarity of an existing record and touches LastSeenAt.
func (s *feedbackStore) SetPolarity(
	ctx context.Context, qaHash string, polarity domain.Polarity, seenAt time.Time,
) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE feedback SET polarity = ?, last_seen_at = ? WHERE qa_hash = ?",
		string(polarity), formatTime(seenAt), qaHash)
	if err != nil {
		return persistErr("updating feedback polarity", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a record. Unknown hashes are ignored.
func (s *feedbackStore) Delete(ctx context.Context, qaHash string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE qa_hash = ?", qaHash); err != nil {
		return persistErr("deleting feedback", err)
	}
	return nil
}

// List returns records with the given polarity, oldest first.
func (s *feedbackStore) List(ctx context.Context, polarity domain.Polarity) ([]domain.FeedbackRecord, error) {
	query := "SELECT " + feedbackColumns + " FROM feedback"
	var args []any
	if polarity != "" {
		query += " WHERE polarity = ?"
		args = append(args, string(polarity))
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("listing feedback", err)
	}
	return collect(rows, "feedback", scanFeedback)
}

// CountSince counts records of a polarity last seen at or after since.
func (s *feedbackStore) CountSince(ctx context.Context, polarity domain.Polarity, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM feedback WHERE polarity = ? AND last_seen_at >= ?",
		string(polarity), formatTime(since)).Scan(&n)
	if err != nil {
		return 0, persistErr("counting feedback", err)
	}
	return n, nil
}

func scanFeedback(row scanner) (*domain.FeedbackRecord, error) {
	var rec domain.FeedbackRecord
	var sources, polarity, firstSeen, lastSeen, observedBy string
	if err := row.Scan(&rec.QAHash, &rec.Question, &rec.Answer, &sources, &polarity,
		&firstSeen, &lastSeen, &rec.Count, &observedBy); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
		return nil, fmt.Errorf("decoding sources: %w", err)
	}
	if err := json.Unmarshal([]byte(observedBy), &rec.ObservedBy); err != nil {
		return nil, fmt.Errorf("decoding observers: %w", err)
	}
	rec.Polarity = domain.Polarity(polarity)
	rec.FirstSeenAt = parseTime(firstSeen)
	rec.LastSeenAt = parseTime(lastSeen)
	return &rec, nil
}

// nonNil keeps empty slices encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
