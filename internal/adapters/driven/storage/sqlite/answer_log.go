package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// answerLog implements driven.AnswerLog.
type answerLog struct {
	db *sql.DB
}

var _ driven.AnswerLog = (*answerLog)(nil)

// Append records one served answer.
func (l *answerLog) Append(ctx context.Context, entry *domain.AnswerLogEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO answer_log (question, state, strategy, sources, error, served_at, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.Question, string(entry.State), entry.Strategy, entry.Sources, entry.Error,
		formatTime(entry.ServedAt), entry.LatencyMS)
	if err != nil {
		return persistErr("appending answer log", err)
	}
	return nil
}

// CountSince counts non-rejected answers served at or after since.
func (l *answerLog) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM answer_log WHERE state != ? AND served_at >= ?",
		string(domain.StateRejected), formatTime(since)).Scan(&n)
	if err != nil {
		return 0, persistErr("counting answers", err)
	}
	return n, nil
}

// Recent returns the most recent entries, newest first. A non-positive
// limit returns everything.
func (l *answerLog) Recent(ctx context.Context, limit int) ([]domain.AnswerLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT question, state, strategy, sources, error, served_at, latency_ms
		FROM answer_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, persistErr("querying answer log", err)
	}
	return collect(rows, "answer log", scanAnswer)
}

func scanAnswer(row scanner) (*domain.AnswerLogEntry, error) {
	var e domain.AnswerLogEntry
	var state, servedAt string
	if err := row.Scan(&e.Question, &state, &e.Strategy, &e.Sources, &e.Error, &servedAt, &e.LatencyMS); err != nil {
		return nil, err
	}
	e.State = domain.ResolveState(state)
	e.ServedAt = parseTime(servedAt)
	return &e, nil
}
