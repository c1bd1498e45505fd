package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure AnswerLog implements the interface.
var _ driven.AnswerLog = (*AnswerLog)(nil)

// AnswerLog is an in-memory implementation of driven.AnswerLog.
type AnswerLog struct {
	mu      sync.RWMutex
	entries []domain.AnswerLogEntry
}

// NewAnswerLog creates a new in-memory answer log.
func NewAnswerLog() *AnswerLog {
	return &AnswerLog{}
}

// Append records one served answer.
func (l *AnswerLog) Append(_ context.Context, entry *domain.AnswerLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *entry)
	return nil
}

// CountSince counts non-rejected answers served at or after since.
func (l *AnswerLog) CountSince(_ context.Context, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, e := range l.entries {
		if e.State != domain.StateRejected && !e.ServedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// Recent returns the most recent entries, newest first.
func (l *AnswerLog) Recent(_ context.Context, limit int) ([]domain.AnswerLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.AnswerLogEntry
	for i := len(l.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}
