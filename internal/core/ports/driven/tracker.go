package driven

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// Tracker is the external ticket tracker (Jira, GitHub issues).
// Tickets come back flattened to plain text with estimates in days.
type Tracker interface {
	// Name identifies the tracker ("jira", "github").
	Name() string

	// GetTicket fetches one ticket. Returns domain.ErrNotFound when absent.
	GetTicket(ctx context.Context, key string) (*domain.Ticket, error)

	// Search runs a tracker-native query.
	Search(ctx context.Context, query string, limit int) ([]domain.Ticket, error)

	// EpicInfo fetches an epic's name and status.
	EpicInfo(ctx context.Context, epicKey string) (*domain.EpicInfo, error)

	// EpicChildren returns the children of an epic, and the query that found them.
	EpicChildren(ctx context.Context, epicKey string) ([]domain.Ticket, string, error)

	// CompletedEpics lists epics in a done state, optionally scoped to a project.
	CompletedEpics(ctx context.Context, project string) ([]domain.EpicInfo, error)

	// BrowseURL returns the human-facing URL of a ticket, or "" when unknown.
	BrowseURL(key string) string
}
