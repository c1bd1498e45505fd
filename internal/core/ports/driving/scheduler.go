package driving

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// Scheduler runs cron-driven background tasks like the completed-epic sync.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// RunNow executes one task immediately and waits for it.
	RunNow(ctx context.Context, taskID string) error

	// Tasks lists the built-in tasks with their persisted state. Tasks that
	// have never been saved are reported from configuration.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns up to limit recent runs of a task, newest first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
