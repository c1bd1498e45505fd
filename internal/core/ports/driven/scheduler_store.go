package driven

import (
	"context"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// SchedulerStore persists task state and run history so that
// `scheduler status` can report on runs made by another process.
type SchedulerStore interface {
	// Task returns nil, nil for an unknown ID.
	Task(ctx context.Context, id string) (*domain.ScheduledTask, error)
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// PutTask inserts or replaces the task with task.ID.
	PutTask(ctx context.Context, task *domain.ScheduledTask) error

	AppendRun(ctx context.Context, run *domain.TaskResult) error

	// Runs returns up to limit runs of a task, newest first.
	Runs(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// TrimRuns keeps the newest keep runs of every task.
	TrimRuns(ctx context.Context, keep int) error
}
