package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

type schedulerStore struct {
	db *sql.DB
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const (
	selectTasks = `SELECT id, name, schedule, last_run, next_run, last_error, last_success, enabled
		FROM scheduled_tasks`

	upsertTask = `INSERT INTO scheduled_tasks
		(id, name, schedule, last_run, next_run, last_error, last_success, enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, schedule = excluded.schedule,
			last_run = excluded.last_run, next_run = excluded.next_run,
			last_error = excluded.last_error, last_success = excluded.last_success,
			enabled = excluded.enabled`

	insertRun = `INSERT INTO task_results
		(task_id, started_at, ended_at, success, error, items_processed, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	// A negative LIMIT means no limit in SQLite.
	selectRuns = `SELECT task_id, started_at, ended_at, success, error, items_processed, message
		FROM task_results WHERE task_id = ?
		ORDER BY started_at DESC, id DESC LIMIT ?`

	trimRuns = `DELETE FROM task_results WHERE id IN (
		SELECT id FROM (
			SELECT id, ROW_NUMBER() OVER (
				PARTITION BY task_id ORDER BY started_at DESC, id DESC
			) AS rn FROM task_results
		) WHERE rn > ?)`
)

func (s *schedulerStore) Task(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, selectTasks+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("reading task "+id, err)
	}
	return task, nil
}

func (s *schedulerStore) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx, selectTasks+" ORDER BY id")
	if err != nil {
		return nil, persistErr("querying tasks", err)
	}
	return collect(rows, "tasks", scanTask)
}

func (s *schedulerStore) PutTask(ctx context.Context, t *domain.ScheduledTask) error {
	if t == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, upsertTask,
		t.ID, t.Name, t.Schedule,
		formatNullableTime(t.LastRun), formatNullableTime(t.NextRun),
		nullString(t.LastError), formatNullableTime(t.LastSuccess),
		boolToInt(t.Enabled))
	if err != nil {
		return persistErr("saving task "+t.ID, err)
	}
	return nil
}

func (s *schedulerStore) AppendRun(ctx context.Context, r *domain.TaskResult) error {
	if r == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, insertRun,
		r.TaskID, formatTime(r.StartedAt), formatTime(r.EndedAt),
		boolToInt(r.Success), nullString(r.Error), r.ItemsProcessed, r.Message)
	if err != nil {
		return persistErr("recording run of "+r.TaskID, err)
	}
	return nil
}

// Runs treats a non-positive limit as unlimited.
func (s *schedulerStore) Runs(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectRuns, taskID, limit)
	if err != nil {
		return nil, persistErr("querying runs of "+taskID, err)
	}
	return collect(rows, "runs", scanRun)
}

func (s *schedulerStore) TrimRuns(ctx context.Context, keep int) error {
	if _, err := s.db.ExecContext(ctx, trimRuns, keep); err != nil {
		return persistErr("trimming runs", err)
	}
	return nil
}

func scanTask(row scanner) (*domain.ScheduledTask, error) {
	var (
		t                                 domain.ScheduledTask
		lastRun, nextRun, lastOK, lastErr sql.NullString
		enabled                           int
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Schedule, &lastRun, &nextRun, &lastErr, &lastOK, &enabled); err != nil {
		return nil, err
	}
	t.LastRun = parseNullableTime(lastRun)
	t.NextRun = parseNullableTime(nextRun)
	t.LastSuccess = parseNullableTime(lastOK)
	t.LastError = lastErr.String
	t.Enabled = enabled == 1
	return &t, nil
}

func scanRun(row scanner) (*domain.TaskResult, error) {
	var (
		r              domain.TaskResult
		started, ended string
		success        int
		errMsg         sql.NullString
	)
	if err := row.Scan(&r.TaskID, &started, &ended, &success, &errMsg, &r.ItemsProcessed, &r.Message); err != nil {
		return nil, err
	}
	r.StartedAt = parseTime(started)
	r.EndedAt = parseTime(ended)
	r.Success = success == 1
	r.Error = errMsg.String
	return &r, nil
}
