package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func TestSchedulerStore_PutAndTask(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	now := time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)
	task := &domain.ScheduledTask{
		ID:          domain.TaskIDCompletedEpicSync,
		Name:        "Completed Epic Sync",
		Schedule:    "0 3 * * *",
		LastRun:     now,
		NextRun:     now.Add(24 * time.Hour),
		LastSuccess: now,
		Enabled:     true,
	}
	require.NoError(t, schedulerStore.PutTask(ctx, task))

	got, err := schedulerStore.Task(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.Name, got.Name)
	assert.Equal(t, task.Schedule, got.Schedule)
	assert.True(t, got.Enabled)
	assert.True(t, task.NextRun.Equal(got.NextRun))
	assert.Empty(t, got.LastError)

	missing, err := schedulerStore.Task(ctx, "non-existent")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, schedulerStore.PutTask(ctx, nil), domain.ErrInvalidInput)
}

func TestSchedulerStore_UpdateAndList(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	require.NoError(t, schedulerStore.PutTask(ctx, &domain.ScheduledTask{ID: "b", Name: "B", Schedule: "@daily"}))
	require.NoError(t, schedulerStore.PutTask(ctx, &domain.ScheduledTask{ID: "a", Name: "A", Schedule: "@hourly", Enabled: true}))
	require.NoError(t, schedulerStore.PutTask(ctx, &domain.ScheduledTask{
		ID: "b", Name: "B", Schedule: "0 4 * * *", LastError: "tracker down",
	}))

	tasks, err := schedulerStore.Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "0 4 * * *", tasks[1].Schedule)
	assert.Equal(t, "tracker down", tasks[1].LastError)
	assert.True(t, tasks[1].LastRun.IsZero())
}

func TestSchedulerStore_RunsAndTrim(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		started := base.Add(time.Duration(i) * time.Hour)
		errMsg := ""
		if i%2 != 0 {
			errMsg = "failed"
		}
		require.NoError(t, schedulerStore.AppendRun(ctx, &domain.TaskResult{
			TaskID:         "sync",
			StartedAt:      started,
			EndedAt:        started.Add(time.Minute),
			Success:        i%2 == 0,
			Error:          errMsg,
			ItemsProcessed: i,
			Message:        fmt.Sprintf("run %d", i),
		}))
	}
	require.NoError(t, schedulerStore.AppendRun(ctx, &domain.TaskResult{
		TaskID: "other", StartedAt: base, EndedAt: base,
	}))
	assert.ErrorIs(t, schedulerStore.AppendRun(ctx, nil), domain.ErrInvalidInput)

	history, err := schedulerStore.Runs(ctx, "sync", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run 4", history[0].Message)
	assert.True(t, history[0].Success)
	assert.Equal(t, "failed", history[1].Error)
	assert.Equal(t, time.Minute, history[0].Duration())

	require.NoError(t, schedulerStore.TrimRuns(ctx, 3))
	history, err = schedulerStore.Runs(ctx, "sync", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 2, history[2].ItemsProcessed)

	other, err := schedulerStore.Runs(ctx, "other", 10)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSchedulerStore_RecordFailure(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	schedulerStore := store.SchedulerStore()

	assert.ErrorIs(t, schedulerStore.AppendRun(ctx, nil), domain.ErrInvalidInput)

	start := time.Now().Add(-time.Minute)
	require.NoError(t, schedulerStore.AppendRun(ctx, &domain.TaskResult{
		TaskID:    "x",
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		Error:     "tracker unavailable",
	}))

	history, err := schedulerStore.Runs(ctx, "x", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Equal(t, "tracker unavailable", history[0].Error)
	assert.Equal(t, 2*time.Second, history[0].Duration().Round(time.Second))
}
