package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuiltinTasks(t *testing.T) {
	assert.Equal(t, []string{TaskIDCompletedEpicSync, TaskIDEffortReindex}, BuiltinTaskIDs())

	tasks := BuiltinTasks()
	tasks[0].Name = "changed"
	assert.Equal(t, "Completed Epic Sync", BuiltinTasks()[0].Name)
}

func TestLookupTask(t *testing.T) {
	def, ok := LookupTask(TaskIDEffortReindex)
	assert.True(t, ok)
	assert.Equal(t, "Effort Reindex", def.Name)
	assert.Equal(t, "30 3 * * *", def.DefaultSchedule)

	_, ok = LookupTask("vacuum")
	assert.False(t, ok)
}

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]TaskConfig{
		TaskIDCompletedEpicSync: {Enabled: true, Schedule: "0 3 * * *"},
		TaskIDEffortReindex:     {Enabled: true, Schedule: "30 3 * * *"},
	}, cfg.TaskConfigs)
}

func TestSchedulerConfig_GetTaskConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	assert.True(t, cfg.GetTaskConfig(TaskIDCompletedEpicSync).Enabled)
	assert.Equal(t, TaskConfig{}, cfg.GetTaskConfig("unknown-task"))

	empty := SchedulerConfig{Enabled: true}
	assert.Equal(t, TaskConfig{}, empty.GetTaskConfig(TaskIDEffortReindex))
}

func TestTaskResult_Duration(t *testing.T) {
	start := time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)
	r := TaskResult{StartedAt: start, EndedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, r.Duration())
}
