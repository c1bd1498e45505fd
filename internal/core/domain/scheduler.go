package domain

import "time"

// Built-in task IDs.
const (
	TaskIDCompletedEpicSync = "completed-epic-sync"
	TaskIDEffortReindex     = "effort-reindex"
)

// SchedulerHistoryLimit is the number of results kept per task.
const SchedulerHistoryLimit = 100

// TaskSpec describes one built-in task.
type TaskSpec struct {
	ID              string
	Name            string
	DefaultSchedule string
}

// builtinTasks is ordered the way status output lists them. The sync runs
// first so the reindex half an hour later picks up what it imported.
var builtinTasks = []TaskSpec{
	{ID: TaskIDCompletedEpicSync, Name: "Completed Epic Sync", DefaultSchedule: "0 3 * * *"},
	{ID: TaskIDEffortReindex, Name: "Effort Reindex", DefaultSchedule: "30 3 * * *"},
}

// BuiltinTasks returns a copy of the task catalogue.
func BuiltinTasks() []TaskSpec {
	return append([]TaskSpec(nil), builtinTasks...)
}

// BuiltinTaskIDs returns the IDs in catalogue order.
func BuiltinTaskIDs() []string {
	ids := make([]string, len(builtinTasks))
	for i, t := range builtinTasks {
		ids[i] = t.ID
	}
	return ids
}

// LookupTask finds a built-in task by ID.
func LookupTask(id string) (TaskSpec, bool) {
	for _, t := range builtinTasks {
		if t.ID == id {
			return t, true
		}
	}
	return TaskSpec{}, false
}

// ScheduledTask is the persisted state of a task between runs.
type ScheduledTask struct {
	ID   string
	Name string
	// Schedule is a five-field cron expression or a descriptor like @daily.
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	// LastError is cleared by the next successful run.
	LastError string
	Enabled   bool
}

// TaskResult is one execution of a task.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string
	// ItemsProcessed counts epics synced or records reindexed.
	ItemsProcessed int
	Message        string
}

// Duration returns how long the run took.
func (r *TaskResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig is the [scheduler] section of config.toml.
type SchedulerConfig struct {
	// Enabled is the master switch; a task runs only if both it and the
	// master switch are on.
	Enabled     bool
	TaskConfigs map[string]TaskConfig
}

// TaskConfig is the per-task part of SchedulerConfig.
type TaskConfig struct {
	Enabled  bool
	Schedule string
}

// GetTaskConfig returns the zero TaskConfig for unknown tasks.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig enables every built-in task on its default
// schedule.
func DefaultSchedulerConfig() SchedulerConfig {
	cfg := SchedulerConfig{Enabled: true, TaskConfigs: make(map[string]TaskConfig, len(builtinTasks))}
	for _, t := range builtinTasks {
		cfg.TaskConfigs[t.ID] = TaskConfig{Enabled: true, Schedule: t.DefaultSchedule}
	}
	return cfg
}
