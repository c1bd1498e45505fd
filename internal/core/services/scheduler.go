package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// cronParser accepts standard five-field expressions and descriptors like @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: schedule %q: %w", domain.ErrInvalidInput, expr, err)
	}
	return sched, nil
}

// Scheduler runs the built-in maintenance tasks on their cron schedules
// and keeps their state in a SchedulerStore.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	tracker driving.TrackerSync
	efforts driving.EffortService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	active  map[string]bool
	tick    time.Duration
	now     func() time.Time
}

// NewScheduler creates a scheduler with configuration. tracker may be nil
// when no tracker is configured; the epic sync task then fails fast.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	tracker driving.TrackerSync,
	efforts driving.EffortService,
) *Scheduler {
	return &Scheduler{
		config:  config,
		store:   store,
		tracker: tracker,
		efforts: efforts,
		active:  make(map[string]bool),
		tick:    time.Minute,
		now:     time.Now,
	}
}

// Start blocks, running due tasks every tick, until ctx ends or Stop is
// called. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		logger.Info("scheduler: disabled")
	}
	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop ends the loop and waits for in-flight tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}

func (s *Scheduler) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow executes one task immediately and waits for it.
func (s *Scheduler) RunNow(ctx context.Context, taskID string) error {
	task, err := s.store.Task(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		def, ok := domain.LookupTask(taskID)
		if !ok {
			return fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
		}
		task = &domain.ScheduledTask{ID: taskID, Name: def.Name, Schedule: s.config.GetTaskConfig(taskID).Schedule}
	}
	if !s.claim(taskID) {
		return fmt.Errorf("%w: task %s", domain.ErrSyncInProgress, taskID)
	}
	result := s.execute(ctx, task)
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}

// Tasks reports every built-in task, falling back to configuration for
// tasks the store has not seen yet.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	stored, err := s.store.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.ScheduledTask, len(stored))
	for _, t := range stored {
		byID[t.ID] = t
	}

	defs := domain.BuiltinTasks()
	tasks := make([]domain.ScheduledTask, 0, len(defs))
	for _, def := range defs {
		if t, ok := byID[def.ID]; ok {
			tasks = append(tasks, t)
			continue
		}
		cfg := s.config.GetTaskConfig(def.ID)
		task := domain.ScheduledTask{
			ID:       def.ID,
			Name:     def.Name,
			Schedule: cfg.Schedule,
			Enabled:  cfg.Enabled && s.config.Enabled,
		}
		if sched, err := ParseSchedule(cfg.Schedule); err == nil {
			task.NextRun = sched.Next(s.now())
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// History returns recent runs of a built-in task.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if _, ok := domain.LookupTask(taskID); !ok {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	if limit <= 0 {
		limit = domain.SchedulerHistoryLimit
	}
	return s.store.Runs(ctx, taskID, limit)
}

// initialiseTasks registers every task that has a schedule.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	for _, def := range domain.BuiltinTasks() {
		cfg := s.config.GetTaskConfig(def.ID)
		if cfg.Schedule == "" {
			continue
		}
		if err := s.ensureTask(ctx, def.ID, def.Name, cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask stores a task, recomputing NextRun when the schedule changed.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	sched, err := ParseSchedule(cfg.Schedule)
	if err != nil {
		return err
	}

	task, err := s.store.Task(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Schedule: cfg.Schedule,
			NextRun:  sched.Next(now),
		}
	} else if task.Schedule != cfg.Schedule || task.NextRun.IsZero() {
		task.Schedule = cfg.Schedule
		task.NextRun = sched.Next(now)
	}
	task.Enabled = cfg.Enabled && s.config.Enabled

	return s.store.PutTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context) error {
	// Catch up on anything that fell due while no process was running.
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks starts every enabled task whose NextRun has passed.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.Tasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, &task)
		}
	}
}

// runTask executes a single task in the background.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	if !s.claim(task.ID) {
		logger.Debug("scheduler: %s still running, skipping", task.ID)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(ctx, task)
	}()
}

// claim marks a task as running. Returns false when it already is.
func (s *Scheduler) claim(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[taskID] {
		return false
	}
	s.active[taskID] = true
	return true
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, taskID)
}

// execute runs a claimed task and records the outcome.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask) *domain.TaskResult {
	defer s.release(task.ID)

	result := &domain.TaskResult{
		TaskID:    task.ID,
		StartedAt: s.now(),
	}
	logger.Info("scheduler: running %s", task.ID)

	var err error
	switch task.ID {
	case domain.TaskIDCompletedEpicSync:
		result.ItemsProcessed, result.Message, err = s.runCompletedEpicSync(ctx)
	case domain.TaskIDEffortReindex:
		result.ItemsProcessed, result.Message, err = s.runEffortReindex(ctx)
	default:
		err = fmt.Errorf("%w: task %s", domain.ErrNotFound, task.ID)
	}

	result.EndedAt = s.now()
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		task.LastError = err.Error()
		logger.Warn("scheduler: %s failed: %v", task.ID, err)
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	// Update task state
	task.LastRun = result.StartedAt
	if sched, perr := ParseSchedule(task.Schedule); perr == nil {
		task.NextRun = sched.Next(result.EndedAt)
	}

	if saveErr := s.store.PutTask(ctx, task); saveErr != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}

	if recordErr := s.store.AppendRun(ctx, result); recordErr != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}

	if pruneErr := s.store.TrimRuns(ctx, domain.SchedulerHistoryLimit); pruneErr != nil {
		logger.Warn("scheduler: failed to prune history: %v", pruneErr)
	}
	return result
}

// runCompletedEpicSync starts the completed-epic job and waits for it.
func (s *Scheduler) runCompletedEpicSync(ctx context.Context) (int, string, error) {
	if s.tracker == nil {
		return 0, "", domain.ErrTrackerUnavailable
	}
	job, err := s.tracker.StartCompletedEpicSync(ctx)
	if err != nil {
		return 0, "", err
	}
	st, err := job.Wait(ctx)
	if err != nil {
		job.Cancel()
		return st.Completed, st.Message, err
	}
	if st.State != domain.JobSucceeded {
		return st.Completed, st.Message, fmt.Errorf("job %s %s: %s", st.ID, st.State, st.Message)
	}
	return st.Completed, st.Message, nil
}

// runEffortReindex rebuilds the effort partition of the vector index.
func (s *Scheduler) runEffortReindex(ctx context.Context) (int, string, error) {
	if s.efforts == nil {
		return 0, "", nil
	}
	if err := s.efforts.Reindex(ctx); err != nil {
		return 0, "", err
	}
	records, err := s.efforts.List(ctx)
	if err != nil {
		return 0, "", err
	}
	return len(records), fmt.Sprintf("%d개 기록 색인", len(records)), nil
}
