package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure TrackerSync implements the interface.
var _ driving.TrackerSync = (*TrackerSync)(nil)

// Ensure syncJob implements the interface.
var _ driving.JobHandle = (*syncJob)(nil)

// reasonKeywords mark a description that explains its estimate.
var reasonKeywords = []string{"산정", "예상", "복잡", "단순", "기존", "새로운"}

// reasonSnippetLen caps the description excerpt kept as the estimation reason.
const reasonSnippetLen = 100

// JobKindCompletedEpics is the kind of the completed-epic sync job.
const JobKindCompletedEpics = "completed-epics"

// ExtractEstimationReason returns an excerpt of description when it talks
// about how the estimate was reached, or "".
func ExtractEstimationReason(description string) string {
	if !containsAny(description, reasonKeywords) {
		return ""
	}
	runes := []rune(strings.TrimSpace(description))
	if len(runes) > reasonSnippetLen {
		return string(runes[:reasonSnippetLen]) + "..."
	}
	return string(runes)
}

// TicketToRecord converts a tracker ticket into an effort record.
func TicketToRecord(t *domain.Ticket, category domain.Category) *domain.EffortRecord {
	rec := &domain.EffortRecord{
		TicketID:         t.Key,
		Title:            t.Summary,
		Estimate:         t.Estimate,
		EstimateOriginal: t.EstimateOriginal,
		EstimateUnit:     t.EstimateUnit,
		Description:      t.Description,
		Comments:         t.Comments,
		EstimationReason: ExtractEstimationReason(t.Description),
		TeamMember:       t.Assignee,
		Category:         category,
		ProjectKey:       t.EpicKey,
		ProjectName:      t.EpicName,
		CreatedAt:        t.Created,
	}
	if t.Status != "" {
		rec.Notes = "상태: " + t.Status
	}
	return rec
}

// TrackerSync imports tickets from the tracker into the effort store.
type TrackerSync struct {
	tracker driven.Tracker
	efforts driving.EffortService
	metrics driven.Metrics
	project string

	mu         sync.Mutex
	current    *syncJob
	newID      func() string
	now        func() time.Time
	retryDelay time.Duration
}

// defaultRetryDelay is the pause before retrying an epic the tracker
// throttled.
const defaultRetryDelay = 30 * time.Second

// NewTrackerSync creates a tracker sync service. project scopes the
// completed-epic query and may be empty.
func NewTrackerSync(
	tracker driven.Tracker,
	efforts driving.EffortService,
	metrics driven.Metrics,
	project string,
) *TrackerSync {
	return &TrackerSync{
		tracker: tracker,
		efforts: efforts,
		metrics: metricsOrNop(metrics),
		project: project,
		newID:      uuid.NewString,
		now:        time.Now,
		retryDelay: defaultRetryDelay,
	}
}

// SyncTicket imports one ticket. Only work item types are accepted.
func (s *TrackerSync) SyncTicket(ctx context.Context, key string, category domain.Category) (*domain.TicketSyncResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: ticket key is required", domain.ErrInvalidInput)
	}
	if s.tracker == nil {
		return nil, domain.ErrTrackerUnavailable
	}

	ticket, err := s.tracker.GetTicket(ctx, key)
	if err != nil {
		return nil, trackerError("get ticket "+key, err)
	}
	result := &domain.TicketSyncResult{TicketID: ticket.Key}
	if !slices.Contains(domain.SyncableIssueTypes(), ticket.IssueType) {
		result.Reason = "unsupported issue type " + ticket.IssueType
		return result, fmt.Errorf("%w: %s is a %s", domain.ErrUnsupportedType, key, ticket.IssueType)
	}

	if _, err := s.efforts.Backup(ctx); err != nil {
		return nil, fmt.Errorf("backup before sync: %w", err)
	}

	out, err := s.efforts.Add(ctx, TicketToRecord(ticket, category), driving.AddOptions{
		OverwriteCategory: !category.IsUnclassified(),
		OverwriteProject:  ticket.EpicKey != "",
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}
	result.Added = out.Created
	result.Updated = out.Updated
	if out.Unchanged {
		result.Reason = "unchanged"
	}
	s.metrics.SyncItems("ticket", outcomeLabel(out), 1)
	logger.Info("synced ticket %s (added=%t updated=%t)", key, result.Added, result.Updated)
	return result, nil
}

// SyncEpic backs up the store and imports every child of an epic.
func (s *TrackerSync) SyncEpic(
	ctx context.Context,
	epicKey string,
	category domain.Category,
	titleFilter string,
) (*domain.EpicSyncResult, error) {
	epicKey = strings.TrimSpace(epicKey)
	if epicKey == "" {
		return nil, fmt.Errorf("%w: epic key is required", domain.ErrInvalidInput)
	}
	if s.tracker == nil {
		return nil, domain.ErrTrackerUnavailable
	}
	if _, err := s.efforts.Backup(ctx); err != nil {
		return nil, fmt.Errorf("backup before sync: %w", err)
	}

	result, changed, err := s.syncEpic(ctx, epicKey, category, titleFilter)
	if err != nil {
		return nil, err
	}
	if len(changed) > 0 {
		if err := s.efforts.Reindex(ctx, changed...); err != nil {
			logger.Warn("sync epic %s: reindex failed: %v", epicKey, err)
			return result, err
		}
	}
	return result, nil
}

// syncEpic imports the children of one epic without reindexing. It
// returns the IDs of records that changed.
func (s *TrackerSync) syncEpic(
	ctx context.Context,
	epicKey string,
	category domain.Category,
	titleFilter string,
) (*domain.EpicSyncResult, []string, error) {
	// 1. Resolve the epic
	info, err := s.tracker.EpicInfo(ctx, epicKey)
	if err != nil {
		return nil, nil, trackerError("get epic "+epicKey, err)
	}

	// 2. Fetch children
	children, query, err := s.tracker.EpicChildren(ctx, epicKey)
	if err != nil {
		return nil, nil, trackerError("list children of "+epicKey, err)
	}

	result := &domain.EpicSyncResult{EpicKey: info.Key, EpicName: info.Name, Query: query}
	filter := strings.ToLower(strings.TrimSpace(titleFilter))

	// 3. Upsert each work item, linking it to the epic
	var changed []string
	for i := range children {
		child := &children[i]
		if domain.IsEpicType(child.IssueType) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(child.Summary), filter) {
			continue
		}
		result.Total++

		if child.EpicKey == "" {
			child.EpicKey = info.Key
		}
		if child.EpicName == "" {
			child.EpicName = info.Name
		}
		out, err := s.efforts.Add(ctx, TicketToRecord(child, category), driving.AddOptions{
			OverwriteCategory: !category.IsUnclassified(),
			OverwriteProject:  true,
			SkipReindex:       true,
		})
		switch {
		case err != nil:
			if errors.Is(err, domain.ErrPersistence) {
				return nil, nil, err
			}
			logger.Warn("sync epic %s: skipping %s: %v", epicKey, child.Key, err)
			result.Skipped++
		case out.Created:
			result.Added++
			changed = append(changed, child.Key)
		case out.Updated:
			result.Updated++
			changed = append(changed, child.Key)
		default:
			result.Skipped++
		}
	}

	s.metrics.SyncItems("epic", "added", result.Added)
	s.metrics.SyncItems("epic", "updated", result.Updated)
	s.metrics.SyncItems("epic", "skipped", result.Skipped)
	logger.Info("synced epic %s: total=%d added=%d updated=%d skipped=%d",
		epicKey, result.Total, result.Added, result.Updated, result.Skipped)
	return result, changed, nil
}

// StartCompletedEpicSync starts a background job importing every completed epic.
func (s *TrackerSync) StartCompletedEpicSync(ctx context.Context) (driving.JobHandle, error) {
	if s.tracker == nil {
		return nil, domain.ErrTrackerUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && !s.current.Status().State.IsTerminal() {
		return nil, fmt.Errorf("%w: job %s", domain.ErrSyncInProgress, s.current.ID())
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &syncJob{
		state: domain.SyncJob{
			ID:        s.newID(),
			Kind:      JobKindCompletedEpics,
			State:     domain.JobPending,
			StartedAt: s.now(),
		},
		done:   make(chan struct{}),
		cancel: cancel,
	}
	s.current = job

	go s.runCompletedEpics(jobCtx, job)
	return job, nil
}

// LastJob returns the most recent job.
func (s *TrackerSync) LastJob() (driving.JobHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

func (s *TrackerSync) runCompletedEpics(ctx context.Context, job *syncJob) {
	defer close(job.done)
	defer job.cancel()

	job.update(func(j *domain.SyncJob) {
		j.State = domain.JobRunning
		j.Message = "백업 중"
	})

	finish := func(state domain.JobState, msg string) {
		job.update(func(j *domain.SyncJob) {
			j.State = state
			j.Message = msg
			j.Current = ""
			j.EndedAt = s.now()
		})
		logger.Info("completed-epic sync %s: %s (%s)", job.ID(), state, msg)
	}

	if _, err := s.efforts.Backup(ctx); err != nil {
		finish(domain.JobFailed, "백업 실패: "+err.Error())
		return
	}

	epics, err := s.tracker.CompletedEpics(ctx, s.project)
	if err != nil {
		finish(domain.JobFailed, "완료된 Epic 조회 실패: "+err.Error())
		return
	}
	job.update(func(j *domain.SyncJob) {
		j.Total = len(epics)
		j.Message = fmt.Sprintf("%d개 Epic 동기화 중", len(epics))
	})

	var changed []string
	for i, epic := range epics {
		if ctx.Err() != nil {
			finish(domain.JobCancelled, fmt.Sprintf("%d/%d개 Epic 처리 후 취소됨", i, len(epics)))
			return
		}
		job.update(func(j *domain.SyncJob) { j.Current = epic.Key })

		_, ids, err := s.syncEpic(ctx, epic.Key, domain.Unclassified(), "")
		if domain.IsRateLimited(err) && s.pause(ctx) {
			logger.Info("completed-epic sync: %s throttled, retrying", epic.Key)
			_, ids, err = s.syncEpic(ctx, epic.Key, domain.Unclassified(), "")
		}
		job.update(func(j *domain.SyncJob) {
			if err != nil {
				j.Failed++
				j.FailedItems = append(j.FailedItems, epic.Key)
			} else {
				j.Completed++
			}
			j.Progress = (i + 1) * 100 / len(epics)
		})
		if err != nil {
			logger.Warn("completed-epic sync: %s failed: %v", epic.Key, err)
			continue
		}
		changed = append(changed, ids...)
	}

	if len(changed) > 0 {
		if err := s.efforts.Reindex(ctx, changed...); err != nil {
			finish(domain.JobFailed, "색인 실패: "+err.Error())
			return
		}
	}

	st := job.Status()
	if len(epics) == 0 {
		job.update(func(j *domain.SyncJob) { j.Progress = 100 })
	}
	finish(domain.JobSucceeded, fmt.Sprintf("%d개 Epic 동기화 완료 (실패 %d개)", st.Completed, st.Failed))
}

// pause waits retryDelay and reports false if ctx ended first.
func (s *TrackerSync) pause(ctx context.Context) bool {
	t := time.NewTimer(s.retryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func trackerError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrTrackerUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTrackerUnavailable, err)
}

func outcomeLabel(out *driving.AddOutcome) string {
	switch {
	case out.Created:
		return "added"
	case out.Updated:
		return "updated"
	default:
		return "skipped"
	}
}

// syncJob is the handle of one background sync.
type syncJob struct {
	mu     sync.RWMutex
	state  domain.SyncJob
	done   chan struct{}
	cancel context.CancelFunc
}

func (j *syncJob) ID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.ID
}

func (j *syncJob) Status() domain.SyncJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	st := j.state
	st.FailedItems = slices.Clone(j.state.FailedItems)
	return st
}

func (j *syncJob) Wait(ctx context.Context) (domain.SyncJob, error) {
	select {
	case <-j.done:
		return j.Status(), nil
	case <-ctx.Done():
		return j.Status(), ctx.Err()
	}
}

func (j *syncJob) Cancel() {
	j.cancel()
}

func (j *syncJob) update(fn func(*domain.SyncJob)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.state)
}
