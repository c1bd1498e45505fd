package cli

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func TestSyncTicket(t *testing.T) {
	m := setupMocks(t)

	out, err := run(t, "", "sync", "ticket", "PROJ-7", "-c", "개발 > 백엔드 > API")

	require.NoError(t, err)
	assert.Equal(t, domain.NewCategory("개발", "백엔드", "API"), m.tracker.category)
	assert.Contains(t, out, "Added PROJ-7.")
}

func TestSyncTicket_Results(t *testing.T) {
	tests := []struct {
		name   string
		result *domain.TicketSyncResult
		want   string
	}{
		{"updated", &domain.TicketSyncResult{TicketID: "P-1", Updated: true}, "Updated P-1."},
		{"skipped", &domain.TicketSyncResult{TicketID: "P-1", Reason: "no estimate"}, "Skipped P-1: no estimate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupMocks(t)
			m.tracker.ticketResult = tt.result

			out, err := run(t, "", "sync", "ticket", "P-1")

			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.True(t, m.tracker.category.IsUnclassified())
		})
	}
}

func TestSyncTicket_InvalidCategory(t *testing.T) {
	setupMocks(t)

	_, err := run(t, "", "sync", "ticket", "P-1", "-c", "a > b")

	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestSyncTicket_TrackerError(t *testing.T) {
	m := setupMocks(t)
	m.tracker.err = domain.ErrTrackerUnavailable

	_, err := run(t, "", "sync", "ticket", "P-1")

	assert.ErrorIs(t, err, domain.ErrTrackerUnavailable)
	assert.ErrorContains(t, err, "effortqa config tracker")
}

func TestSyncFailed_Hints(t *testing.T) {
	throttled := fmt.Errorf("%w: %w: jira", domain.ErrTrackerUnavailable, domain.ErrRateLimited)
	assert.ErrorContains(t, syncFailed(throttled), "retry later")
	assert.ErrorIs(t, syncFailed(throttled), domain.ErrRateLimited)

	assert.EqualError(t, syncFailed(domain.ErrNotFound), "sync failed: not found")
}

func TestSyncEpic(t *testing.T) {
	m := setupMocks(t)

	out, err := run(t, "", "sync", "epic", "EPIC-1", "--filter", "[BE]")

	require.NoError(t, err)
	assert.Equal(t, "[BE]", m.tracker.filter)
	assert.Contains(t, out, "Synchronising epic EPIC-1...")
	assert.Contains(t, out, "EPIC-1 Login: 3 tickets, 2 added, 0 updated, 1 skipped")
}

func TestSyncCompleted_NoWait(t *testing.T) {
	m := setupMocks(t)
	m.tracker.job = &mockJob{id: "job-1", wait: make(chan struct{})}

	out, err := run(t, "", "sync", "completed", "--no-wait")

	require.NoError(t, err)
	assert.Contains(t, out, "Started job job-1")
	assert.NotContains(t, out, "State:")
}

func TestSyncCompleted_WaitsWithProgress(t *testing.T) {
	m := setupMocks(t)
	prev := syncPollInterval
	syncPollInterval = time.Millisecond
	t.Cleanup(func() { syncPollInterval = prev })

	job := &mockJob{
		id:     "job-2",
		wait:   make(chan struct{}),
		states: []domain.SyncJob{{Progress: 50, Total: 2, Completed: 1, Current: "EPIC-2"}},
		final: domain.SyncJob{
			ID: "job-2", Kind: "completed-epics", State: domain.JobSucceeded,
			Progress: 100, Total: 2, Completed: 2,
			StartedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			EndedAt:   time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC),
		},
	}
	m.tracker.job = job
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(job.wait)
	}()

	out, err := run(t, "", "sync", "completed")

	require.NoError(t, err)
	assert.Contains(t, out, " 50%  1/2 epics  EPIC-2")
	assert.Contains(t, out, "State:     succeeded")
	assert.Contains(t, out, "Progress:  100% (2/2, 0 failed)")
	assert.Contains(t, out, "Ended:     2026-03-02T09:05:00Z")
}

func TestSyncCompleted_Failed(t *testing.T) {
	m := setupMocks(t)
	m.tracker.job = &mockJob{
		id: "job-3",
		final: domain.SyncJob{
			ID: "job-3", State: domain.JobFailed, Failed: 1,
			Message: "tracker down", FailedItems: []string{"EPIC-9"},
		},
	}

	out, err := run(t, "", "sync", "completed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracker down")
	assert.Contains(t, out, "failed: EPIC-9")
}

func TestSyncCompleted_AlreadyRunning(t *testing.T) {
	m := setupMocks(t)
	m.tracker.err = domain.ErrSyncInProgress

	_, err := run(t, "", "sync", "completed")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestSyncStatus(t *testing.T) {
	m := setupMocks(t)

	out, err := run(t, "", "sync", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "No sync job has run.")

	m.tracker.last = &mockJob{final: domain.SyncJob{
		ID: "job-4", State: domain.JobRunning, Progress: 30, Current: "EPIC-5",
	}}
	out, err = run(t, "", "sync", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Job:       job-4")
	assert.Contains(t, out, "Current:   EPIC-5")
}

func TestSync_NotConfigured(t *testing.T) {
	setupMocks(t)
	trackerSync = nil

	_, err := run(t, "", "sync", "status")

	assert.EqualError(t, err, "tracker not configured")
}
