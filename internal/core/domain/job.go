package domain

import "time"

// JobState is the lifecycle state of a background job.
type JobState string

// Job states.
const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// IsTerminal reports whether the job has finished.
func (s JobState) IsTerminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// SyncJob is an immutable snapshot of a tracker synchronisation job.
type SyncJob struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	State       JobState  `json:"state"`
	Progress    int       `json:"progress"`
	Total       int       `json:"total"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	Current     string    `json:"current,omitempty"`
	FailedItems []string  `json:"failed_items,omitempty"`
	Message     string    `json:"message"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
}

// EpicSyncResult reports the outcome of synchronising one epic.
type EpicSyncResult struct {
	EpicKey  string `json:"epic_key"`
	EpicName string `json:"epic_name"`
	Total    int    `json:"total"`
	Added    int    `json:"added"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Query    string `json:"query,omitempty"`
}

// TicketSyncResult reports the outcome of synchronising one ticket.
type TicketSyncResult struct {
	TicketID string `json:"ticket_id"`
	Added    bool   `json:"added"`
	Updated  bool   `json:"updated"`
	Reason   string `json:"reason,omitempty"`
}
