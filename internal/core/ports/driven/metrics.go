package driven

import "time"

// Metrics records operational counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ObserveResolve records one resolved query.
	ObserveResolve(state, strategy string, elapsed time.Duration)

	// FeedbackRecorded records one feedback submission.
	FeedbackRecorded(polarity string, isNew, typeChanged bool)

	// BackendError records a failed call to an external backend.
	BackendError(backend string)

	// SyncItems records tickets processed by a tracker sync.
	SyncItems(kind, outcome string, n int)
}
