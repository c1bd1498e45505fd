package domain

import "errors"

// Sentinel errors. Adapters wrap them with %w so callers can branch with
// errors.Is regardless of which provider or store failed.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCategory is returned for a category triple that does not
	// resolve against the current taxonomy.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrPersistence wraps any failed store write.
	ErrPersistence = errors.New("persistence failure")

	// ErrSyncInProgress rejects a second completed-epic job or a task
	// that is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	ErrUnsupportedType = errors.New("unsupported type")
)

// Unavailability errors. Each one disables a feature rather than failing
// the process: no LLM means no synthesised answers, no embeddings or index
// means no semantic retrieval, no tracker means no sync.
var (
	ErrLLMUnavailable         = errors.New("LLM service unavailable")
	ErrEmbeddingUnavailable   = errors.New("embedding service unavailable")
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
	ErrTrackerUnavailable     = errors.New("ticket tracker unavailable")

	// ErrRateLimited is wrapped alongside one of the errors above when
	// the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")
)

// IsUnavailable reports whether err means an external service could not
// be used, as opposed to bad input or a missing entity.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrLLMUnavailable) ||
		errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrVectorIndexUnavailable) ||
		errors.Is(err, ErrTrackerUnavailable)
}

// IsRateLimited reports whether err was caused by provider throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
