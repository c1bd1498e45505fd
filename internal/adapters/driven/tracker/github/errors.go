package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// ErrInvalidKey is returned for keys that do not name an issue or milestone
// of the configured repository.
var ErrInvalidKey = errors.New("github: invalid key")

// RateLimitError reports an exhausted quota and when it resets.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Unwrap lets callers match the domain rate-limit error.
func (e *RateLimitError) Unwrap() []error {
	return []error{domain.ErrTrackerUnavailable, domain.ErrRateLimited}
}

// wrapError maps go-github errors onto domain errors.
func wrapError(err error, op string, limiter *RateLimiter) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &RateLimitError{ResetAt: limiter.ResetTime()}
	}

	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		switch apiErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: github %s: %s", domain.ErrNotFound, op, apiErr.Message)
		case http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: github %s: %s", domain.ErrInvalidInput, op, apiErr.Message)
		}
		return fmt.Errorf("%w: github %s: status %d: %s",
			domain.ErrTrackerUnavailable, op, apiErr.Response.StatusCode, apiErr.Message)
	}

	return fmt.Errorf("%w: github %s: %w", domain.ErrTrackerUnavailable, op, err)
}
