package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Distinct(t *testing.T) {
	all := []error{
		ErrNotFound, ErrInvalidInput, ErrInvalidCategory, ErrPersistence,
		ErrSyncInProgress, ErrUnsupportedType, ErrLLMUnavailable,
		ErrEmbeddingUnavailable, ErrVectorIndexUnavailable,
		ErrTrackerUnavailable, ErrRateLimited,
	}
	seen := make(map[string]bool)
	for _, err := range all {
		assert.False(t, seen[err.Error()], "duplicate message %q", err)
		seen[err.Error()] = true
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"llm", fmt.Errorf("answer: %w", ErrLLMUnavailable), true},
		{"embedding", fmt.Errorf("%w: ollama", ErrEmbeddingUnavailable), true},
		{"index", ErrVectorIndexUnavailable, true},
		{"tracker rate limited", fmt.Errorf("%w: %w: jira", ErrTrackerUnavailable, ErrRateLimited), true},
		{"not found", fmt.Errorf("ticket: %w", ErrNotFound), false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(fmt.Errorf("%w: %w: openai", ErrLLMUnavailable, ErrRateLimited)))
	assert.False(t, IsRateLimited(ErrTrackerUnavailable))
	assert.False(t, IsRateLimited(nil))
}
