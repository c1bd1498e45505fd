package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

func sampleFeedback() []domain.FeedbackRecord {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []domain.FeedbackRecord{
		{
			QAHash: "0123456789abcdef", Question: "로그인 공수", Answer: "3 M/D",
			Polarity: domain.PolarityAccepted, Count: 2, FirstSeenAt: ts, LastSeenAt: ts,
			ObservedBy: []string{"kim"},
		},
		{
			QAHash: "fedcba9876543210", Question: "결제 공수", Answer: "5 M/D",
			Polarity: domain.PolarityRejected, Count: 1, FirstSeenAt: ts, LastSeenAt: ts,
		},
	}
}

func TestFeedbackSubmit(t *testing.T) {
	m := setupMocks(t)

	out, err := run(t, "", "feedback", "submit", "accepted", "-q", "로그인 공수", "-a", "3 M/D", "--reporter", "lee")

	require.NoError(t, err)
	require.Len(t, m.feedback.submissions, 1)
	sub := m.feedback.submissions[0]
	assert.Equal(t, domain.PolarityAccepted, sub.Polarity)
	assert.Equal(t, "로그인 공수", sub.Question)
	assert.Equal(t, "3 M/D", sub.Answer)
	assert.Equal(t, "lee", sub.Reporter)
	assert.Contains(t, out, "Recorded accepted feedback hash1234.")
}

func TestFeedbackSubmit_Alias(t *testing.T) {
	m := setupMocks(t)

	_, err := run(t, "", "feedback", "submit", "bad", "-q", "q", "-a", "a")

	require.NoError(t, err)
	assert.Equal(t, domain.PolarityRejected, m.feedback.submissions[0].Polarity)
}

func TestFeedbackSubmit_InvalidPolarity(t *testing.T) {
	m := setupMocks(t)

	_, err := run(t, "", "feedback", "submit", "maybe", "-q", "q", "-a", "a")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid polarity")
	assert.Empty(t, m.feedback.submissions)
}

func TestFeedbackSubmit_MissingAnswer(t *testing.T) {
	setupMocks(t)

	_, err := run(t, "", "feedback", "submit", "accepted", "-q", "q")

	assert.Error(t, err)
}

func TestFeedbackSubmit_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome *domain.FeedbackOutcome
		want    []string
	}{
		{"moved", &domain.FeedbackOutcome{QAHash: "h", TypeChanged: true}, []string{"Feedback h moved to rejected."}},
		{"repeat", &domain.FeedbackOutcome{QAHash: "h", Count: 4}, []string{"Feedback h seen 4 times."}},
		{"removed", &domain.FeedbackOutcome{QAHash: "h", IsNew: true, RemovedAccepted: true},
			[]string{"Recorded rejected", "accepted answer for this question was removed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupMocks(t)
			m.feedback.outcome = tt.outcome

			out, err := run(t, "", "feedback", "submit", "rejected", "-q", "q", "-a", "a")

			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestFeedbackList(t *testing.T) {
	m := setupMocks(t)
	m.feedback.records = sampleFeedback()

	out, err := run(t, "", "feedback", "list", "--polarity", "accepted")

	require.NoError(t, err)
	assert.Equal(t, domain.PolarityAccepted, m.feedback.listedWith)
	assert.Contains(t, out, "01234567")
	assert.Contains(t, out, "로그인 공수")
	assert.Contains(t, out, "2 records")
}

func TestFeedbackList_Empty(t *testing.T) {
	setupMocks(t)

	out, err := run(t, "", "feedback", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No feedback recorded.")
}

func TestFeedbackList_JSON(t *testing.T) {
	m := setupMocks(t)
	m.feedback.records = sampleFeedback()

	out, err := run(t, "", "feedback", "list", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"qa_hash": "0123456789abcdef"`)
}

func TestFeedbackList_InvalidPolarity(t *testing.T) {
	setupMocks(t)

	_, err := run(t, "", "feedback", "list", "--polarity", "meh")

	assert.Error(t, err)
}

func TestFeedbackShow(t *testing.T) {
	m := setupMocks(t)
	m.feedback.records = sampleFeedback()

	out, err := run(t, "", "feedback", "show", "0123456789abcdef")

	require.NoError(t, err)
	assert.Contains(t, out, "Polarity:   accepted")
	assert.Contains(t, out, "First seen: 2026-03-02T09:00:00Z")
	assert.Contains(t, out, "Observed by: [kim]")
	assert.Contains(t, out, "A: 3 M/D")
}

func TestFeedbackShow_NotFound(t *testing.T) {
	setupMocks(t)

	_, err := run(t, "", "feedback", "show", "missing")

	assert.EqualError(t, err, "feedback not found: missing")
}

func TestFeedbackWeek(t *testing.T) {
	m := setupMocks(t)
	m.feedback.weekly = &domain.WeeklyFeedbackStats{
		Year: 2026, Week: 10, WeekStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		AnswersServed: 8, Accepted: 6, Rejected: 1, Ratio: 0.75,
	}

	out, err := run(t, "", "feedback", "week")

	require.NoError(t, err)
	assert.Contains(t, out, "Week 2026-W10 (from 2026-03-02)")
	assert.Contains(t, out, "Acceptance:     75.0%")
}

func TestFeedbackReindex(t *testing.T) {
	m := setupMocks(t)

	out, err := run(t, "", "feedback", "reindex")

	require.NoError(t, err)
	assert.True(t, m.feedback.reindexed)
	assert.Contains(t, out, "reindexed")
}

func TestFeedbackReindex_Error(t *testing.T) {
	m := setupMocks(t)
	m.feedback.err = errors.New("index offline")

	_, err := run(t, "", "feedback", "reindex")

	assert.ErrorContains(t, err, "index offline")
}

func TestFeedback_NotConfigured(t *testing.T) {
	setupMocks(t)
	feedbackService = nil

	for _, args := range [][]string{
		{"feedback", "list"},
		{"feedback", "week"},
		{"feedback", "reindex"},
		{"feedback", "show", "x"},
	} {
		_, err := run(t, "", args...)
		assert.EqualError(t, err, "feedback service not configured", args)
	}
}
