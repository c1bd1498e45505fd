package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Resolver == nil {
		ports.Resolver = &mockResolver{}
	}
	server, err := NewServer(ports, "test")
	require.NoError(t, err)
	return server
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the resolver result", func(t *testing.T) {
		resolver := &mockResolver{result: &domain.ResolveResult{
			Question:         "로그인 공수",
			Answer:           "로그인 기능은 5 M/D 입니다.",
			State:            domain.StateSemanticAnswer,
			Strategy:         "original",
			FeedbackEligible: true,
			Sources:          []domain.SourceRef{{TicketID: "ENOMIX-1", Source: "effort"}},
		}}
		server := newTestServer(t, &Ports{Resolver: resolver})

		_, out, err := server.handleAsk(ctx, nil, AskInput{Question: "로그인 공수"})

		require.NoError(t, err)
		assert.Equal(t, "로그인 기능은 5 M/D 입니다.", out.Answer)
		assert.Equal(t, "semantic_answer", out.State)
		assert.Equal(t, "original", out.Strategy)
		assert.True(t, out.FeedbackEligible)
		require.Len(t, out.Sources, 1)
		assert.Equal(t, "ENOMIX-1", out.Sources[0].TicketID)
	})

	t.Run("passes exclusions through", func(t *testing.T) {
		resolver := &mockResolver{}
		server := newTestServer(t, &Ports{Resolver: resolver})

		_, out, err := server.handleAsk(ctx, nil, AskInput{
			Question:       "결제 공수",
			ExcludeTickets: []string{"ENOMIX-2"},
		})

		require.NoError(t, err)
		assert.Equal(t, []string{"ENOMIX-2"}, resolver.excluded)
		assert.NotNil(t, out.Sources)
	})

	t.Run("backend errors are reported in the output", func(t *testing.T) {
		resolver := &mockResolver{result: &domain.ResolveResult{
			Answer: domain.MsgNotFound,
			State:  domain.StateNoAnswer,
			Err:    "llm unavailable",
		}}
		server := newTestServer(t, &Ports{Resolver: resolver})

		_, out, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})

		require.NoError(t, err)
		assert.Equal(t, "llm unavailable", out.Error)
	})
}

func TestServer_handleFeedback(t *testing.T) {
	ctx := context.Background()

	t.Run("records accepted feedback", func(t *testing.T) {
		fb := &mockFeedbackService{}
		server := newTestServer(t, &Ports{Feedback: fb})

		_, out, err := server.handleFeedback(ctx, nil, FeedbackInput{
			Question: "q", Answer: "a", Polarity: "accepted", Reporter: "kim",
		})

		require.NoError(t, err)
		assert.True(t, out.IsNew)
		assert.Equal(t, domain.QAHash("q", "a"), out.QAHash)
		require.Len(t, fb.submissions, 1)
		assert.Equal(t, domain.PolarityAccepted, fb.submissions[0].Polarity)
		assert.Equal(t, "kim", fb.submissions[0].Reporter)
	})

	t.Run("rejects unknown polarity", func(t *testing.T) {
		fb := &mockFeedbackService{}
		server := newTestServer(t, &Ports{Feedback: fb})

		_, _, err := server.handleFeedback(ctx, nil, FeedbackInput{Question: "q", Answer: "a", Polarity: "maybe"})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, fb.submissions)
	})

	t.Run("missing service", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, _, err := server.handleFeedback(ctx, nil, FeedbackInput{Polarity: "accepted"})

		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		server := newTestServer(t, &Ports{Feedback: &mockFeedbackService{err: domain.ErrPersistence}})

		_, _, err := server.handleFeedback(ctx, nil, FeedbackInput{Question: "q", Answer: "a", Polarity: "rejected"})

		assert.ErrorIs(t, err, domain.ErrPersistence)
	})
}

func TestServer_handleAggregate(t *testing.T) {
	ctx := context.Background()

	t.Run("summarises groups", func(t *testing.T) {
		epics := &mockEpicAggregator{groups: []domain.EpicGroup{
			{ProjectKey: "ENOMIX-100", ProjectName: "챗봇 고도화", Total: 12.5, Count: 3},
		}}
		server := newTestServer(t, &Ports{Epics: epics})

		_, out, err := server.handleAggregate(ctx, nil, AggregateInput{Keyword: "챗봇"})

		require.NoError(t, err)
		assert.Equal(t, "챗봇 report", out.Report)
		require.Len(t, out.Projects, 1)
		assert.Equal(t, ProjectSummary{Key: "ENOMIX-100", Name: "챗봇 고도화", Total: 12.5, Count: 3}, out.Projects[0])
	})

	t.Run("no match returns the no-epic message", func(t *testing.T) {
		server := newTestServer(t, &Ports{Epics: &mockEpicAggregator{}})

		_, out, err := server.handleAggregate(ctx, nil, AggregateInput{Keyword: "없는"})

		require.NoError(t, err)
		assert.Equal(t, domain.MsgNoEpic, out.Report)
		assert.Empty(t, out.Projects)
	})

	t.Run("returns error on failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Epics: &mockEpicAggregator{err: errors.New("store down")}})

		_, _, err := server.handleAggregate(ctx, nil, AggregateInput{Keyword: "x"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")
	})
}

func TestServer_handleStats(t *testing.T) {
	ctx := context.Background()

	stats := &mockStatsService{overview: &driving.Overview{
		Effort:         &domain.EffortStats{TotalTickets: 4, TotalEffort: 10, AverageEffort: 2.5, Unclassified: 1},
		Feedback:       &domain.WeeklyFeedbackStats{AnswersServed: 10, Accepted: 4, Ratio: 0.4},
		Accepted:       7,
		Rejected:       2,
		IndexDocuments: 11,
	}}
	server := newTestServer(t, &Ports{Stats: stats})

	_, out, err := server.handleStats(ctx, nil, StatsInput{})

	require.NoError(t, err)
	assert.Equal(t, StatsOutput{
		TotalTickets:   4,
		TotalEffort:    10,
		AverageEffort:  2.5,
		Unclassified:   1,
		AcceptedTotal:  7,
		RejectedTotal:  2,
		WeekServed:     10,
		WeekAccepted:   4,
		WeekAcceptance: 0.4,
		IndexDocuments: 11,
	}, out)
}

func TestStatsOutput_NilSections(t *testing.T) {
	out := statsOutput(&driving.Overview{Accepted: 1})
	assert.Equal(t, 1, out.AcceptedTotal)
	assert.Zero(t, out.TotalTickets)
	assert.Zero(t, out.WeekServed)
}
