package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driving"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// AskInput is the input schema for the ask_effort tool.
type AskInput struct {
	Question       string   `json:"question" jsonschema:"the effort question, e.g. how long did the login page take"`
	ExcludeTickets []string `json:"exclude_tickets,omitempty" jsonschema:"ticket IDs to leave out of retrieval when re-asking"`
}

// AskOutput is the output schema for the ask_effort tool.
type AskOutput struct {
	Answer           string             `json:"answer"`
	State            string             `json:"state"`
	Strategy         string             `json:"strategy,omitempty"`
	Reason           string             `json:"reason,omitempty"`
	FeedbackEligible bool               `json:"feedback_eligible"`
	Sources          []domain.SourceRef `json:"sources"`
	Error            string             `json:"error,omitempty"`
}

// FeedbackInput is the input schema for the submit_feedback tool.
type FeedbackInput struct {
	Question string `json:"question" jsonschema:"the question exactly as asked"`
	Answer   string `json:"answer" jsonschema:"the answer exactly as returned by ask_effort"`
	Polarity string `json:"polarity" jsonschema:"accepted or rejected"`
	Reporter string `json:"reporter,omitempty" jsonschema:"who is giving the feedback"`
}

// AggregateInput is the input schema for the aggregate_project tool.
type AggregateInput struct {
	Keyword string `json:"keyword" jsonschema:"project (Epic) name or key to roll up"`
}

// AggregateOutput is the output schema for the aggregate_project tool.
type AggregateOutput struct {
	Report   string           `json:"report"`
	Projects []ProjectSummary `json:"projects"`
}

// ProjectSummary is one project in an aggregate_project result.
type ProjectSummary struct {
	Key   string  `json:"key"`
	Name  string  `json:"name"`
	Total float64 `json:"total_man_days"`
	Count int     `json:"tasks"`
}

// StatsInput is the input schema for the effort_stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the effort_stats tool.
type StatsOutput struct {
	TotalTickets   int     `json:"total_tickets"`
	TotalEffort    float64 `json:"total_effort"`
	AverageEffort  float64 `json:"average_effort"`
	Unclassified   int     `json:"unclassified"`
	AcceptedTotal  int     `json:"accepted_total"`
	RejectedTotal  int     `json:"rejected_total"`
	WeekServed     int     `json:"week_answers_served"`
	WeekAccepted   int     `json:"week_accepted"`
	WeekAcceptance float64 `json:"week_acceptance"`
	IndexDocuments int     `json:"index_documents"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "ask_effort",
		Description: "Answer an effort question from historical tickets, accepted answers and project roll-ups",
	}, s.handleAsk)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "submit_feedback",
		Description: "Accept or reject an answer returned by ask_effort",
	}, s.handleFeedback)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "aggregate_project",
		Description: "Roll up effort by project (Epic) with per-phase and per-member totals",
	}, s.handleAggregate)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "effort_stats",
		Description: "Summarise effort records and this week's answer acceptance",
	}, s.handleStats)
}

// handleAsk handles the ask_effort tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	reqID := uuid.NewString()
	logger.Debug("mcp[%s] ask_effort: %q", reqID, input.Question)

	var result *domain.ResolveResult
	if len(input.ExcludeTickets) > 0 {
		result = s.ports.Resolver.ResolveExcluding(ctx, input.Question, input.ExcludeTickets)
	} else {
		result = s.ports.Resolver.Resolve(ctx, input.Question)
	}

	logger.Debug("mcp[%s] ask_effort: state=%s", reqID, result.State)

	sources := result.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	return nil, AskOutput{
		Answer:           result.Answer,
		State:            result.State.String(),
		Strategy:         result.Strategy,
		Reason:           result.Reason,
		FeedbackEligible: result.FeedbackEligible,
		Sources:          sources,
		Error:            result.Err,
	}, nil
}

// handleFeedback handles the submit_feedback tool invocation.
func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, domain.FeedbackOutcome, error) {
	if s.ports.Feedback == nil {
		return nil, domain.FeedbackOutcome{}, ErrServiceUnavailable
	}

	polarity, err := domain.ParsePolarity(input.Polarity)
	if err != nil {
		return nil, domain.FeedbackOutcome{}, fmt.Errorf("polarity must be accepted or rejected: %w", err)
	}

	outcome, err := s.ports.Feedback.Record(ctx, domain.FeedbackSubmission{
		Question: input.Question,
		Answer:   input.Answer,
		Polarity: polarity,
		Reporter: input.Reporter,
	})
	if err != nil {
		return nil, domain.FeedbackOutcome{}, err
	}
	return nil, *outcome, nil
}

// handleAggregate handles the aggregate_project tool invocation.
func (s *Server) handleAggregate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AggregateInput,
) (*mcp.CallToolResult, AggregateOutput, error) {
	if s.ports.Epics == nil {
		return nil, AggregateOutput{}, ErrServiceUnavailable
	}

	groups, err := s.ports.Epics.Aggregate(ctx, input.Keyword)
	if err != nil {
		return nil, AggregateOutput{}, err
	}
	if len(groups) == 0 {
		return nil, AggregateOutput{Report: domain.MsgNoEpic, Projects: []ProjectSummary{}}, nil
	}

	return nil, AggregateOutput{
		Report:   s.ports.Epics.Render(input.Keyword, groups),
		Projects: projectSummaries(groups),
	}, nil
}

// handleStats handles the effort_stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	if s.ports.Stats == nil {
		return nil, StatsOutput{}, ErrServiceUnavailable
	}

	overview, err := s.ports.Stats.Overview(ctx, time.Now())
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, statsOutput(overview), nil
}

func projectSummaries(groups []domain.EpicGroup) []ProjectSummary {
	out := make([]ProjectSummary, len(groups))
	for i := range groups {
		out[i] = ProjectSummary{
			Key:   groups[i].ProjectKey,
			Name:  groups[i].ProjectName,
			Total: groups[i].Total,
			Count: groups[i].Count,
		}
	}
	return out
}

func statsOutput(o *driving.Overview) StatsOutput {
	out := StatsOutput{
		AcceptedTotal:  o.Accepted,
		RejectedTotal:  o.Rejected,
		IndexDocuments: o.IndexDocuments,
	}
	if o.Effort != nil {
		out.TotalTickets = o.Effort.TotalTickets
		out.TotalEffort = o.Effort.TotalEffort
		out.AverageEffort = o.Effort.AverageEffort
		out.Unclassified = o.Effort.Unclassified
	}
	if o.Feedback != nil {
		out.WeekServed = o.Feedback.AnswersServed
		out.WeekAccepted = o.Feedback.Accepted
		out.WeekAcceptance = o.Feedback.Ratio
	}
	return out
}
