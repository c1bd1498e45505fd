package github

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

// Ensure Tracker implements the interface.
var _ driven.Tracker = (*Tracker)(nil)

// Label prefixes and names understood by the tracker.
const (
	estimateLabel = "estimate:"
	bugLabel      = "bug"
	epicLabel     = "epic"
)

// Config configures the GitHub tracker.
type Config struct {
	Token string
	Owner string
	Repo  string

	// BaseURL overrides the API endpoint (GitHub Enterprise, tests).
	BaseURL string

	// MonthProjects are key prefixes whose estimates are in man-months.
	MonthProjects []string

	// DaysPerMonth converts man-months to days (default: 20).
	DaysPerMonth float64

	// RequestsPerSecond throttles API calls (default: 1.2).
	RequestsPerSecond float64
}

// Tracker reads issues and milestones from one GitHub repository.
type Tracker struct {
	client       *client
	prefix       string
	webURL       string
	monthly      bool
	daysPerMonth float64
}

// New creates a GitHub tracker. No request is made until first use.
func New(ctx context.Context, cfg Config) (*Tracker, error) {
	if cfg.Token == "" || cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: github token, owner and repo are required", domain.ErrInvalidInput)
	}
	if cfg.DaysPerMonth <= 0 {
		cfg.DaysPerMonth = 20
	}
	c, err := newClient(ctx, cfg.Token, cfg.Owner, cfg.Repo, cfg.BaseURL, cfg.RequestsPerSecond)
	if err != nil {
		return nil, err
	}
	prefix := keyPrefix(cfg.Repo)
	return &Tracker{
		client:       c,
		prefix:       prefix,
		webURL:       fmt.Sprintf("https://github.com/%s/%s", cfg.Owner, cfg.Repo),
		monthly:      slices.Contains(cfg.MonthProjects, prefix),
		daysPerMonth: cfg.DaysPerMonth,
	}, nil
}

// Name returns "github".
func (t *Tracker) Name() string {
	return string(domain.TrackerGitHub)
}

// Ping checks that the repository is reachable with the token.
func (t *Tracker) Ping(ctx context.Context) error {
	return t.client.validate(ctx)
}

// BrowseURL returns the web URL of an issue or milestone key.
func (t *Tracker) BrowseURL(key string) string {
	n, milestone, err := parseKey(t.prefix, key)
	if err != nil {
		return ""
	}
	if milestone {
		return fmt.Sprintf("%s/milestone/%d", t.webURL, n)
	}
	return fmt.Sprintf("%s/issues/%d", t.webURL, n)
}

// GetTicket fetches an issue with its comments. Pull requests are not tickets.
func (t *Tracker) GetTicket(ctx context.Context, key string) (*domain.Ticket, error) {
	n, milestone, err := parseKey(t.prefix, key)
	if err != nil {
		return nil, err
	}
	if milestone {
		return nil, fmt.Errorf("%w: %s is a milestone", domain.ErrInvalidInput, key)
	}

	issue, err := t.client.getIssue(ctx, n)
	if err != nil {
		return nil, err
	}
	if issue.IsPullRequest() {
		return nil, fmt.Errorf("%w: %s is a pull request", domain.ErrNotFound, key)
	}

	ticket := t.toTicket(issue)
	if issue.GetComments() > 0 {
		comments, err := t.client.listComments(ctx, n)
		if err != nil {
			return nil, err
		}
		ticket.Comments = mergeComments(comments)
	}
	return &ticket, nil
}

// Search runs a GitHub issue search scoped to the repository.
func (t *Tracker) Search(ctx context.Context, query string, limit int) ([]domain.Ticket, error) {
	issues, err := t.client.searchIssues(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return t.toTickets(issues), nil
}

// EpicInfo fetches a milestone.
func (t *Tracker) EpicInfo(ctx context.Context, epicKey string) (*domain.EpicInfo, error) {
	n, err := t.milestoneNumber(epicKey)
	if err != nil {
		return nil, err
	}
	m, err := t.client.getMilestone(ctx, n)
	if err != nil {
		return nil, err
	}
	return t.toEpic(m), nil
}

// EpicChildren lists every issue in a milestone.
func (t *Tracker) EpicChildren(ctx context.Context, epicKey string) ([]domain.Ticket, string, error) {
	n, err := t.milestoneNumber(epicKey)
	if err != nil {
		return nil, "", err
	}
	m, err := t.client.getMilestone(ctx, n)
	if err != nil {
		return nil, "", err
	}

	issues, err := t.client.listIssues(ctx, &gh.IssueListByRepoOptions{
		Milestone: strconv.Itoa(n),
		State:     "all",
	})
	if err != nil {
		return nil, "", err
	}

	tickets := t.toTickets(issues)
	for i := range tickets {
		tickets[i].EpicKey = epicKey
		tickets[i].EpicName = m.GetTitle()
	}
	return tickets, fmt.Sprintf("milestone:%q", m.GetTitle()), nil
}

// CompletedEpics lists closed milestones. project must be empty or match
// the repository key prefix.
func (t *Tracker) CompletedEpics(ctx context.Context, project string) ([]domain.EpicInfo, error) {
	if project != "" && !strings.EqualFold(project, t.prefix) {
		return nil, nil
	}
	milestones, err := t.client.listMilestones(ctx, "closed")
	if err != nil {
		return nil, err
	}
	epics := make([]domain.EpicInfo, 0, len(milestones))
	for _, m := range milestones {
		epics = append(epics, *t.toEpic(m))
	}
	return epics, nil
}

func (t *Tracker) milestoneNumber(key string) (int, error) {
	n, milestone, err := parseKey(t.prefix, key)
	if err != nil {
		return 0, err
	}
	if !milestone {
		return 0, fmt.Errorf("%w: %s is not a milestone key", domain.ErrInvalidInput, key)
	}
	return n, nil
}

func (t *Tracker) toEpic(m *gh.Milestone) *domain.EpicInfo {
	return &domain.EpicInfo{
		Key:     milestoneKey(t.prefix, m.GetNumber()),
		Name:    m.GetTitle(),
		Status:  m.GetState(),
		Project: t.prefix,
	}
}

func (t *Tracker) toTickets(issues []*gh.Issue) []domain.Ticket {
	tickets := make([]domain.Ticket, 0, len(issues))
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		tickets = append(tickets, t.toTicket(issue))
	}
	return tickets
}

func (t *Tracker) toTicket(issue *gh.Issue) domain.Ticket {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	points := EstimateFromLabels(labels)
	unit := domain.UnitManDay
	if t.monthly {
		unit = domain.UnitManMonth
	}

	ticket := domain.Ticket{
		Key:              issueKey(t.prefix, issue.GetNumber()),
		Summary:          issue.GetTitle(),
		IssueType:        IssueType(labels),
		Status:           issue.GetState(),
		Assignee:         issue.GetAssignee().GetLogin(),
		Description:      strings.TrimSpace(issue.GetBody()),
		Estimate:         domain.ConvertEstimate(points, unit, t.daysPerMonth),
		EstimateOriginal: points,
		EstimateUnit:     unit,
		Created:          issue.GetCreatedAt().Time,
		URL:              issue.GetHTMLURL(),
	}
	if m := issue.GetMilestone(); m != nil {
		ticket.EpicKey = milestoneKey(t.prefix, m.GetNumber())
		ticket.EpicName = m.GetTitle()
	}
	return ticket
}

// EstimateFromLabels returns the value of the first "estimate:N" label.
func EstimateFromLabels(labels []string) float64 {
	for _, l := range labels {
		rest, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(l)), estimateLabel)
		if !ok {
			continue
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64); err == nil && v >= 0 {
			return v
		}
	}
	return 0
}

// IssueType maps labels onto the tracker issue types.
func IssueType(labels []string) string {
	for _, l := range labels {
		switch strings.ToLower(l) {
		case epicLabel:
			return "Epic"
		case bugLabel:
			return "Bug"
		}
	}
	return "Task"
}

func mergeComments(comments []*gh.IssueComment) string {
	parts := make([]string, 0, len(comments))
	for _, c := range comments {
		body := strings.TrimSpace(c.GetBody())
		if body == "" {
			continue
		}
		if login := c.GetUser().GetLogin(); login != "" {
			body = login + ": " + body
		}
		parts = append(parts, body)
	}
	return strings.Join(parts, "\n\n")
}
