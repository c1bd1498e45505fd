package jira

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
	"github.com/custodia-labs/effortqa/internal/logger"
)

// Ensure Tracker implements the interface.
var _ driven.Tracker = (*Tracker)(nil)

const (
	// DefaultDaysPerMonth converts man-month estimates to effort-days.
	DefaultDaysPerMonth = 20

	// searchPageSize is the page size for JQL searches.
	searchPageSize = 100

	// createdLayout is Jira's timestamp format.
	createdLayout = "2006-01-02T15:04:05.000-0700"
)

// epicLinkField is the classic-project Epic Link custom field.
const epicLinkField = "customfield_10014"

// baseFields are requested for every ticket.
var baseFields = []string{
	"summary", "description", "status", "assignee", "created",
	"issuetype", "comment", "parent", "project", epicLinkField,
}

// Config holds Jira connection and extraction settings.
type Config struct {
	BaseURL  string
	Username string
	APIToken string

	// StoryPointFields is the estimate field priority list.
	StoryPointFields []string

	// MonthProjects are project keys whose estimates are in man-months.
	MonthProjects []string

	// DaysPerMonth converts man-months to days (default: 20).
	DaysPerMonth float64

	Timeout           time.Duration
	RequestsPerSecond float64
}

// Tracker reads tickets and epics from Jira.
type Tracker struct {
	client        *client
	baseURL       string
	pointFields   []string
	monthProjects []string
	daysPerMonth  float64
}

// New creates a Jira tracker.
func New(cfg Config) (*Tracker, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: jira base URL is required", domain.ErrInvalidInput)
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("%w: jira API token is required", domain.ErrInvalidInput)
	}
	if len(cfg.StoryPointFields) == 0 {
		cfg.StoryPointFields = domain.DefaultStoryPointFields()
	}
	if cfg.DaysPerMonth <= 0 {
		cfg.DaysPerMonth = DefaultDaysPerMonth
	}

	return &Tracker{
		client:        newClient(cfg.BaseURL, cfg.Username, cfg.APIToken, cfg.Timeout, cfg.RequestsPerSecond),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		pointFields:   cfg.StoryPointFields,
		monthProjects: cfg.MonthProjects,
		daysPerMonth:  cfg.DaysPerMonth,
	}, nil
}

// Name returns "jira".
func (t *Tracker) Name() string {
	return string(domain.TrackerJira)
}

// Ping checks that the credentials are accepted.
func (t *Tracker) Ping(ctx context.Context) error {
	var me struct {
		AccountID string `json:"accountId"`
	}
	return t.client.get(ctx, "/rest/api/3/myself", nil, &me)
}

// BrowseURL returns the issue's web URL.
func (t *Tracker) BrowseURL(key string) string {
	return t.baseURL + "/browse/" + key
}

// GetTicket fetches one issue.
func (t *Tracker) GetTicket(ctx context.Context, key string) (*domain.Ticket, error) {
	var iss issue
	q := url.Values{"fields": {strings.Join(t.fields(), ",")}}
	if err := t.client.get(ctx, "/rest/api/3/issue/"+url.PathEscape(key), q, &iss); err != nil {
		return nil, err
	}
	ticket := t.toTicket(&iss)
	return &ticket, nil
}

// Search runs a JQL query. A limit of zero or less returns every match.
func (t *Tracker) Search(ctx context.Context, jql string, limit int) ([]domain.Ticket, error) {
	issues, err := t.search(ctx, jql, t.fields(), limit)
	if err != nil {
		return nil, err
	}
	tickets := make([]domain.Ticket, len(issues))
	for i := range issues {
		tickets[i] = t.toTicket(&issues[i])
	}
	return tickets, nil
}

// EpicInfo fetches an epic's summary, status and project.
func (t *Tracker) EpicInfo(ctx context.Context, epicKey string) (*domain.EpicInfo, error) {
	var iss issue
	q := url.Values{"fields": {"summary,status,issuetype,project"}}
	if err := t.client.get(ctx, "/rest/api/3/issue/"+url.PathEscape(epicKey), q, &iss); err != nil {
		return nil, err
	}
	f := iss.decode()
	name := f.Summary
	if name == "" {
		name = iss.Key
	}
	return &domain.EpicInfo{Key: iss.Key, Name: name, Status: f.Status.Name, Project: f.Project.Key}, nil
}

// childQueries are tried in order; the first that returns issues wins.
// Classic and team-managed projects link children differently.
func childQueries(epicKey string) []string {
	return []string{
		fmt.Sprintf(`"Epic Link" = %s`, epicKey),
		fmt.Sprintf(`parent = %s`, epicKey),
		fmt.Sprintf(`epic = %s`, epicKey),
		fmt.Sprintf(`issue in linkedIssues(%s, "is child of")`, epicKey),
	}
}

// EpicChildren returns the issues under an epic together with the JQL
// that found them. An epic without children yields an empty result.
func (t *Tracker) EpicChildren(ctx context.Context, epicKey string) ([]domain.Ticket, string, error) {
	var lastErr error
	for _, jql := range childQueries(epicKey) {
		tickets, err := t.Search(ctx, jql, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			logger.Debug("jira: %s: %v", jql, err)
			lastErr = err
			continue
		}
		if len(tickets) > 0 {
			for i := range tickets {
				if tickets[i].EpicKey == "" {
					tickets[i].EpicKey = epicKey
				}
			}
			return tickets, jql, nil
		}
	}
	if lastErr != nil && !isInvalidQuery(lastErr) {
		return nil, "", lastErr
	}
	return nil, "", nil
}

// CompletedEpics lists epics whose status category is Done, most
// recently updated first.
func (t *Tracker) CompletedEpics(ctx context.Context, project string) ([]domain.EpicInfo, error) {
	jql := "issuetype = Epic AND statusCategory = Done"
	if project != "" {
		jql = fmt.Sprintf("project = %s AND %s", project, jql)
	}
	jql += " ORDER BY updated DESC"

	issues, err := t.search(ctx, jql, []string{"summary", "status", "project"}, 0)
	if err != nil {
		return nil, err
	}
	epics := make([]domain.EpicInfo, 0, len(issues))
	for i := range issues {
		f := issues[i].decode()
		epics = append(epics, domain.EpicInfo{
			Key:     issues[i].Key,
			Name:    f.Summary,
			Status:  f.Status.Name,
			Project: f.Project.Key,
		})
	}
	return epics, nil
}

func (t *Tracker) fields() []string {
	fields := slices.Clone(baseFields)
	for _, f := range t.pointFields {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

type searchResponse struct {
	Issues        []issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
	IsLast        bool    `json:"isLast"`
}

func (t *Tracker) search(ctx context.Context, jql string, fields []string, limit int) ([]issue, error) {
	var out []issue
	token := ""
	for {
		size := searchPageSize
		if limit > 0 && limit-len(out) < size {
			size = limit - len(out)
		}
		q := url.Values{
			"jql":        {jql},
			"maxResults": {strconv.Itoa(size)},
			"fields":     {strings.Join(fields, ",")},
		}
		if token != "" {
			q.Set("nextPageToken", token)
		}

		var page searchResponse
		if err := t.client.get(ctx, "/rest/api/3/search/jql", q, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Issues...)

		if page.IsLast || page.NextPageToken == "" || len(page.Issues) == 0 {
			break
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		token = page.NextPageToken
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// toTicket flattens an issue into a ticket with its estimate in days.
func (t *Tracker) toTicket(iss *issue) domain.Ticket {
	f := iss.decode()
	points := ExtractStoryPoints(iss.Fields, t.pointFields)

	ticket := domain.Ticket{
		Key:              iss.Key,
		Summary:          f.Summary,
		IssueType:        f.IssueType.Name,
		Status:           f.Status.Name,
		Assignee:         f.Assignee.name(),
		Description:      FlattenText(f.Description),
		Comments:         mergeComments(f.Comment.Comments),
		EstimateOriginal: points,
		EstimateUnit:     domain.UnitManDay,
		URL:              t.BrowseURL(iss.Key),
	}
	if slices.Contains(t.monthProjects, ProjectKey(iss.Key)) {
		ticket.EstimateUnit = domain.UnitManMonth
	}
	ticket.Estimate = domain.ConvertEstimate(points, ticket.EstimateUnit, t.daysPerMonth)

	if created, err := time.Parse(createdLayout, f.Created); err == nil {
		ticket.Created = created
	}

	switch {
	case f.Parent != nil && domain.IsEpicType(f.Parent.Fields.IssueType.Name):
		ticket.EpicKey = f.Parent.Key
		ticket.EpicName = f.Parent.Fields.Summary
	case f.EpicLink != "":
		ticket.EpicKey = f.EpicLink
	}
	return ticket
}

// isInvalidQuery reports a JQL rejection, such as "Epic Link" on a
// team-managed project.
func isInvalidQuery(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput)
}
