package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

const workIssue = `{
	"key": "WORK-7",
	"fields": {
		"summary": "정산 배치 개선",
		"description": {"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"기존 배치 재사용"}]}]},
		"status": {"name": "완료"},
		"issuetype": {"name": "작업"},
		"assignee": {"displayName": "이영희"},
		"created": "2024-03-05T10:30:00.000+0900",
		"parent": {"key": "WORK-1", "fields": {"summary": "정산 고도화", "issuetype": {"name": "Epic"}}},
		"comment": {"comments": [
			{"author": {"displayName": "박민수"}, "body": "검토 완료"},
			{"author": {"displayName": "이영희"}, "body": {"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"반영했습니다"}]}]}}
		]},
		"customfield_10105": 0.5
	}
}`

type jiraServer struct {
	*httptest.Server
	queries []string
}

func newJiraServer(t *testing.T) *jiraServer {
	t.Helper()
	js := &jiraServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/rest/api/3/myself", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "me@example.com" || pass != "token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"accountId":"abc"}`))
	})
	mux.HandleFunc("/rest/api/3/issue/WORK-7", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("fields"), "customfield_10105")
		_, _ = w.Write([]byte(workIssue))
	})
	mux.HandleFunc("/rest/api/3/issue/WORK-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"key":"WORK-1","fields":{"summary":"정산 고도화","status":{"name":"완료"},"project":{"key":"WORK"}}}`))
	})
	mux.HandleFunc("/rest/api/3/issue/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorMessages":["Issue does not exist"]}`))
	})
	mux.HandleFunc("/rest/api/3/search/jql", func(w http.ResponseWriter, r *http.Request) {
		jql := r.URL.Query().Get("jql")
		js.queries = append(js.queries, jql)
		switch {
		case strings.HasPrefix(jql, `"Epic Link"`):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errorMessages":["Field 'Epic Link' does not exist"]}`))
		case strings.HasPrefix(jql, "parent = WORK-1"):
			if r.URL.Query().Get("nextPageToken") == "" {
				_, _ = w.Write([]byte(`{"issues":[` + workIssue + `],"nextPageToken":"p2","isLast":false}`))
				return
			}
			_, _ = w.Write([]byte(`{"issues":[{"key":"WORK-8","fields":{"summary":"정산 테스트","issuetype":{"name":"Task"},"customfield_10016":"3"}}],"isLast":true}`))
		case strings.Contains(jql, "statusCategory = Done"):
			_, _ = w.Write([]byte(`{"issues":[{"key":"WORK-1","fields":{"summary":"정산 고도화","status":{"name":"완료"},"project":{"key":"WORK"}}}],"isLast":true}`))
		default:
			_, _ = w.Write([]byte(`{"issues":[],"isLast":true}`))
		}
	})

	js.Server = httptest.NewServer(mux)
	t.Cleanup(js.Close)
	return js
}

func newTestTracker(t *testing.T, js *jiraServer) *Tracker {
	t.Helper()
	tr, err := New(Config{
		BaseURL:           js.URL + "/",
		Username:          "me@example.com",
		APIToken:          "token",
		MonthProjects:     []string{"WORK"},
		DaysPerMonth:      20,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return tr
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{APIToken: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New(Config{BaseURL: "https://jira.example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	tr, err := New(Config{BaseURL: "https://jira.example.com/", APIToken: "x"})
	require.NoError(t, err)
	assert.Equal(t, "jira", tr.Name())
	assert.Equal(t, "https://jira.example.com/browse/A-1", tr.BrowseURL("A-1"))
	assert.Equal(t, domain.DefaultStoryPointFields(), tr.pointFields)
	assert.Equal(t, float64(DefaultDaysPerMonth), tr.daysPerMonth)
}

func TestTracker_Ping(t *testing.T) {
	js := newJiraServer(t)
	require.NoError(t, newTestTracker(t, js).Ping(context.Background()))

	bad, err := New(Config{BaseURL: js.URL, Username: "me@example.com", APIToken: "wrong"})
	require.NoError(t, err)
	assert.ErrorIs(t, bad.Ping(context.Background()), domain.ErrTrackerUnavailable)
}

func TestTracker_GetTicket(t *testing.T) {
	js := newJiraServer(t)
	tr := newTestTracker(t, js)

	ticket, err := tr.GetTicket(context.Background(), "WORK-7")
	require.NoError(t, err)

	assert.Equal(t, "WORK-7", ticket.Key)
	assert.Equal(t, "정산 배치 개선", ticket.Summary)
	assert.Equal(t, "작업", ticket.IssueType)
	assert.Equal(t, "완료", ticket.Status)
	assert.Equal(t, "이영희", ticket.Assignee)
	assert.Equal(t, "기존 배치 재사용", ticket.Description)
	assert.Equal(t, "박민수: 검토 완료\n\n이영희: 반영했습니다", ticket.Comments)
	assert.Equal(t, domain.UnitManMonth, ticket.EstimateUnit)
	assert.Equal(t, 0.5, ticket.EstimateOriginal)
	assert.Equal(t, 10.0, ticket.Estimate)
	assert.Equal(t, "WORK-1", ticket.EpicKey)
	assert.Equal(t, "정산 고도화", ticket.EpicName)
	assert.Equal(t, 2024, ticket.Created.Year())
	assert.Equal(t, js.URL+"/browse/WORK-7", ticket.URL)
}

func TestTracker_GetTicket_NotFound(t *testing.T) {
	js := newJiraServer(t)
	_, err := newTestTracker(t, js).GetTicket(context.Background(), "WORK-999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), "Issue does not exist")
}

func TestTracker_EpicInfo(t *testing.T) {
	js := newJiraServer(t)
	info, err := newTestTracker(t, js).EpicInfo(context.Background(), "WORK-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.EpicInfo{Key: "WORK-1", Name: "정산 고도화", Status: "완료", Project: "WORK"}, info)
}

func TestTracker_EpicChildren_FallsBackAndPaginates(t *testing.T) {
	js := newJiraServer(t)
	tickets, jql, err := newTestTracker(t, js).EpicChildren(context.Background(), "WORK-1")
	require.NoError(t, err)

	assert.Equal(t, "parent = WORK-1", jql)
	require.Len(t, tickets, 2)
	assert.Equal(t, "WORK-7", tickets[0].Key)
	assert.Equal(t, "WORK-8", tickets[1].Key)
	assert.Equal(t, "WORK-1", tickets[1].EpicKey)
	assert.Equal(t, 60.0, tickets[1].Estimate)
	assert.Equal(t, `"Epic Link" = WORK-1`, js.queries[0])
}

func TestTracker_EpicChildren_None(t *testing.T) {
	js := newJiraServer(t)
	tickets, jql, err := newTestTracker(t, js).EpicChildren(context.Background(), "WORK-2")
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, jql)
	assert.Len(t, js.queries, len(childQueries("WORK-2")))
}

func TestTracker_CompletedEpics(t *testing.T) {
	js := newJiraServer(t)
	epics, err := newTestTracker(t, js).CompletedEpics(context.Background(), "WORK")
	require.NoError(t, err)
	require.Len(t, epics, 1)
	assert.Equal(t, "WORK-1", epics[0].Key)
	assert.Equal(t, "project = WORK AND issuetype = Epic AND statusCategory = Done ORDER BY updated DESC", js.queries[0])
}

func TestTracker_Search_Limit(t *testing.T) {
	js := newJiraServer(t)
	tickets, err := newTestTracker(t, js).Search(context.Background(), "parent = WORK-1", 1)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	assert.Len(t, js.queries, 1)
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrTrackerUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			body, _ := json.Marshal(errorResponse{ErrorMessages: []string{"boom"}})
			assert.ErrorIs(t, statusError(tt.status, "/x", body), tt.want)
		})
	}
}
