package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// client wraps go-github with rate limiting and error mapping for one
// repository.
type client struct {
	gh          *gh.Client
	owner, repo string
	limiter     *RateLimiter
}

// newClient creates an authenticated client. A non-empty baseURL points
// the client at GitHub Enterprise or a test server.
func newClient(ctx context.Context, token, owner, repo, baseURL string, rps float64) (*client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	c := gh.NewClient(tc)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		c.BaseURL = u
	}

	return &client{gh: c, owner: owner, repo: repo, limiter: NewRateLimiter(rps)}, nil
}

// call waits for the limiter, runs fn and records the returned quota.
func (c *client) call(ctx context.Context, op string, fn func() (*gh.Response, error)) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	resp, err := fn()
	if resp != nil {
		c.limiter.UpdateFromResponse(resp.Response)
	}
	return wrapError(err, op, c.limiter)
}

func (c *client) getIssue(ctx context.Context, number int) (*gh.Issue, error) {
	var issue *gh.Issue
	err := c.call(ctx, "get issue", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		issue, resp, err = c.gh.Issues.Get(ctx, c.owner, c.repo, number)
		return resp, err
	})
	return issue, err
}

func (c *client) listComments(ctx context.Context, number int) ([]*gh.IssueComment, error) {
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	var all []*gh.IssueComment
	for {
		var page []*gh.IssueComment
		var next int
		err := c.call(ctx, "list comments", func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = c.gh.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == 0 {
			return all, nil
		}
		opts.Page = next
	}
}

func (c *client) listIssues(ctx context.Context, opts *gh.IssueListByRepoOptions) ([]*gh.Issue, error) {
	opts.PerPage = 100
	var all []*gh.Issue
	for {
		var page []*gh.Issue
		var next int
		err := c.call(ctx, "list issues", func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = c.gh.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == 0 {
			return all, nil
		}
		opts.Page = next
	}
}

func (c *client) searchIssues(ctx context.Context, query string, limit int) ([]*gh.Issue, error) {
	q := fmt.Sprintf("repo:%s/%s is:issue %s", c.owner, c.repo, strings.TrimSpace(query))
	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: 100}}
	var all []*gh.Issue
	for {
		var result *gh.IssuesSearchResult
		var next int
		err := c.call(ctx, "search issues", func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			result, resp, err = c.gh.Search.Issues(ctx, q, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, result.Issues...)
		if next == 0 || (limit > 0 && len(all) >= limit) {
			break
		}
		opts.Page = next
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (c *client) getMilestone(ctx context.Context, number int) (*gh.Milestone, error) {
	var m *gh.Milestone
	err := c.call(ctx, "get milestone", func() (*gh.Response, error) {
		var resp *gh.Response
		var err error
		m, resp, err = c.gh.Issues.GetMilestone(ctx, c.owner, c.repo, number)
		return resp, err
	})
	return m, err
}

func (c *client) listMilestones(ctx context.Context, state string) ([]*gh.Milestone, error) {
	opts := &gh.MilestoneListOptions{
		State:       state,
		Sort:        "due_on",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []*gh.Milestone
	for {
		var page []*gh.Milestone
		var next int
		err := c.call(ctx, "list milestones", func() (*gh.Response, error) {
			var resp *gh.Response
			var err error
			page, resp, err = c.gh.Issues.ListMilestones(ctx, c.owner, c.repo, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == 0 {
			return all, nil
		}
		opts.Page = next
	}
}

func (c *client) validate(ctx context.Context) error {
	return c.call(ctx, "get repository", func() (*gh.Response, error) {
		_, resp, err := c.gh.Repositories.Get(ctx, c.owner, c.repo)
		return resp, err
	})
}
