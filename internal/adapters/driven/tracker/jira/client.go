package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestsPerSecond throttles calls below Jira Cloud's burst limit.
	DefaultRequestsPerSecond = 5.0
)

// client is a thin authenticated JSON client for the Jira REST API.
type client struct {
	http     *http.Client
	baseURL  string
	username string
	token    string
	limiter  *rate.Limiter
}

func newClient(baseURL, username, token string, timeout time.Duration, rps float64) *client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	return &client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		token:    token,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// get issues a GET request and decodes the JSON response into out.
func (c *client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("jira: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.token)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: jira: %w", domain.ErrTrackerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return statusError(resp.StatusCode, path, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: jira: decode %s: %w", domain.ErrTrackerUnavailable, path, err)
	}
	return nil
}

type errorResponse struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func statusError(status int, path string, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && len(er.ErrorMessages) > 0 {
		msg = strings.Join(er.ErrorMessages, "; ")
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: jira %s: %s", domain.ErrNotFound, path, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: jira %s: %s", domain.ErrInvalidInput, path, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: jira %s", domain.ErrTrackerUnavailable, domain.ErrRateLimited, path)
	default:
		return fmt.Errorf("%w: jira %s: status %d: %s", domain.ErrTrackerUnavailable, path, status, msg)
	}
}
