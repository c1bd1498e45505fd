// Package openai runs chat completions and embeddings against the OpenAI
// API or any server exposing the same routes.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/effortqa/internal/core/domain"
)

// DefaultBaseURL is the public API root. Point BaseURL at Azure or a
// compatible proxy to use those instead.
const DefaultBaseURL = "https://api.openai.com/v1"

// client is the authenticated transport shared by LLM and Embedder. Every
// failure wraps unavailable; HTTP 429 also wraps domain.ErrRateLimited.
type client struct {
	http        *http.Client
	base        string
	key         string
	unavailable error
}

// errorEnvelope is how the API reports failures, sometimes with a 200.
type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newClient(apiKey, baseURL string, timeout time.Duration, unavailable error) (client, error) {
	if apiKey == "" {
		return client{}, fmt.Errorf("%w: openai API key is required", domain.ErrInvalidInput)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return client{
		http:        &http.Client{Timeout: timeout},
		base:        strings.TrimRight(baseURL, "/"),
		key:         apiKey,
		unavailable: unavailable,
	}, nil
}

func (c client) call(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("openai: encoding %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: openai: %w", c.unavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: openai: reading %s: %w", c.unavailable, path, err)
	}

	var env errorEnvelope
	_ = json.Unmarshal(raw, &env)
	msg := strings.TrimSpace(string(raw))
	if env.Error != nil {
		msg = env.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: openai: %s", c.unavailable, domain.ErrRateLimited, msg)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: openai: %s: status %d: %s", c.unavailable, path, resp.StatusCode, msg)
	case env.Error != nil:
		return fmt.Errorf("%w: openai: %s", c.unavailable, msg)
	case out == nil:
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: openai: decoding %s: %w", c.unavailable, path, err)
	}
	return nil
}

// ping lists models, which checks the key without spending tokens.
func (c client) ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/models", nil, nil)
}
