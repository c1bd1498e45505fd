// Package ollama runs completions and embeddings against a local Ollama
// server over its JSON HTTP API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where `ollama serve` listens.
const DefaultBaseURL = "http://localhost:11434"

// client is the transport shared by LLM and Embedder. Every failure wraps
// unavailable, the domain error of the port being served.
type client struct {
	http        *http.Client
	base        string
	unavailable error
}

func newClient(baseURL string, timeout time.Duration, unavailable error) client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return client{
		http:        &http.Client{Timeout: timeout},
		base:        strings.TrimRight(baseURL, "/"),
		unavailable: unavailable,
	}
}

// call sends in as JSON (nil for no body) and decodes the reply into out
// when out is non-nil.
func (c client) call(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("ollama: encoding %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama: %w", c.unavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: ollama: %s: status %d: %s",
			c.unavailable, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: ollama: decoding %s: %w", c.unavailable, path, err)
	}
	return nil
}

// ping lists installed models, which needs no inference.
func (c client) ping(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/api/tags", nil, nil)
}
