package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/effortqa/internal/core/domain"
	"github.com/custodia-labs/effortqa/internal/core/ports/driven"
)

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server.URL
}

func fixed(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

// echoEmbeddings answers with one vector per input, valued by input
// length, listed in reverse order.
func echoEmbeddings(t *testing.T, calls *atomic.Int32) string {
	t.Helper()
	return serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var parts []string
		for i := len(req.Input) - 1; i >= 0; i-- {
			parts = append(parts, fmt.Sprintf(`{"index":%d,"embedding":[%d]}`, i, len(req.Input[i])))
		}
		_, _ = w.Write([]byte(`{"data":[` + strings.Join(parts, ",") + `]}`))
	})
}

func TestConstructors_RequireKey(t *testing.T) {
	_, err := NewLLM(LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewEmbedder(EmbedderConfig{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	llm, err := NewLLM(LLMConfig{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, llm.ModelName())
	assert.Equal(t, DefaultBaseURL, llm.base)
}

func TestNewEmbedder_Dimensions(t *testing.T) {
	tests := []struct {
		model string
		set   int
		want  int
	}{
		{"", 0, 1536},
		{"text-embedding-3-large", 0, 3072},
		{"text-embedding-3-large", 256, 256},
		{"custom", 0, 1536},
	}
	for _, tt := range tests {
		emb, err := NewEmbedder(EmbedderConfig{APIKey: "k", Model: tt.model, Dimensions: tt.set})
		require.NoError(t, err)
		assert.Equal(t, tt.want, emb.Dimensions(), tt.model)
	}
}

func TestLLM_Generate(t *testing.T) {
	var got chatRequest
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  약 5일  "}}]}`))
	})
	llm, err := NewLLM(LLMConfig{APIKey: "sk-test", BaseURL: url + "/"})
	require.NoError(t, err)

	answer, err := llm.Generate(context.Background(), "로그인 공수?",
		driven.GenerateOptions{System: "공수 전문가", MaxTokens: 200})

	require.NoError(t, err)
	assert.Equal(t, "약 5일", answer)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, message{Role: "system", Content: "공수 전문가"}, got.Messages[0])
	assert.Equal(t, message{Role: "user", Content: "로그인 공수?"}, got.Messages[1])
	assert.Equal(t, 200, got.MaxTokens)

	_, err = llm.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}

func TestLLM_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		rateLimit bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, true},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"no choices", http.StatusOK, `{"choices":[]}`, false},
		{"error with 200", http.StatusOK, `{"error":{"message":"quota"}}`, false},
		{"bad json", http.StatusOK, `{"choices":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm, err := NewLLM(LLMConfig{APIKey: "k", BaseURL: serve(t, fixed(tt.status, tt.body))})
			require.NoError(t, err)

			_, err = llm.Generate(context.Background(), "q", driven.GenerateOptions{})

			require.ErrorIs(t, err, domain.ErrLLMUnavailable)
			assert.Equal(t, tt.rateLimit, errors.Is(err, domain.ErrRateLimited))
		})
	}
}

func TestPing(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Empty(t, r.Header.Get("Content-Type"))
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	llm, err := NewLLM(LLMConfig{APIKey: "sk-test", BaseURL: url})
	require.NoError(t, err)
	require.NoError(t, llm.Ping(context.Background()))

	emb, err := NewEmbedder(EmbedderConfig{APIKey: "wrong", BaseURL: url})
	require.NoError(t, err)
	err = emb.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "bad key")
	assert.NoError(t, emb.Close())
}

func TestEmbedder_EmbedBatch_ChunksAndOrders(t *testing.T) {
	var calls atomic.Int32
	emb, err := NewEmbedder(EmbedderConfig{APIKey: "k", BaseURL: echoEmbeddings(t, &calls), BatchSize: 2})
	require.NoError(t, err)

	got, err := emb.EmbedBatch(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})

	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, vec := range got {
		assert.Equal(t, []float32{float32(i + 1)}, vec)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbedder_Embed(t *testing.T) {
	var calls atomic.Int32
	emb, err := NewEmbedder(EmbedderConfig{APIKey: "k", BaseURL: echoEmbeddings(t, &calls)})
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "로그인")
	require.NoError(t, err)
	assert.Equal(t, []float32{float32(len("로그인"))}, vec)

	none, err := emb.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedder_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`},
		{"api error", http.StatusBadRequest, `{"error":{"message":"bad model"}}`},
		{"missing vector", http.StatusOK, `{"data":[]}`},
		{"bad index", http.StatusOK, `{"data":[{"index":7,"embedding":[1]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := NewEmbedder(EmbedderConfig{APIKey: "k", BaseURL: serve(t, fixed(tt.status, tt.body))})
			require.NoError(t, err)

			_, err = emb.Embed(context.Background(), "x")

			assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		})
	}
}
