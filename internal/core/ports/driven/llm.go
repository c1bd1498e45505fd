package driven

import "context"

// LLMService completes a single prompt. The resolver uses it to write
// answers from retrieved tickets and the epic aggregator to write project
// synopses. It is optional: without it semantic questions end in the
// not-found answer and synopses fall back to a fixed sentence.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName identifies the model in logs.
	ModelName() string

	// Ping makes the cheapest request the provider allows.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tunes one completion. Zero values use provider defaults.
type GenerateOptions struct {
	// System is sent as the system prompt when non-empty.
	System string

	MaxTokens   int
	Temperature float64
}
