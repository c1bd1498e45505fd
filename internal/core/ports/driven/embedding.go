package driven

import "context"

// EmbeddingService turns text into vectors for the VectorIndex. Records,
// accepted answers and questions must all be embedded by the same model;
// the index rejects vectors whose length differs from Dimensions.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length, or 0 when the model is unknown and
	// lengths are not checked.
	Dimensions() int

	ModelName() string

	// Ping makes the cheapest request the provider allows.
	Ping(ctx context.Context) error

	Close() error
}
