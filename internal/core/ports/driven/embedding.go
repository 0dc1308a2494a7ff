package driven

import (
	"context"
)

// EmbeddingService turns chunk and source text into dense vectors for the
// semantic layer. Vectors from one service share a dimension and are
// compared by cosine similarity.
type EmbeddingService interface {
	// Embed returns one vector per text, in input order
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single text
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions is the vector length, or 0 when the provider decides
	Dimensions() int

	// Model names the model; it is part of every cache key
	Model() string

	// HealthCheck makes a minimal provider call
	HealthCheck(ctx context.Context) error

	Close() error
}
