package driven

import "context"

// EmbeddingCache memoises embeddings keyed by content hash.
// Implementations evict by size and/or TTL.
type EmbeddingCache interface {
	// GetMany returns the cached vectors for the given keys.
	// Missing keys are absent from the result.
	GetMany(ctx context.Context, keys []string) (map[string][]float32, error)

	// SetMany stores vectors by key
	SetMany(ctx context.Context, entries map[string][]float32) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}
