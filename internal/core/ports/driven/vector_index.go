package driven

import "context"

// VectorHit is one result of a nearest-neighbour query
type VectorHit struct {
	SourceID   string
	Similarity float64
}

// VectorIndex stores one vector per source and answers cosine top-k queries.
type VectorIndex interface {
	// Upsert stores the vector of a source visible from the given corpus version
	Upsert(ctx context.Context, sourceID string, version int64, vector []float32) error

	// Query returns up to topK sources by descending cosine similarity,
	// considering only sources with version <= asOf
	Query(ctx context.Context, vector []float32, topK int, asOf int64) ([]VectorHit, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}
