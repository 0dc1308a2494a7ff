package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex with pgvector cosine distance
type VectorIndex struct {
	db *DB
}

// NewVectorIndex creates a new VectorIndex
func NewVectorIndex(db *DB) *VectorIndex {
	return &VectorIndex{db: db}
}

// Upsert stores or replaces the embedding of a source. CorpusStore.Append
// already writes the vector of a new source in its own transaction.
func (x *VectorIndex) Upsert(ctx context.Context, sourceID string, version int64, vector []float32) error {
	return upsertVector(ctx, x.db, sourceID, version, vector)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertVector(ctx context.Context, db execer, sourceID string, version int64, vector []float32) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO source_vectors (source_id, version, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (source_id) DO UPDATE SET
			version = EXCLUDED.version,
			embedding = EXCLUDED.embedding
	`, sourceID, version, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("upsert vector %s: %w", sourceID, err)
	}
	return nil
}

// Query returns the topK sources visible at asOf, most similar first.
// Vectors of another dimension are skipped.
func (x *VectorIndex) Query(ctx context.Context, vector []float32, topK int, asOf int64) ([]driven.VectorHit, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT source_id, 1 - (embedding <=> $1) AS similarity
		FROM source_vectors
		WHERE version <= $2 AND vector_dims(embedding) = $3
		ORDER BY embedding <=> $1, source_id
		LIMIT $4
	`, pgvector.NewVector(vector), asOf, len(vector), topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var hit driven.VectorHit
		if err := rows.Scan(&hit.SourceID, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan vector hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (x *VectorIndex) Ping(ctx context.Context) error {
	return x.db.PingContext(ctx)
}
