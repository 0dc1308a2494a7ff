package driven

import (
	"context"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// CorpusStore persists reference sources. The corpus is append-only and
// versioned: every Append bumps the version by one.
type CorpusStore interface {
	// Snapshot returns a consistent read-only view of the current corpus.
	// Repeated calls without intervening appends return the same version.
	Snapshot(ctx context.Context) (*domain.CorpusSnapshot, error)

	// Append stores a new source and returns the corpus version it was
	// assigned. The source's Version field is set on success. A source
	// embedding must be queryable in the VectorIndex by the time a snapshot
	// at that version is returned; an indexing failure fails the append.
	Append(ctx context.Context, source *domain.Source) (int64, error)

	// Get retrieves a source by ID
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Stats summarises the corpus
	Stats(ctx context.Context) (*domain.CorpusStats, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
}
