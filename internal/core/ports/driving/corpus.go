package driving

import (
	"context"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// CorpusService manages the reference corpus
type CorpusService interface {
	// AddSource ingests a source synchronously and returns it with its version
	AddSource(ctx context.Context, req domain.NewSourceRequest) (*domain.Source, error)

	// EnqueueSource schedules ingestion on the worker and returns the task
	EnqueueSource(ctx context.Context, req domain.NewSourceRequest) (*domain.Task, error)

	// GetSource retrieves a source by ID
	GetSource(ctx context.Context, id string) (*domain.Source, error)

	// Stats returns corpus statistics
	Stats(ctx context.Context) (*domain.CorpusStats, error)
}
