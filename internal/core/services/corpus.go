package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-originality/internal/detection"
	"github.com/custodia-labs/sercha-originality/internal/normalisers"
	"github.com/custodia-labs/sercha-originality/internal/runtime"
	"github.com/custodia-labs/sercha-originality/internal/util"
)

// Ensure corpusService implements CorpusService
var _ driving.CorpusService = (*corpusService)(nil)

const (
	// ingestLockName serialises appends across instances
	ingestLockName = "corpus-ingest"
	ingestLockTTL  = 30 * time.Second

	// ingestLockAttempts bounds how long an ingest waits for the lock
	ingestLockAttempts = 5
	ingestLockBackoff  = 50 * time.Millisecond

	// maxEmbedWords caps the text sent to the provider for a source embedding
	maxEmbedWords = 2000
)

// corpusService implements the CorpusService interface
type corpusService struct {
	store    driven.CorpusStore
	lock     driven.DistributedLock
	queue    driven.TaskQueue
	embedder *detection.Embedder
	services *runtime.Services
	formats  driven.NormaliserRegistry
	params   domain.CorpusParams
	logger   *slog.Logger
}

// NewCorpusService creates a new CorpusService. Sources are hashed with
// params, which must match the defaults checks run with for the precomputed
// hashes to be reused. queue may be nil when no worker runs.
func NewCorpusService(
	store driven.CorpusStore,
	lock driven.DistributedLock,
	queue driven.TaskQueue,
	embedder *detection.Embedder,
	services *runtime.Services,
	formats driven.NormaliserRegistry,
	params domain.CorpusParams,
	logger *slog.Logger,
) driving.CorpusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &corpusService{
		store:    store,
		lock:     lock,
		queue:    queue,
		embedder: embedder,
		services: services,
		formats:  formats,
		params:   params,
		logger:   logger,
	}
}

// AddSource ingests a source synchronously
func (s *corpusService) AddSource(ctx context.Context, req domain.NewSourceRequest) (*domain.Source, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Text = normalisers.Normalise(s.formats, req.Text, req.ContentType)
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: no text left after %s normalisation", domain.ErrInvalidInput, req.ContentType)
	}

	source := &domain.Source{
		ID:           req.ID,
		Title:        req.Title,
		URL:          req.URL,
		Text:         req.Text,
		Fingerprints: detection.Fingerprints(req.Text, s.params.FingerprintWindow),
		Shingles:     detection.Shingles(req.Text, s.params.ShingleSize),
	}
	source.Embedding = s.embed(ctx, source)

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), ingestLockName); err != nil {
			s.logger.Warn("failed to release ingest lock", "error", err)
		}
	}()

	// the store indexes the embedding with the version it publishes
	version, err := s.store.Append(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("append source: %w", err)
	}

	s.logger.Info("source ingested",
		"source_id", source.ID,
		"version", version,
		"fingerprints", len(source.Fingerprints),
		"shingles", len(source.Shingles),
		"embedded", len(source.Embedding) > 0,
	)
	return source, nil
}

// EnqueueSource schedules ingestion on the worker
func (s *corpusService) EnqueueSource(ctx context.Context, req domain.NewSourceRequest) (*domain.Task, error) {
	if s.queue == nil {
		return nil, fmt.Errorf("task queue: %w", domain.ErrServiceUnavailable)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	task := domain.NewIngestSourceTask(req)
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue ingest task: %w", err)
	}
	s.logger.Info("source ingest queued", "source_id", req.ID, "task_id", task.ID)
	return task, nil
}

// GetSource retrieves a source by ID
func (s *corpusService) GetSource(ctx context.Context, id string) (*domain.Source, error) {
	return s.store.Get(ctx, id)
}

// Stats returns corpus statistics
func (s *corpusService) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	return s.store.Stats(ctx)
}

// acquire takes the ingest lock, backing off while another instance holds it
func (s *corpusService) acquire(ctx context.Context) error {
	errBusy := errors.New("lock held")
	err := util.Retry(ctx, ingestLockAttempts, ingestLockBackoff,
		func(err error) bool { return errors.Is(err, errBusy) },
		func(ctx context.Context) error {
			ok, err := s.lock.Acquire(ctx, ingestLockName, ingestLockTTL)
			if err != nil {
				return fmt.Errorf("acquire ingest lock: %w", err)
			}
			if !ok {
				return errBusy
			}
			return nil
		})
	if errors.Is(err, errBusy) {
		return domain.ErrIngestInProgress
	}
	return err
}

// embed computes the source embedding, or nil when no provider is configured
// or the provider fails
func (s *corpusService) embed(ctx context.Context, source *domain.Source) []float32 {
	provider := s.services.EmbeddingService()
	if provider == nil {
		return nil
	}

	text := source.Text
	if fields := strings.Fields(text); len(fields) > maxEmbedWords {
		text = strings.Join(fields[:maxEmbedWords], " ")
	}
	vectors, err := s.embedder.Embed(ctx, provider, []string{strings.TrimSpace(text)})
	if err != nil {
		s.logger.Warn("failed to embed source; semantic matching disabled for it", "source_id", source.ID, "error", err)
		return nil
	}
	return vectors[0]
}
