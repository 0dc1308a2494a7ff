// Package memory provides process-local implementations of the driven
// ports, for single-instance deployments, the CLI and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusStore = (*CorpusStore)(nil)

// CorpusStore keeps the corpus in memory. Appends publish a new snapshot
// copy-on-write, so readers never observe a partially applied append.
type CorpusStore struct {
	mu       sync.Mutex
	params   domain.CorpusParams
	vectors  driven.VectorIndex
	snapshot atomic.Pointer[domain.CorpusSnapshot]
}

// NewCorpusStore creates an empty corpus whose precomputed hashes use params
func NewCorpusStore(params domain.CorpusParams) *CorpusStore {
	s := &CorpusStore{params: params}
	s.snapshot.Store(&domain.CorpusSnapshot{Params: params})
	return s
}

// WithVectorIndex makes Append index source embeddings in vectors before
// the new version is published.
func (s *CorpusStore) WithVectorIndex(vectors driven.VectorIndex) *CorpusStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = vectors
	return s
}

func (s *CorpusStore) Snapshot(ctx context.Context) (*domain.CorpusSnapshot, error) {
	return s.snapshot.Load(), nil
}

func (s *CorpusStore) Append(ctx context.Context, source *domain.Source) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snapshot.Load()
	for _, existing := range cur.Sources {
		if existing.ID == source.ID {
			return 0, fmt.Errorf("source %s: %w", source.ID, domain.ErrAlreadyExists)
		}
	}

	version := cur.Version + 1
	stored := *source
	stored.Version = version
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	if s.vectors != nil && len(stored.Embedding) > 0 {
		if err := s.vectors.Upsert(ctx, stored.ID, version, stored.Embedding); err != nil {
			return 0, fmt.Errorf("index source %s: %w", stored.ID, err)
		}
	}

	sources := make([]*domain.Source, len(cur.Sources), len(cur.Sources)+1)
	copy(sources, cur.Sources)
	sources = append(sources, &stored)

	s.snapshot.Store(&domain.CorpusSnapshot{Version: version, Params: s.params, Sources: sources})
	source.Version = version
	source.CreatedAt = stored.CreatedAt
	return version, nil
}

func (s *CorpusStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	if src := s.snapshot.Load().Source(id); src != nil {
		return src, nil
	}
	return nil, domain.ErrNotFound
}

func (s *CorpusStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	snap := s.snapshot.Load()
	stats := &domain.CorpusStats{Version: snap.Version, SourceCount: len(snap.Sources)}
	for _, src := range snap.Sources {
		stats.TotalWords += int64(len(strings.Fields(src.Text)))
		if len(src.Embedding) > 0 {
			stats.Embedded++
		}
	}
	return stats, nil
}

func (s *CorpusStore) Ping(ctx context.Context) error {
	return nil
}
