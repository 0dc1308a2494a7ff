package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusStore = (*CorpusStore)(nil)

// CorpusStore implements driven.CorpusStore on SQLite. The corpus version
// is the highest source version; snapshots are cached and extended with
// newer rows only.
type CorpusStore struct {
	db     *sql.DB
	params domain.CorpusParams

	mu      sync.Mutex
	cached  *domain.CorpusSnapshot
	vectors driven.VectorIndex
}

func newCorpusStore(db *sql.DB, params domain.CorpusParams) *CorpusStore {
	return &CorpusStore{db: db, params: params, cached: &domain.CorpusSnapshot{Params: params}}
}

// WithVectorIndex loads source embeddings into vectors as rows are read, so
// every source of a returned snapshot is already searchable. Rows appended
// by other processes sharing the file are picked up the same way.
func (s *CorpusStore) WithVectorIndex(vectors driven.VectorIndex) *CorpusStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = vectors
	return s
}

func (s *CorpusStore) Snapshot(ctx context.Context) (*domain.CorpusSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cached
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, text, fingerprints, shingles, embedding, version, created_at
		FROM sources
		WHERE version > ?
		ORDER BY version
	`, cur.Version)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	defer rows.Close()

	var added []*domain.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		added = append(added, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	if len(added) == 0 {
		return cur, nil
	}
	if s.vectors != nil {
		for _, src := range added {
			if len(src.Embedding) == 0 {
				continue
			}
			if err := s.vectors.Upsert(ctx, src.ID, src.Version, src.Embedding); err != nil {
				return nil, fmt.Errorf("index source %s: %w", src.ID, err)
			}
		}
	}

	sources := make([]*domain.Source, len(cur.Sources), len(cur.Sources)+len(added))
	copy(sources, cur.Sources)
	sources = append(sources, added...)
	next := &domain.CorpusSnapshot{
		Version: added[len(added)-1].Version,
		Params:  s.params,
		Sources: sources,
	}
	s.cached = next
	return next, nil
}

func (s *CorpusStore) Append(ctx context.Context, source *domain.Source) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources WHERE id = ?`, source.ID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check source: %w", err)
	}
	if exists > 0 {
		return 0, fmt.Errorf("source %s: %w", source.ID, domain.ErrAlreadyExists)
	}

	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM sources`).Scan(&version); err != nil {
		return 0, fmt.Errorf("next version: %w", err)
	}

	createdAt := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sources (id, title, url, text, word_count, fingerprints, shingles, embedding, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		source.ID,
		source.Title,
		source.URL,
		source.Text,
		len(strings.Fields(source.Text)),
		encodeHashes(source.Fingerprints),
		encodeHashes(source.Shingles),
		encodeVector(source.Embedding),
		version,
		createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	source.Version = version
	source.CreatedAt = createdAt
	return version, nil
}

func (s *CorpusStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, url, text, fingerprints, shingles, embedding, version, created_at
		FROM sources WHERE id = ?
	`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return src, err
}

func (s *CorpusStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	var stats domain.CorpusStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0), COUNT(*), COALESCE(SUM(word_count), 0), COUNT(embedding)
		FROM sources
	`).Scan(&stats.Version, &stats.SourceCount, &stats.TotalWords, &stats.Embedded)
	if err != nil {
		return nil, fmt.Errorf("corpus stats: %w", err)
	}
	return &stats, nil
}

func (s *CorpusStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*domain.Source, error) {
	var src domain.Source
	var fingerprints, shingles, embedding []byte
	err := row.Scan(&src.ID, &src.Title, &src.URL, &src.Text, &fingerprints, &shingles, &embedding, &src.Version, &src.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Fingerprints = decodeHashes(fingerprints)
	src.Shingles = decodeHashes(shingles)
	src.Embedding = decodeVector(embedding)
	return &src, nil
}
