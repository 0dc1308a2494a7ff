package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CorpusStore = (*CorpusStore)(nil)

// uniqueViolation is the PostgreSQL error code for a duplicate key
const uniqueViolation = "23505"

// CorpusStore implements driven.CorpusStore using PostgreSQL. Snapshots are
// cached in process and extended incrementally: since sources are
// append-only, only rows newer than the cached version are loaded.
type CorpusStore struct {
	db     *DB
	params domain.CorpusParams

	mu     sync.Mutex
	cached *domain.CorpusSnapshot
}

// NewCorpusStore creates a new CorpusStore
func NewCorpusStore(db *DB, params domain.CorpusParams) *CorpusStore {
	return &CorpusStore{
		db:     db,
		params: params,
		cached: &domain.CorpusSnapshot{Params: params},
	}
}

// Snapshot returns the corpus at its current version
func (s *CorpusStore) Snapshot(ctx context.Context) (*domain.CorpusSnapshot, error) {
	var version int64
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM corpus_state`).Scan(&version); err != nil {
		return nil, fmt.Errorf("read corpus version: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cached
	if cur.Version >= version {
		return cur, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, text, fingerprints, shingles, embedding, version, created_at
		FROM sources
		WHERE version > $1 AND version <= $2
		ORDER BY version
	`, cur.Version, version)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}
	defer rows.Close()

	sources := make([]*domain.Source, len(cur.Sources), len(cur.Sources)+int(version-cur.Version))
	copy(sources, cur.Sources)
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	next := &domain.CorpusSnapshot{Version: version, Params: s.params, Sources: sources}
	s.cached = next
	return next, nil
}

// Append stores source at the next corpus version. The version row lock
// serialises concurrent appends. The source vector is written in the same
// transaction, so it becomes searchable together with the version.
func (s *CorpusStore) Append(ctx context.Context, source *domain.Source) (int64, error) {
	var version int64
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`UPDATE corpus_state SET version = version + 1 RETURNING version`,
		).Scan(&version); err != nil {
			return fmt.Errorf("bump corpus version: %w", err)
		}

		var embedding interface{}
		if len(source.Embedding) > 0 {
			embedding = pq.Array(source.Embedding)
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sources (id, title, url, text, fingerprints, shingles, embedding, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at
		`,
			source.ID,
			source.Title,
			source.URL,
			source.Text,
			pq.Array(toSigned(source.Fingerprints)),
			pq.Array(toSigned(source.Shingles)),
			embedding,
			version,
		).Scan(&source.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("source %s: %w", source.ID, domain.ErrAlreadyExists)
		}
		if err != nil {
			return err
		}

		if len(source.Embedding) > 0 {
			return upsertVector(ctx, tx, source.ID, version, source.Embedding)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	source.Version = version
	return version, nil
}

// Get retrieves a source by ID
func (s *CorpusStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, url, text, fingerprints, shingles, embedding, version, created_at
		FROM sources
		WHERE id = $1
	`, id)
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return src, err
}

// Stats summarises the corpus without loading source texts
func (s *CorpusStore) Stats(ctx context.Context) (*domain.CorpusStats, error) {
	var stats domain.CorpusStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT version FROM corpus_state),
			COUNT(*),
			COALESCE(SUM(array_length(regexp_split_to_array(trim(text), '\s+'), 1)), 0),
			COUNT(embedding)
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
	var fingerprints, shingles pq.Int64Array
	var embedding pq.Float32Array
	err := row.Scan(
		&src.ID,
		&src.Title,
		&src.URL,
		&src.Text,
		&fingerprints,
		&shingles,
		&embedding,
		&src.Version,
		&src.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Fingerprints = toUnsigned(fingerprints)
	src.Shingles = toUnsigned(shingles)
	if len(embedding) > 0 {
		src.Embedding = []float32(embedding)
	}
	return &src, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}
