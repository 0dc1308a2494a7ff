package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

type reportStore struct {
	db *sql.DB
}

func (s *reportStore) Save(ctx context.Context, record *domain.CheckRecord) error {
	report, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO check_records (id, owner_id, report, text_length, word_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.ID, record.OwnerID, string(report), record.TextLength, record.WordCount, record.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert check record: %w", err)
	}
	return nil
}

func (s *reportStore) Get(ctx context.Context, id string) (*domain.CheckRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, report, text_length, word_count, created_at
		FROM check_records WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (s *reportStore) List(ctx context.Context, ownerID string, limit int) ([]*domain.CheckRecord, error) {
	if limit <= 0 {
		limit = -1 // no limit in SQLite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, report, text_length, word_count, created_at
		FROM check_records
		WHERE owner_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?
	`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list check records: %w", err)
	}
	defer rows.Close()

	var out []*domain.CheckRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *reportStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM check_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete check record: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteBefore compares in UTC, the zone records are written in
func (s *reportStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM check_records WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune check records: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func scanRecord(row rowScanner) (*domain.CheckRecord, error) {
	var rec domain.CheckRecord
	var report string
	if err := row.Scan(&rec.ID, &rec.OwnerID, &report, &rec.TextLength, &rec.WordCount, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan check record: %w", err)
	}
	rec.Report = &domain.PlagiarismReport{}
	if err := json.Unmarshal([]byte(report), rec.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rec, nil
}
