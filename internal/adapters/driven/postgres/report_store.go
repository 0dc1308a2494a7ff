package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore implements driven.ReportStore, keeping each report as JSONB
type ReportStore struct {
	db *DB
}

// NewReportStore creates a new ReportStore
func NewReportStore(db *DB) *ReportStore {
	return &ReportStore{db: db}
}

func (s *ReportStore) Save(ctx context.Context, record *domain.CheckRecord) error {
	report, err := json.Marshal(record.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO check_records (id, owner_id, report, text_length, word_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID, record.OwnerID, report, record.TextLength, record.WordCount, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert check record: %w", err)
	}
	return nil
}

func (s *ReportStore) Get(ctx context.Context, id string) (*domain.CheckRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, report, text_length, word_count, created_at
		FROM check_records
		WHERE id = $1
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

func (s *ReportStore) List(ctx context.Context, ownerID string, limit int) ([]*domain.CheckRecord, error) {
	query := `
		SELECT id, owner_id, report, text_length, word_count, created_at
		FROM check_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *ReportStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM check_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete check record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *ReportStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM check_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune check records: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(rows), nil
}

func scanRecord(row rowScanner) (*domain.CheckRecord, error) {
	var rec domain.CheckRecord
	var report []byte
	if err := row.Scan(&rec.ID, &rec.OwnerID, &report, &rec.TextLength, &rec.WordCount, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan check record: %w", err)
	}
	rec.Report = &domain.PlagiarismReport{}
	if err := json.Unmarshal(report, rec.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &rec, nil
}
