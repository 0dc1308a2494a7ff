package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
)

// Ensure reportService implements ReportService
var _ driving.ReportService = (*reportService)(nil)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// reportService implements the ReportService interface
type reportService struct {
	store  driven.ReportStore
	logger *slog.Logger
}

// NewReportService creates a new ReportService
func NewReportService(store driven.ReportStore, logger *slog.Logger) driving.ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &reportService{store: store, logger: logger}
}

// Record persists a report for its owner
func (s *reportService) Record(ctx context.Context, ownerID string, report *domain.PlagiarismReport, textLength int) (*domain.CheckRecord, error) {
	if report == nil {
		return nil, domain.NewInvalidInput("report", "must not be nil")
	}
	record := domain.NewCheckRecord(ownerID, report, textLength)
	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save check record: %w", err)
	}
	s.logger.Debug("check recorded", "check_id", record.ID, "owner", ownerID)
	return record, nil
}

// Get retrieves a record the caller may read
func (s *reportService) Get(ctx context.Context, auth *domain.AuthContext, id string) (*domain.CheckRecord, error) {
	record, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(auth, record) {
		return nil, domain.ErrForbidden
	}
	return record, nil
}

// History lists the caller's most recent checks
func (s *reportService) History(ctx context.Context, auth *domain.AuthContext, limit int) ([]domain.CheckSummary, error) {
	if auth == nil {
		return nil, domain.ErrUnauthorized
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := s.store.List(ctx, auth.Subject, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CheckSummary, len(records))
	for i, r := range records {
		out[i] = r.Summary()
	}
	return out, nil
}

// Delete removes a record the caller may access
func (s *reportService) Delete(ctx context.Context, auth *domain.AuthContext, id string) error {
	if _, err := s.Get(ctx, auth, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// Prune removes records older than cutoff
func (s *reportService) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	removed, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune check records: %w", err)
	}
	s.logger.Info("check history pruned", "cutoff", cutoff, "removed", removed)
	return removed, nil
}

// canAccess reports whether the caller owns the record or is an admin
func canAccess(auth *domain.AuthContext, record *domain.CheckRecord) bool {
	if auth == nil {
		return false
	}
	return auth.IsAdmin() || auth.Subject == record.OwnerID
}
