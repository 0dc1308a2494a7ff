package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// ReportStore persists check records
type ReportStore interface {
	Save(ctx context.Context, record *domain.CheckRecord) error

	// Get returns ErrNotFound if the record does not exist
	Get(ctx context.Context, id string) (*domain.CheckRecord, error)

	// List returns the owner's most recent records first
	List(ctx context.Context, ownerID string, limit int) ([]*domain.CheckRecord, error)

	// Delete returns ErrNotFound if the record does not exist
	Delete(ctx context.Context, id string) error

	// DeleteBefore removes every record created before cutoff and returns
	// how many were removed
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
