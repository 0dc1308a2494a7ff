package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// ReportService keeps the check history of callers
type ReportService interface {
	// Record persists a report for its owner
	Record(ctx context.Context, ownerID string, report *domain.PlagiarismReport, textLength int) (*domain.CheckRecord, error)

	// Get retrieves a record; callers other than the owner get ErrForbidden
	// unless they are admins
	Get(ctx context.Context, auth *domain.AuthContext, id string) (*domain.CheckRecord, error)

	// History lists the caller's most recent checks
	History(ctx context.Context, auth *domain.AuthContext, limit int) ([]domain.CheckSummary, error)

	// Delete removes a record under the same ownership rule as Get
	Delete(ctx context.Context, auth *domain.AuthContext, id string) error

	// Prune removes records older than cutoff regardless of owner
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
