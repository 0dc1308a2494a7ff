package driving

import (
	"context"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
)

// AuthService verifies and issues bearer tokens
type AuthService interface {
	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken mints a token for an operator-provisioned caller
	IssueToken(ctx context.Context, subject string, role domain.Role) (string, error)
}
