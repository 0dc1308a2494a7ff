package driven

import "github.com/custodia-labs/sercha-originality/internal/core/domain"

// TokenProvider signs and verifies bearer tokens.
// Callers are managed elsewhere; this service only trusts what it can verify.
type TokenProvider interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
