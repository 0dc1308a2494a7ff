package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
)

// Ensure authService implements AuthService
var _ driving.AuthService = (*authService)(nil)

// authService implements the AuthService interface
type authService struct {
	tokens   driven.TokenProvider
	tokenTTL time.Duration
}

// NewAuthService creates a new AuthService. Tokens expire after tokenTTL.
func NewAuthService(tokens driven.TokenProvider, tokenTTL time.Duration) driving.AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		tokens:   tokens,
		tokenTTL: tokenTTL,
	}
}

// ValidateToken validates a JWT token and returns the auth context
func (s *authService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims, err := s.tokens.ParseToken(token)
	if errors.Is(err, domain.ErrTokenExpired) {
		return nil, domain.ErrTokenExpired
	}
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	if time.Now().Unix() > claims.ExpiresAt {
		return nil, domain.ErrTokenExpired
	}
	if claims.Subject == "" || !validRole(claims.Role) {
		return nil, domain.ErrTokenInvalid
	}

	return &domain.AuthContext{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}

// IssueToken mints a token for an operator-provisioned caller
func (s *authService) IssueToken(ctx context.Context, subject string, role domain.Role) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", domain.NewInvalidInput("subject", "must not be empty")
	}
	if !validRole(role) {
		return "", domain.NewInvalidInput("role", "must be admin or member")
	}

	now := time.Now()
	return s.tokens.GenerateToken(&domain.TokenClaims{
		Subject:   subject,
		Role:      role,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.tokenTTL).Unix(),
	})
}

func validRole(r domain.Role) bool {
	return r == domain.RoleAdmin || r == domain.RoleMember
}
