package domain

// Role defines caller permission level
type Role string

const (
	RoleAdmin  Role = "admin"  // Manage the corpus
	RoleMember Role = "member" // Run checks, read own history
)

// AuthContext contains the authenticated caller for a request
type AuthContext struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
}

// IsAdmin checks if the caller is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	Subject   string `json:"sub"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
