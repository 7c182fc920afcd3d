package models

import "github.com/golang-jwt/jwt/v5"

// RoleAuthenticated is the Supabase role of a signed-in user. Anonymous
// sessions carry "anon" and may not own thoughts.
const RoleAuthenticated = "authenticated"

// SupabaseClaims are the Supabase Auth claims the API reads.
// See: https://supabase.com/docs/guides/auth/jwts
type SupabaseClaims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"`
	SessionID   string `json:"session_id"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}

// IsAuthenticated reports whether the token belongs to a signed-in,
// non-anonymous user.
func (c *SupabaseClaims) IsAuthenticated() bool {
	return c.Role == RoleAuthenticated && !c.IsAnonymous
}
