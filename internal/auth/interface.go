package auth

import "thoughtbox/internal/domain/models"

// JWTVerifier verifies bearer tokens issued by Supabase Auth.
type JWTVerifier interface {
	// VerifyToken validates a JWT and returns its claims.
	// Invalid, expired or anonymous tokens fail with domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
