package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"thoughtbox/internal/domain"
	"thoughtbox/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) (*SupabaseJWTVerifier, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return NewJWTVerifierWithKeyfunc(kf, slog.New(slog.NewTextHandler(io.Discard, nil))), key
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims models.SupabaseClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func claimsFor(sub, role string, exp time.Time) models.SupabaseClaims {
	c := models.SupabaseClaims{Role: role}
	c.Subject = sub
	c.ExpiresAt = jwt.NewNumericDate(exp)
	return c
}

func TestVerifyToken(t *testing.T) {
	v, key := newTestVerifier(t)
	later := time.Now().Add(time.Hour)

	claims, err := v.VerifyToken(sign(t, jwt.SigningMethodES256, key, claimsFor("user-1", models.RoleAuthenticated, later)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.GetUserID())

	anon := claimsFor("user-2", models.RoleAuthenticated, later)
	anon.IsAnonymous = true
	noExp := claimsFor("user-1", models.RoleAuthenticated, later)
	noExp.ExpiresAt = nil

	rejected := map[string]string{
		"expired":    sign(t, jwt.SigningMethodES256, key, claimsFor("user-1", models.RoleAuthenticated, time.Now().Add(-time.Minute))),
		"no subject": sign(t, jwt.SigningMethodES256, key, claimsFor("", models.RoleAuthenticated, later)),
		"anon role":  sign(t, jwt.SigningMethodES256, key, claimsFor("user-1", "anon", later)),
		"anonymous":  sign(t, jwt.SigningMethodES256, key, anon),
		"no expiry":  sign(t, jwt.SigningMethodES256, key, noExp),
		"hmac":       sign(t, jwt.SigningMethodHS256, []byte("secret"), claimsFor("user-1", models.RoleAuthenticated, later)),
		"garbage":    "not.a.token",
	}
	for name, token := range rejected {
		t.Run(name, func(t *testing.T) {
			_, err := v.VerifyToken(token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestVerifyToken_OtherKey(t *testing.T) {
	v, _ := newTestVerifier(t)
	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = v.VerifyToken(sign(t, jwt.SigningMethodES256, other, claimsFor("user-1", models.RoleAuthenticated, time.Now().Add(time.Hour))))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewJWTVerifier_RequiresURL(t *testing.T) {
	_, err := NewJWTVerifier("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
