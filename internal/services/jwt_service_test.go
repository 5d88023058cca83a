package services_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-next-lms/backend/internal/services"
)

const testSecret = "test-secret-key"

// expiredToken は期限切れのトークンを直接作ります（TTLを待たずにテストするため）。
func expiredToken(t *testing.T, secret string, userID int) string {
	t.Helper()
	now := time.Now()
	claims := &services.Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tokenString
}

func TestSessionToken_RoundTrip(t *testing.T) {
	s := services.NewJWTServiceWithSecret(testSecret)

	token, err := s.GenerateSessionToken(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := s.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID, "Expected user ID to round-trip through the token")
}

func TestResetToken_RoundTrip(t *testing.T) {
	s := services.NewJWTServiceWithSecret(testSecret)

	token, err := s.GenerateResetToken(7)
	require.NoError(t, err)

	userID, err := s.ValidateResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	issuer := services.NewJWTServiceWithSecret("other-secret")
	verifier := services.NewJWTServiceWithSecret(testSecret)

	token, err := issuer.GenerateSessionToken(1)
	require.NoError(t, err)

	_, err = verifier.ValidateSessionToken(token)
	assert.ErrorIs(t, err, services.ErrInvalidSession, "Token signed with another secret must be rejected")
}

func TestValidateSessionToken_Malformed(t *testing.T) {
	s := services.NewJWTServiceWithSecret(testSecret)

	for _, tokenString := range []string{"", "garbage", "a.b.c"} {
		_, err := s.ValidateSessionToken(tokenString)
		assert.ErrorIs(t, err, services.ErrInvalidSession, "malformed token %q must be rejected", tokenString)
	}
}

func TestValidateSessionToken_Expired(t *testing.T) {
	s := services.NewJWTServiceWithSecret(testSecret)

	_, err := s.ValidateSessionToken(expiredToken(t, testSecret, 1))
	assert.ErrorIs(t, err, services.ErrInvalidSession)
}

func TestValidateResetToken_Expired(t *testing.T) {
	s := services.NewJWTServiceWithSecret(testSecret)

	_, err := s.ValidateResetToken(expiredToken(t, testSecret, 1))
	assert.ErrorIs(t, err, services.ErrInvalidResetToken)
}
