package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret-that-is-32-chars-long"

func newJWTService(t *testing.T, now func() time.Time) auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:     testSecret,
		TokenLifetime: time.Hour,
	}, auth.WithTimeFunc(now))
	require.NoError(t, err)
	return svc
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()
	_, err := auth.NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newJWTService(t, func() time.Time { return fixed })
	userID := uuid.New()

	token, err := svc.GenerateToken(context.Background(), userID)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, auth.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, fixed.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixed.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenFailures(t *testing.T) {
	t.Parallel()
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := newJWTService(t, func() time.Time { return issued })
	token, err := issuer.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		later := newJWTService(t, func() time.Time { return issued.Add(2 * time.Hour) })
		_, err := later.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("within clock skew", func(t *testing.T) {
		t.Parallel()
		later := newJWTService(t, func() time.Time { return issued.Add(time.Hour + time.Minute) })
		_, err := later.ValidateToken(context.Background(), token)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		other, err := auth.NewJWTService(config.AuthConfig{
			JWTSecret: "another-secret-that-is-also-32-chars-long",
		}, auth.WithTimeFunc(func() time.Time { return issued }))
		require.NoError(t, err)
		_, err = other.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()
		_, err := issuer.ValidateToken(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		_, err := issuer.ValidateToken(context.Background(), "")
		assert.ErrorIs(t, err, auth.ErrMissingToken)
	})

	t.Run("wrong token type", func(t *testing.T) {
		t.Parallel()
		refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"uid":  uuid.New().String(),
			"type": "refresh",
			"iat":  issued.Unix(),
			"exp":  issued.Add(time.Hour).Unix(),
		})
		signed, err := refresh.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = issuer.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, auth.ErrWrongTokenType)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		t.Parallel()
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"uid":  uuid.New().String(),
			"type": auth.TokenTypeAccess,
			"exp":  issued.Add(time.Hour).Unix(),
		})
		signed, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.ValidateToken(context.Background(), signed)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
