package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
)

// APIKeyHeader carries "<key-id>.<secret>" credentials.
const APIKeyHeader = "X-API-Key"

// AuthMiddleware resolves the caller's identity from an API key or a JWT
// bearer token.
type AuthMiddleware struct {
	jwtService auth.JWTService
	apiKeys    auth.APIKeyVerifier
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
// apiKeys may be nil, in which case only bearer tokens are accepted.
func NewAuthMiddleware(jwtService auth.JWTService, apiKeys auth.APIKeyVerifier) *AuthMiddleware {
	if jwtService == nil {
		panic("jwtService cannot be nil")
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		apiKeys:    apiKeys,
	}
}

// Authenticate adds the user ID, and the API key ID when one was used, to
// the request context. An X-API-Key header takes precedence over the
// Authorization header.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(APIKeyHeader); raw != "" && m.apiKeys != nil {
			m.authenticateAPIKey(w, r, raw, next)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrTokenNotYetValid),
				errors.Is(err, auth.ErrWrongTokenType),
				errors.Is(err, auth.ErrMissingToken):
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			default:
				logger.FromContext(r.Context()).Error("failed to validate token",
					slog.String("error", redact.Error(err)))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		ctx := context.WithValue(r.Context(), shared.UserIDContextKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticateAPIKey(w http.ResponseWriter, r *http.Request, raw string, next http.Handler) {
	key, err := m.apiKeys.Verify(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRevokedAPIKey):
			shared.RespondWithError(w, r, http.StatusUnauthorized, "API key revoked")
		case errors.Is(err, auth.ErrInvalidAPIKey):
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid API key")
		default:
			logger.FromContext(r.Context()).Error("failed to verify api key",
				slog.String("error", redact.Error(err)))
			shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
		}
		return
	}

	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, key.UserID)
	ctx = context.WithValue(ctx, shared.APIKeyIDContextKey, key.ID)
	next.ServeHTTP(w, r.WithContext(ctx))
}
