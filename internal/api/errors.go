package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/ratelimit"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/service/card_review"
	"github.com/phrazzld/scry-scheduler/internal/service/queue"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// errUnauthenticated is used when a handler runs without an identity in the
// request context, which means the auth middleware was not applied.
var errUnauthenticated = errors.New("request is not authenticated")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
//
// The order matters: an invalid transition caused by a missing state row
// wraps store.ErrCardStateNotFound and must still be reported as a conflict.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, errUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrInvalidAPIKey),
		errors.Is(err, auth.ErrRevokedAPIKey):
		return http.StatusUnauthorized

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, card_review.ErrIdempotencyKeyReused):
		return http.StatusConflict

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, queue.ErrInvalidFilter),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return http.StatusTooManyRequests

	case errors.Is(err, domain.ErrPersistenceFailure):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, errUnauthenticated):
		return "User ID not found or invalid"

	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidAPIKey),
		errors.Is(err, auth.ErrRevokedAPIKey):
		return "Invalid API key"

	case errors.Is(err, card_review.ErrIdempotencyKeyReused):
		return "Idempotency key was already used for another card"

	case errors.Is(err, domain.ErrConcurrentModification):
		return "Card was modified concurrently, please retry"

	case errors.Is(err, domain.ErrInvalidStateTransition):
		if errors.Is(err, store.ErrCardStateNotFound) {
			return "Card is not enrolled"
		}
		return "Card cannot change to the requested state"

	case errors.Is(err, store.ErrCardStateNotFound):
		return "Card state not found"

	case errors.Is(err, store.ErrCardNotFound):
		return "Card not found"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, domain.ErrInvalidRating):
		return "Invalid rating: must be one of again, hard, good, easy"

	case errors.Is(err, queue.ErrInvalidFilter):
		return "Invalid queue filter"

	case errors.Is(err, card_review.ErrNoCardIDs):
		return "At least one card ID is required"

	case errors.Is(err, card_review.ErrTooManyCardIDs):
		return fmt.Sprintf("At most %d card IDs may be enrolled at once", card_review.MaxEnrollBatch)

	case errors.Is(err, domain.ErrInvalidResponseTime):
		return "Invalid response_time_ms: must not be negative"

	case errors.Is(err, domain.ErrIdempotencyKeyTooLong):
		return "Idempotency key is too long"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request"

	case errors.Is(err, ratelimit.ErrRateLimitExceeded):
		return "Rate limit exceeded"

	case errors.Is(err, domain.ErrPersistenceFailure):
		return "Service temporarily unavailable, please retry"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a message that names
// the offending field without echoing the rejected value.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "uuid":
		return "invalid UUID"
	default:
		return "validation failed"
	}
}

// HandleAPIError maps err to a status code and writes a sanitized response.
// When safeMessage is empty the message is derived from err.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, safeMessage string) {
	status := MapErrorToStatusCode(err)
	if safeMessage == "" {
		safeMessage = GetSafeErrorMessage(err)
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict || status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, safeMessage, err, opts...)
}

// HandleValidationError writes a 400 response for a request body that
// failed struct validation.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}
