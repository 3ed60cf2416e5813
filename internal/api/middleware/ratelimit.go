package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/api"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/ratelimit"
	"github.com/phrazzld/scry-scheduler/internal/redact"
)

// Rate limit response headers
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// RateLimitResponse is the body of a 429 response.
type RateLimitResponse struct {
	Error     string    `json:"error"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// RateLimit counts every request against limiter and rejects the ones over
// quota. It must run after Authenticate so that authenticated callers are
// keyed on their identity rather than their address.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	if limiter == nil {
		panic("limiter cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.RateLimitIdentity(r)
			status := limiter.Check(identity)

			h := w.Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(status.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(max(status.Remaining, 0)))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(status.ResetAt.Unix(), 10))

			err := status.Err()
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			var exceeded *ratelimit.ExceededError
			if !errors.As(err, &exceeded) {
				shared.RespondWithErrorAndLog(w, r, api.MapErrorToStatusCode(err),
					api.GetSafeErrorMessage(err), err)
				return
			}
			h.Set(HeaderRetryAfter, strconv.Itoa(exceeded.RetryAfterSeconds()))

			logger.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("limiter", limiter.Name()),
				slog.String("identity", identity),
				slog.String("error", redact.Error(err)),
				slog.Duration("retry_after", exceeded.RetryAfter))

			shared.RespondWithJSON(w, r, api.MapErrorToStatusCode(err), RateLimitResponse{
				Error:     api.GetSafeErrorMessage(err),
				Limit:     exceeded.Limit,
				Remaining: max(exceeded.Remaining, 0),
				ResetAt:   exceeded.ResetAt.UTC(),
				TraceID:   shared.GetTraceID(r.Context()),
			})
		})
	}
}
