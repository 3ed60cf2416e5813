package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/ratelimit"
)

// QuotaHandler reports how much of each rate limit the caller has left.
type QuotaHandler struct {
	limiters []*ratelimit.Limiter
	logger   *slog.Logger
}

// NewQuotaHandler creates a QuotaHandler over limiters, reported in order.
func NewQuotaHandler(logger *slog.Logger, limiters ...*ratelimit.Limiter) *QuotaHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for QuotaHandler")
	}
	for _, l := range limiters {
		if l == nil {
			// ALLOW-PANIC: Constructor enforcing required dependency
			panic("limiters cannot contain nil for QuotaHandler")
		}
	}
	return &QuotaHandler{
		limiters: limiters,
		logger:   logger.With(slog.String("component", "quota_handler")),
	}
}

// GetQuota handles GET /api/quota requests. Looking does not count against
// any quota other than the one guarding the route itself.
func (h *QuotaHandler) GetQuota(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	identity := shared.RateLimitIdentity(r)
	resp := QuotaResponse{Quotas: make([]QuotaStatusResponse, 0, len(h.limiters))}
	for _, l := range h.limiters {
		status := l.Peek(identity)
		resp.Quotas = append(resp.Quotas, QuotaStatusResponse{
			Name:      l.Name(),
			Limit:     status.Limit,
			Remaining: max(status.Remaining, 0),
			ResetAt:   status.ResetAt.UTC(),
		})
	}

	log.Debug("quota reported", slog.Int("limiters", len(h.limiters)))
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
