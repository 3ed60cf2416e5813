package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/service/queue"
)

// QueueHandler serves study queues
type QueueHandler struct {
	queueService queue.QueueService
	logger       *slog.Logger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(queueService queue.QueueService, logger *slog.Logger) *QueueHandler {
	if queueService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("queueService cannot be nil for QueueHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for QueueHandler")
	}
	return &QueueHandler{
		queueService: queueService,
		logger:       logger.With(slog.String("component", "queue_handler")),
	}
}

// GetQueue handles GET /api/queue?deck_id=&states=&limit= requests.
//
// states is a comma separated list. Leaving the parameter out selects every
// queueable state; passing it empty selects none.
func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	filter, err := parseQueueFilter(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.queueService.Build(r.Context(), userID, filter)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("queue built",
		slog.Int("shown", result.Shown),
		slog.Int("total_due", result.TotalDue))

	shared.RespondWithJSON(w, r, http.StatusOK, queueResultToResponse(result, time.Now()))
}

// GetSummary handles GET /api/queue/summary requests.
func (h *QueueHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	summary, err := h.queueService.Summary(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summaryToResponse(summary))
}

func parseQueueFilter(r *http.Request) (queue.Filter, error) {
	var filter queue.Filter

	deckID, err := queryUUID(r, "deck_id")
	if err != nil {
		return filter, fmt.Errorf("%w: %w", queue.ErrInvalidFilter, err)
	}
	filter.DeckID = deckID

	limit, err := queryInt(r, "limit")
	if err != nil {
		return filter, fmt.Errorf("%w: %w", queue.ErrInvalidFilter, err)
	}
	filter.Limit = limit

	if values, present := r.URL.Query()["states"]; present {
		filter.States = []domain.CardStateKind{}
		for _, v := range values {
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					filter.States = append(filter.States, domain.CardStateKind(strings.ToLower(s)))
				}
			}
		}
	}

	return filter, nil
}
