package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/service/card_review"
	"github.com/sethvargo/go-retry"
)

// Retry defaults for concurrent modification of a card state.
const (
	DefaultReviewMaxRetries     = 3
	DefaultReviewRetryBaseDelay = 20 * time.Millisecond
)

// CardHandler handles card scheduling HTTP requests
type CardHandler struct {
	cardReviewService card_review.CardReviewService
	logger            *slog.Logger
	maxRetries        uint64
	retryBase         time.Duration
	now               func() time.Time
}

// CardHandlerOption configures a CardHandler.
type CardHandlerOption func(*CardHandler)

// WithReviewRetry sets how often a review that lost a concurrent update is
// retried, and the base delay of the exponential backoff between attempts.
// maxRetries 0 disables retrying.
func WithReviewRetry(maxRetries uint64, base time.Duration) CardHandlerOption {
	return func(h *CardHandler) {
		h.maxRetries = maxRetries
		if base > 0 {
			h.retryBase = base
		}
	}
}

// WithHandlerClock replaces the clock used to report whether a card is due.
func WithHandlerClock(now func() time.Time) CardHandlerOption {
	return func(h *CardHandler) {
		h.now = now
	}
}

// NewCardHandler creates a new CardHandler
func NewCardHandler(
	cardReviewService card_review.CardReviewService,
	logger *slog.Logger,
	opts ...CardHandlerOption,
) *CardHandler {
	if cardReviewService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("cardReviewService cannot be nil for CardHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for CardHandler")
	}

	h := &CardHandler{
		cardReviewService: cardReviewService,
		logger:            logger.With(slog.String("component", "card_handler")),
		maxRetries:        DefaultReviewMaxRetries,
		retryBase:         DefaultReviewRetryBaseDelay,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubmitReview handles POST /api/cards/{id}/review requests.
// It grades the card and appends the review in one step. A request that
// loses a race with another grade of the same card is retried with backoff;
// the Idempotency-Key header makes those retries safe.
func (h *CardHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	answer := card_review.ReviewAnswer{
		Rating:         domain.Rating(req.Rating),
		ResponseTimeMs: req.ResponseTimeMs,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	}

	backoff := retry.WithMaxRetries(h.maxRetries, retry.NewExponential(h.retryBase))
	attempts := 0
	result, err := retry.DoValue(r.Context(), backoff, func(ctx context.Context) (*card_review.Result, error) {
		attempts++
		res, err := h.cardReviewService.SubmitAnswer(ctx, userID, cardID, answer)
		if errors.Is(err, domain.ErrConcurrentModification) {
			log.Debug("review lost a concurrent update, retrying",
				slog.String("card_id", cardID.String()),
				slog.Int("attempt", attempts))
			return nil, retry.RetryableError(err)
		}
		return res, err
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("review recorded",
		slog.String("card_id", cardID.String()),
		slog.String("rating", req.Rating),
		slog.Bool("replayed", result.Replayed),
		slog.Int("attempts", attempts))

	shared.RespondWithJSON(w, r, http.StatusOK, submitResultToResponse(result, h.now()))
}

// PostponeCard handles POST /api/cards/{id}/postpone requests.
func (h *CardHandler) PostponeCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	var req PostponeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.String("card_id", cardID.String()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	state, err := h.cardReviewService.PostponeCard(r.Context(), userID, cardID, req.Days)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state, h.now()))
}

// SuspendCard handles POST /api/cards/{id}/suspend requests.
func (h *CardHandler) SuspendCard(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.cardReviewService.SuspendCard)
}

// UnsuspendCard handles POST /api/cards/{id}/unsuspend requests.
func (h *CardHandler) UnsuspendCard(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.cardReviewService.UnsuspendCard)
}

func (h *CardHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error),
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	state, err := apply(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state, h.now()))
}

// GetCardState handles GET /api/cards/{id}/state requests.
func (h *CardHandler) GetCardState(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, cardID, ok := handleUserIDAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	state, err := h.cardReviewService.GetCardState(r.Context(), userID, cardID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, cardStateToResponse(state, h.now()))
}

// EnrollCards handles POST /api/cards/enroll requests. It is the entry
// point for bulk imports.
func (h *CardHandler) EnrollCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req EnrollRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	result, err := h.cardReviewService.EnrollCards(r.Context(), userID, req.CardIDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("cards enrolled",
		slog.Int("requested", result.Requested),
		slog.Int("enrolled", result.Enrolled),
		slog.Int("missing", len(result.Missing)))

	status := http.StatusOK
	if result.Enrolled > 0 {
		status = http.StatusCreated
	}
	shared.RespondWithJSON(w, r, status, enrollResultToResponse(result))
}

// ListReviews handles GET /api/reviews?card_id=&since=&limit= requests.
func (h *CardHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	cardID, err := queryUUID(r, "card_id")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid card_id")
		return
	}
	since, err := queryTime(r, "since")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid since: must be an RFC 3339 timestamp")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid limit")
		return
	}

	reviews, err := h.cardReviewService.ListReviews(r.Context(), userID, card_review.ReviewQuery{
		CardID: cardID,
		Since:  since,
		Limit:  limit,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, reviewsToResponse(reviews))
}
