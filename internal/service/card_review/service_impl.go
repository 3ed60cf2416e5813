package card_review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// Operation names used in ServiceError and logs
const (
	opSubmitAnswer  = "submit_answer"
	opPostponeCard  = "postpone_card"
	opSuspendCard   = "suspend_card"
	opUnsuspendCard = "unsuspend_card"
	opEnrollCards   = "enroll_cards"
	opGetCardState  = "get_card_state"
	opListReviews   = "list_reviews"
)

// Verify interface compliance at compile time
var _ CardReviewService = (*cardReviewServiceImpl)(nil)

// cardReviewServiceImpl implements the CardReviewService interface.
type cardReviewServiceImpl struct {
	db          *sql.DB
	cardStore   store.CardStore
	stateStore  store.CardStateStore
	reviewStore store.ReviewStore
	srsService  srs.Service
	emitter     events.EventEmitter
	now         func() time.Time
	logger      *slog.Logger
}

// Option customizes the service.
type Option func(*cardReviewServiceImpl)

// WithClock replaces the wall clock used to timestamp reviews.
func WithClock(now func() time.Time) Option {
	return func(s *cardReviewServiceImpl) {
		s.now = now
	}
}

// WithEventEmitter sets the emitter that receives committed changes.
func WithEventEmitter(emitter events.EventEmitter) Option {
	return func(s *cardReviewServiceImpl) {
		s.emitter = emitter
	}
}

// NewCardReviewService creates a new CardReviewService implementation.
func NewCardReviewService(
	db *sql.DB,
	cardStore store.CardStore,
	stateStore store.CardStateStore,
	reviewStore store.ReviewStore,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) CardReviewService {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}
	if cardStore == nil {
		panic("cardStore cannot be nil")
	}
	if stateStore == nil {
		panic("stateStore cannot be nil")
	}
	if reviewStore == nil {
		panic("reviewStore cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	s := &cardReviewServiceImpl{
		db:          db,
		cardStore:   cardStore,
		stateStore:  stateStore,
		reviewStore: reviewStore,
		srsService:  srsService,
		emitter:     events.NopEmitter{},
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "card_review_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitAnswer implements CardReviewService.SubmitAnswer.
func (s *cardReviewServiceImpl) SubmitAnswer(
	ctx context.Context,
	userID uuid.UUID,
	cardID uuid.UUID,
	answer ReviewAnswer,
) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()))

	log.Debug("processing review answer", slog.String("rating", string(answer.Rating)))

	// Reject bad input before touching the database
	if err := validateAnswer(answer); err != nil {
		log.Warn("invalid review answer", slog.String("error", err.Error()))
		return nil, NewServiceError(opSubmitAnswer, "invalid answer", err)
	}

	now := s.now()
	var (
		result   *Result
		previous *domain.CardState
	)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		states := s.stateStore.WithTx(tx)
		reviews := s.reviewStore.WithTx(tx)

		current, err := lockState(ctx, states, userID, cardID)
		if err != nil {
			return err
		}

		// The row lock is held, so a concurrent retry with the same key
		// either sees our review or waits for us to roll back.
		if answer.IdempotencyKey != "" {
			existing, err := reviews.GetByIdempotencyKey(ctx, userID, answer.IdempotencyKey)
			switch {
			case err == nil:
				if existing.CardID != cardID {
					return ErrIdempotencyKeyReused
				}
				result = &Result{State: current, Review: existing, Replayed: true}
				return nil
			case !errors.Is(err, store.ErrReviewNotFound):
				return persistenceError(err)
			}
		}

		next, review, err := s.srsService.Grade(current, answer.Rating, now)
		if err != nil {
			return err
		}

		review.ID = uuid.New()
		review.ResponseTimeMs = answer.ResponseTimeMs
		review.IdempotencyKey = answer.IdempotencyKey

		if err := states.Update(ctx, next, current.Version); err != nil {
			return persistenceError(err)
		}
		if err := reviews.Append(ctx, review); err != nil {
			return persistenceError(err)
		}

		previous = current
		result = &Result{State: next, Review: review}
		return nil
	})
	if err != nil {
		err = classifyError(err)
		logFailure(log, opSubmitAnswer, err)
		return nil, NewServiceError(opSubmitAnswer, "failed to record review", err)
	}

	if result.Replayed {
		log.Info("replayed review for idempotency key",
			slog.String("review_id", result.Review.ID.String()))
		return result, nil
	}

	log.Debug("review recorded",
		slog.String("review_id", result.Review.ID.String()),
		slog.String("previous_state", string(previous.State)),
		slog.String("new_state", string(result.State.State)),
		slog.Int("new_interval", result.State.Interval))

	s.publish(ctx, events.TypeReviewRecorded, events.ReviewRecorded{
		ReviewID:         result.Review.ID,
		UserID:           userID,
		CardID:           cardID,
		Rating:           string(result.Review.Rating),
		PreviousState:    string(previous.State),
		NewState:         string(result.State.State),
		PreviousInterval: previous.Interval,
		NewInterval:      result.State.Interval,
		EaseFactor:       result.State.EaseFactor,
		Lapse:            result.State.Lapses > previous.Lapses,
		ResponseTimeMs:   result.Review.ResponseTimeMs,
	}, now)

	return result, nil
}

// PostponeCard implements CardReviewService.PostponeCard.
func (s *cardReviewServiceImpl) PostponeCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
	days int,
) (*domain.CardState, error) {
	if days < 1 {
		err := fmt.Errorf("%w: %w", domain.ErrValidation, srs.ErrInvalidDays)
		return nil, NewServiceError(opPostponeCard, "invalid days", err)
	}

	return s.transition(ctx, opPostponeCard, "postpone", userID, cardID,
		func(state *domain.CardState, now time.Time) (*domain.CardState, error) {
			return s.srsService.Postpone(state, days, now)
		})
}

// SuspendCard implements CardReviewService.SuspendCard.
func (s *cardReviewServiceImpl) SuspendCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	return s.transition(ctx, opSuspendCard, "suspend", userID, cardID, s.srsService.Suspend)
}

// UnsuspendCard implements CardReviewService.UnsuspendCard.
func (s *cardReviewServiceImpl) UnsuspendCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	return s.transition(ctx, opUnsuspendCard, "unsuspend", userID, cardID, s.srsService.Unsuspend)
}

// transition locks the card state, applies fn and writes the result back.
func (s *cardReviewServiceImpl) transition(
	ctx context.Context,
	operation, action string,
	userID, cardID uuid.UUID,
	fn func(state *domain.CardState, now time.Time) (*domain.CardState, error),
) (*domain.CardState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("operation", operation),
		slog.String("user_id", userID.String()),
		slog.String("card_id", cardID.String()))

	now := s.now()
	var previous, updated *domain.CardState

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		states := s.stateStore.WithTx(tx)

		current, err := lockState(ctx, states, userID, cardID)
		if err != nil {
			return err
		}

		next, err := fn(current, now)
		if err != nil {
			return err
		}

		if err := states.Update(ctx, next, current.Version); err != nil {
			return persistenceError(err)
		}

		previous, updated = current, next
		return nil
	})
	if err != nil {
		err = classifyError(err)
		logFailure(log, operation, err)
		return nil, NewServiceError(operation, "failed to "+action+" card", err)
	}

	log.Debug("card state changed",
		slog.String("from_state", string(previous.State)),
		slog.String("to_state", string(updated.State)))

	s.publish(ctx, events.TypeCardStateChanged, events.CardStateChanged{
		UserID:    userID,
		CardID:    cardID,
		Action:    action,
		FromState: string(previous.State),
		ToState:   string(updated.State),
		DueAt:     updated.DueAt,
	}, now)

	return updated, nil
}

// EnrollCards implements CardReviewService.EnrollCards.
func (s *cardReviewServiceImpl) EnrollCards(
	ctx context.Context,
	userID uuid.UUID,
	cardIDs []uuid.UUID,
) (*EnrollResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("user_id", userID.String()))

	ids := uniqueIDs(cardIDs)
	switch {
	case len(ids) == 0:
		return nil, NewServiceError(opEnrollCards, "no cards", fmt.Errorf("%w: %w", domain.ErrValidation, ErrNoCardIDs))
	case len(ids) > MaxEnrollBatch:
		return nil, NewServiceError(opEnrollCards, "too many cards", fmt.Errorf("%w: %w", domain.ErrValidation, ErrTooManyCardIDs))
	}

	now := s.now()
	result := &EnrollResult{Requested: len(ids), Missing: []uuid.UUID{}}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		existing, err := s.cardStore.WithTx(tx).FindExisting(ctx, ids)
		if err != nil {
			return persistenceError(err)
		}

		found := make(map[uuid.UUID]struct{}, len(existing))
		for _, id := range existing {
			found[id] = struct{}{}
		}

		states := make([]*domain.CardState, 0, len(existing))
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				result.Missing = append(result.Missing, id)
				continue
			}
			state, err := domain.NewCardState(userID, id, now)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			states = append(states, state)
		}

		if len(states) == 0 {
			return nil
		}

		created, err := s.stateStore.WithTx(tx).CreateMultiple(ctx, states)
		if err != nil {
			return persistenceError(err)
		}
		result.Enrolled = created
		result.AlreadyEnrolled = len(states) - created
		return nil
	})
	if err != nil {
		err = classifyError(err)
		logFailure(log, opEnrollCards, err)
		return nil, NewServiceError(opEnrollCards, "failed to enroll cards", err)
	}

	log.Info("enrolled cards",
		slog.Int("requested", result.Requested),
		slog.Int("enrolled", result.Enrolled),
		slog.Int("already_enrolled", result.AlreadyEnrolled),
		slog.Int("missing", len(result.Missing)))

	if result.Enrolled > 0 {
		s.publish(ctx, events.TypeCardsEnrolled, events.CardsEnrolled{
			UserID:    userID,
			Requested: result.Requested,
			Enrolled:  result.Enrolled,
		}, now)
	}

	return result, nil
}

// GetCardState implements CardReviewService.GetCardState.
func (s *cardReviewServiceImpl) GetCardState(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := s.stateStore.Get(ctx, userID, cardID)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("card state not found",
				slog.String("user_id", userID.String()),
				slog.String("card_id", cardID.String()))
			return nil, NewServiceError(opGetCardState, "card state not found", err)
		}
		err = persistenceError(err)
		logFailure(log, opGetCardState, err)
		return nil, NewServiceError(opGetCardState, "failed to load card state", err)
	}

	return state, nil
}

// ListReviews implements CardReviewService.ListReviews.
func (s *cardReviewServiceImpl) ListReviews(
	ctx context.Context,
	userID uuid.UUID,
	query ReviewQuery,
) ([]*domain.Review, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if query.Limit < 0 {
		err := fmt.Errorf("%w: %w: limit must not be negative", domain.ErrValidation, ErrInvalidReviewQuery)
		return nil, NewServiceError(opListReviews, "invalid query", err)
	}

	limit := query.Limit
	if limit == 0 {
		limit = DefaultReviewListLimit
	}
	if limit > MaxReviewListLimit {
		limit = MaxReviewListLimit
	}

	reviews, err := s.reviewStore.List(ctx, store.ReviewFilter{
		UserID: userID,
		CardID: query.CardID,
		Since:  query.Since,
		Limit:  limit,
	})
	if err != nil {
		err = persistenceError(err)
		logFailure(log, opListReviews, err)
		return nil, NewServiceError(opListReviews, "failed to list reviews", err)
	}

	return reviews, nil
}

// publish emits an event for a committed change. Failures are logged only;
// the change itself already happened.
func (s *cardReviewServiceImpl) publish(ctx context.Context, eventType string, payload interface{}, at time.Time) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewEvent(eventType, payload, at)
	if err != nil {
		log.Error("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", redact.Error(err)))
	}
}

// lockState loads the card state with a row lock. A missing row means the
// user was never enrolled in the card, which no transition can start from.
func lockState(
	ctx context.Context,
	states store.CardStateStore,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	state, err := states.GetForUpdate(ctx, userID, cardID)
	if err != nil {
		if errors.Is(err, store.ErrCardStateNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidStateTransition, err)
		}
		return nil, persistenceError(err)
	}
	return state, nil
}

func validateAnswer(answer ReviewAnswer) error {
	if !answer.Rating.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRating, answer.Rating)
	}
	if answer.ResponseTimeMs < 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidResponseTime)
	}
	if len(answer.IdempotencyKey) > domain.MaxIdempotencyKeyLength {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrIdempotencyKeyTooLong)
	}
	return nil
}

// persistenceError classifies a store failure. Lost races are reported as
// concurrent modification so callers know a retry may succeed.
func persistenceError(err error) error {
	if errors.Is(err, store.ErrVersionConflict) ||
		errors.Is(err, store.ErrIdempotencyKeyExists) ||
		errors.Is(err, store.ErrSerialization) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrentModification, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}

// classifyError makes sure every error leaving a transaction carries one of
// the service's sentinels. Begin and commit failures arrive unclassified.
func classifyError(err error) error {
	for _, known := range []error{
		domain.ErrInvalidRating,
		domain.ErrValidation,
		domain.ErrInvalidStateTransition,
		domain.ErrConcurrentModification,
		domain.ErrPersistenceFailure,
		ErrIdempotencyKeyReused,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return persistenceError(err)
}

func logFailure(log *slog.Logger, operation string, err error) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("error", redact.Error(err)),
	}
	if errors.Is(err, domain.ErrPersistenceFailure) {
		log.Error("card review operation failed", attrs...)
		return
	}
	log.Warn("card review operation rejected", attrs...)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
