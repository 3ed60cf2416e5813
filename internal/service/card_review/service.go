package card_review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// MaxEnrollBatch is the largest number of cards EnrollCards accepts at once.
const MaxEnrollBatch = 500

// Review history paging
const (
	DefaultReviewListLimit = 50
	MaxReviewListLimit     = 500
)

// ReviewAnswer is a user's answer to one card.
type ReviewAnswer struct {
	// Rating is the self-assessment (again, hard, good, easy)
	Rating domain.Rating `json:"rating"`

	// ResponseTimeMs is how long the user took to answer, if known
	ResponseTimeMs int64 `json:"response_time_ms"`

	// IdempotencyKey identifies a client retry of the same answer. Optional.
	IdempotencyKey string `json:"-"`
}

// Result is the outcome of SubmitAnswer.
type Result struct {
	// State is the card state after the review
	State *domain.CardState

	// Review is the log entry that was appended
	Review *domain.Review

	// Replayed is true when the answer had already been recorded under the
	// same idempotency key and nothing was written
	Replayed bool
}

// EnrollResult reports what EnrollCards did.
type EnrollResult struct {
	// Requested is the number of distinct card IDs in the request
	Requested int `json:"requested"`

	// Enrolled is the number of new card states created
	Enrolled int `json:"enrolled"`

	// AlreadyEnrolled is the number of cards the user was already enrolled in
	AlreadyEnrolled int `json:"already_enrolled"`

	// Missing lists the requested IDs that do not refer to a card
	Missing []uuid.UUID `json:"missing"`
}

// ReviewQuery selects entries of a user's review history.
type ReviewQuery struct {
	CardID *uuid.UUID
	Since  *time.Time
	Limit  int
}

// CardReviewService grades cards and applies the administrative transitions
// of the scheduling state table.
type CardReviewService interface {
	// SubmitAnswer grades a card and records the review.
	//
	// The state update and the review append happen in one transaction:
	// either both are visible afterwards or neither is. The state row is
	// locked for the duration, so concurrent grades of the same card are
	// serialized.
	//
	// Returns:
	//   - domain.ErrInvalidRating when the rating is not one of again/hard/good/easy
	//   - domain.ErrValidation for a negative response time or an oversized key
	//   - domain.ErrInvalidStateTransition when the card is suspended or the
	//     user is not enrolled in it
	//   - ErrIdempotencyKeyReused when the key was used for a different card
	//   - domain.ErrConcurrentModification when the row changed underneath us
	//   - domain.ErrPersistenceFailure for any other storage failure
	SubmitAnswer(
		ctx context.Context,
		userID uuid.UUID,
		cardID uuid.UUID,
		answer ReviewAnswer,
	) (*Result, error)

	// PostponeCard pushes the card's due time forward by days.
	PostponeCard(ctx context.Context, userID, cardID uuid.UUID, days int) (*domain.CardState, error)

	// SuspendCard removes the card from the user's queues.
	SuspendCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)

	// UnsuspendCard returns a suspended card to the state it had before.
	UnsuspendCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)

	// EnrollCards creates new card states for cards the user has not seen.
	// Cards the user is already enrolled in are left untouched.
	EnrollCards(ctx context.Context, userID uuid.UUID, cardIDs []uuid.UUID) (*EnrollResult, error)

	// GetCardState returns the current scheduling state of a card.
	GetCardState(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)

	// ListReviews returns the user's review history, newest first.
	ListReviews(ctx context.Context, userID uuid.UUID, query ReviewQuery) ([]*domain.Review, error)
}

// Common error types for CardReviewService
var (
	// ErrIdempotencyKeyReused indicates that a key already recorded for one
	// card was sent with a different card.
	ErrIdempotencyKeyReused = errors.New("idempotency key already used for another card")

	// ErrNoCardIDs indicates an enrollment request without cards.
	ErrNoCardIDs = errors.New("at least one card ID is required")

	// ErrTooManyCardIDs indicates an enrollment request above MaxEnrollBatch.
	ErrTooManyCardIDs = fmt.Errorf("at most %d card IDs may be enrolled at once", MaxEnrollBatch)

	// ErrInvalidReviewQuery indicates a malformed review history query.
	ErrInvalidReviewQuery = errors.New("invalid review query")
)

// ServiceError wraps errors from the card review service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_answer", "enroll_cards")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
