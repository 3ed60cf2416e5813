package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rating is the user's self-assessment for one review.
type Rating string

// Possible rating values
const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// MaxIdempotencyKeyLength bounds client supplied idempotency keys.
const MaxIdempotencyKeyLength = 128

// Review validation errors
var (
	ErrEmptyReviewUserID       = errors.New("review user ID cannot be empty")
	ErrEmptyReviewCardID       = errors.New("review card ID cannot be empty")
	ErrInvalidResponseTime     = errors.New("response time must be greater than or equal to 0")
	ErrIdempotencyKeyTooLong   = errors.New("idempotency key is too long")
	ErrEmptyReviewReviewedAt   = errors.New("review timestamp cannot be empty")
	ErrInvalidReviewSnapshotEF = errors.New("review ease factor must be greater than or equal to 1.0")
)

// IsValid reports whether r is one of the four ratings.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	default:
		return false
	}
}

// ParseRating converts a raw string into a Rating. Matching is case-insensitive.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// Review is one immutable entry of the review log. The interval and ease
// factor values are snapshots taken at grading time and are never recomputed.
type Review struct {
	ID               uuid.UUID     `json:"id"`
	CardID           uuid.UUID     `json:"card_id"`
	UserID           uuid.UUID     `json:"user_id"`
	Rating           Rating        `json:"rating"`
	ResponseTimeMs   int64         `json:"response_time_ms"`
	ReviewedAt       time.Time     `json:"reviewed_at"`
	PreviousInterval int           `json:"previous_interval"`
	NewInterval      int           `json:"new_interval"`
	EaseFactor       float64       `json:"easiness_factor"`
	PreviousState    CardStateKind `json:"previous_state"`
	NewState         CardStateKind `json:"new_state"`
	IdempotencyKey   string        `json:"idempotency_key,omitempty"`
}

// Validate checks if the Review has valid data.
func (r *Review) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrEmptyReviewUserID
	}

	if r.CardID == uuid.Nil {
		return ErrEmptyReviewCardID
	}

	if !r.Rating.IsValid() {
		return ErrInvalidRating
	}

	if r.ResponseTimeMs < 0 {
		return ErrInvalidResponseTime
	}

	if r.ReviewedAt.IsZero() {
		return ErrEmptyReviewReviewedAt
	}

	if r.EaseFactor < 1.0 {
		return ErrInvalidReviewSnapshotEF
	}

	if len(r.IdempotencyKey) > MaxIdempotencyKeyLength {
		return ErrIdempotencyKeyTooLong
	}

	return nil
}
