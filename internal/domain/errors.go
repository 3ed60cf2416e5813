package domain

import "errors"

// Scheduling engine errors. Callers match them with errors.Is; every layer
// above the domain wraps rather than replaces them.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStateTransition is returned when a card state cannot move the
	// way the caller asked, e.g. grading a suspended card or a card the user
	// was never enrolled in.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInvalidRating is returned for a rating outside again/hard/good/easy.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrConcurrentModification is returned when the card state row changed
	// between read and write. The whole grade must be retried.
	ErrConcurrentModification = errors.New("card state was modified concurrently")

	// ErrPersistenceFailure is returned when the state write or the review
	// append failed. Nothing from the failed attempt is visible afterwards.
	ErrPersistenceFailure = errors.New("persistence failure")
)
