package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// Common errors
var (
	ErrNilState    = errors.New("card state cannot be nil")
	ErrInvalidDays = errors.New("postpone days must be at least 1")
)

// Service defines the interface for SRS algorithm operations. All methods are
// pure: they never mutate their input and never read the clock.
type Service interface {
	// Grade computes the state after a review and the matching log entry.
	Grade(
		state *domain.CardState,
		rating domain.Rating,
		now time.Time,
	) (*domain.CardState, *domain.Review, error)

	// Postpone pushes the due time forward by a number of days
	Postpone(state *domain.CardState, days int, now time.Time) (*domain.CardState, error)

	// Suspend removes the card from every queue until it is unsuspended
	Suspend(state *domain.CardState, now time.Time) (*domain.CardState, error)

	// Unsuspend restores the state the card had before it was suspended
	Unsuspend(state *domain.CardState, now time.Time) (*domain.CardState, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		return nil, fmt.Errorf("%w: params cannot be nil", ErrInvalidParams)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
	}, nil
}

// Grade implements the Service interface.
//
// Suspended cards cannot be graded and are reported as
// domain.ErrInvalidStateTransition. Unknown ratings are reported as
// domain.ErrInvalidRating.
func (s *defaultService) Grade(
	state *domain.CardState,
	rating domain.Rating,
	now time.Time,
) (*domain.CardState, *domain.Review, error) {
	if state == nil {
		return nil, nil, ErrNilState
	}

	if !rating.IsValid() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidRating, rating)
	}

	if state.State == domain.StateSuspended {
		return nil, nil, fmt.Errorf("%w: cannot grade a suspended card", domain.ErrInvalidStateTransition)
	}

	next := calculateNextState(state, rating, now, s.params)
	review := buildReview(state, next, rating, now)

	return next, review, nil
}

// Postpone implements the Service interface. The new due time is counted
// from whichever is later, the current due time or now, so postponing an
// overdue card actually moves it out of today's queue.
func (s *defaultService) Postpone(
	state *domain.CardState,
	days int,
	now time.Time,
) (*domain.CardState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if days < 1 {
		return nil, ErrInvalidDays
	}

	if state.State == domain.StateSuspended {
		return nil, fmt.Errorf("%w: cannot postpone a suspended card", domain.ErrInvalidStateTransition)
	}

	base := state.DueAt
	if now.After(base) {
		base = now
	}

	next := state.Clone()
	next.DueAt = base.Add(time.Duration(days) * day)
	next.UpdatedAt = now

	return next, nil
}

// Suspend implements the Service interface.
func (s *defaultService) Suspend(state *domain.CardState, now time.Time) (*domain.CardState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if state.State == domain.StateSuspended {
		return nil, fmt.Errorf("%w: card is already suspended", domain.ErrInvalidStateTransition)
	}

	next := state.Clone()
	next.SuspendedFrom = state.State
	next.State = domain.StateSuspended
	next.UpdatedAt = now

	return next, nil
}

// Unsuspend implements the Service interface. The due time is left as it
// was, so a card whose due time passed while suspended is due immediately.
func (s *defaultService) Unsuspend(state *domain.CardState, now time.Time) (*domain.CardState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if state.State != domain.StateSuspended {
		return nil, fmt.Errorf("%w: card is not suspended", domain.ErrInvalidStateTransition)
	}

	next := state.Clone()
	next.State = restoredState(state)
	next.SuspendedFrom = ""
	next.UpdatedAt = now

	return next, nil
}

// restoredState picks the phase a suspended card returns to. Rows written
// without a recorded origin fall back to what the counters imply.
func restoredState(state *domain.CardState) domain.CardStateKind {
	if state.SuspendedFrom.IsQueueable() {
		return state.SuspendedFrom
	}
	if state.ReviewCount == 0 {
		return domain.StateNew
	}
	return domain.StateLearning
}
