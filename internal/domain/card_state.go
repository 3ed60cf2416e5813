package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CardStateKind is the lifecycle phase of a card for one user.
type CardStateKind string

// Possible lifecycle phases
const (
	StateNew       CardStateKind = "new"
	StateLearning  CardStateKind = "learning"
	StateReview    CardStateKind = "review"
	StateSuspended CardStateKind = "suspended"
)

// DefaultEaseFactor is the ease factor every card starts with.
const DefaultEaseFactor = 2.5

// queuePriority ranks the states that may appear in a study queue. Lower
// ranks are shown first. Suspended cards have no rank and are never queued.
var queuePriority = map[CardStateKind]int{
	StateNew:      0,
	StateLearning: 1,
	StateReview:   2,
}

// Common validation errors for CardState
var (
	ErrEmptyStateUserID   = errors.New("card state user ID cannot be empty")
	ErrEmptyStateCardID   = errors.New("card state card ID cannot be empty")
	ErrInvalidStateKind   = errors.New("invalid card state")
	ErrInvalidInterval    = errors.New("interval must be greater than or equal to 0")
	ErrInvalidEaseFactor  = errors.New("ease factor must be greater than or equal to 1.0")
	ErrInvalidRepetitions = errors.New("repetitions must be greater than or equal to 0")
	ErrInvalidLapses      = errors.New("lapses must be greater than or equal to 0")
)

// IsValid reports whether k is one of the four known states.
func (k CardStateKind) IsValid() bool {
	switch k {
	case StateNew, StateLearning, StateReview, StateSuspended:
		return true
	default:
		return false
	}
}

// IsQueueable reports whether cards in state k may be offered for study.
func (k CardStateKind) IsQueueable() bool {
	_, ok := queuePriority[k]
	return ok
}

// QueuePriority returns the ordering rank of k within a study queue.
// ok is false for states that never appear in a queue.
func QueuePriority(k CardStateKind) (rank int, ok bool) {
	rank, ok = queuePriority[k]
	return rank, ok
}

// QueueableStates returns every queueable state in priority order.
func QueueableStates() []CardStateKind {
	states := make([]CardStateKind, len(queuePriority))
	for k, rank := range queuePriority {
		states[rank] = k
	}
	return states
}

// ParseCardStateKind converts a raw string into a CardStateKind.
func ParseCardStateKind(s string) (CardStateKind, error) {
	k := CardStateKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStateKind, s)
	}
	return k, nil
}

// CardState is the mutable learning state of one card for one user.
// It is created once on first exposure and afterwards changed only by the
// scheduler and the suspend/unsuspend/postpone administrative actions.
type CardState struct {
	CardID         uuid.UUID     `json:"card_id"`
	UserID         uuid.UUID     `json:"user_id"`
	State          CardStateKind `json:"state"`
	DueAt          time.Time     `json:"due_at"`
	Interval       int           `json:"interval"` // days
	Repetitions    int           `json:"repetitions"`
	EaseFactor     float64       `json:"easiness_factor"`
	Lapses         int           `json:"lapses"`
	ReviewCount    int           `json:"review_count"`
	LastReviewedAt *time.Time    `json:"last_reviewed_at,omitempty"`
	// SuspendedFrom holds the state a suspended card returns to.
	SuspendedFrom CardStateKind `json:"suspended_from,omitempty"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewCardState creates the initial state for a card the user has never seen.
// The card is due immediately. First exposure and bulk enrollment both go
// through this constructor.
func NewCardState(userID, cardID uuid.UUID, now time.Time) (*CardState, error) {
	now = now.UTC()
	s := &CardState{
		CardID:      cardID,
		UserID:      userID,
		State:       StateNew,
		DueAt:       now,
		Interval:    0,
		Repetitions: 0,
		EaseFactor:  DefaultEaseFactor,
		Lapses:      0,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks if the CardState has valid data.
// Returns an error if any field fails validation.
func (s *CardState) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrEmptyStateUserID
	}

	if s.CardID == uuid.Nil {
		return ErrEmptyStateCardID
	}

	if !s.State.IsValid() {
		return ErrInvalidStateKind
	}

	if s.Interval < 0 {
		return ErrInvalidInterval
	}

	if s.EaseFactor < 1.0 {
		return ErrInvalidEaseFactor
	}

	if s.Repetitions < 0 {
		return ErrInvalidRepetitions
	}

	if s.Lapses < 0 {
		return ErrInvalidLapses
	}

	return nil
}

// IsDue reports whether the card may be studied at now.
func (s *CardState) IsDue(now time.Time) bool {
	return s.State.IsQueueable() && !s.DueAt.After(now)
}

// Clone returns a deep copy of the state.
func (s *CardState) Clone() *CardState {
	c := *s
	if s.LastReviewedAt != nil {
		t := *s.LastReviewedAt
		c.LastReviewedAt = &t
	}
	return &c
}
