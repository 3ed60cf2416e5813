// Package queue builds a user's study queue from the scheduling state table.
//
// A queue is the ordered list of cards that are due now: new cards first,
// then learning, then review, each group ordered by due time. Building a
// queue never writes anything.
package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// Queue size bounds used when no configuration is given
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// ErrInvalidFilter is returned when a filter names a state that can never be
// queued or carries a negative limit.
var ErrInvalidFilter = errors.New("invalid queue filter")

// Filter narrows a queue. The zero value asks for every queueable state in
// every deck with the default limit.
type Filter struct {
	// DeckID restricts the queue to one deck when set
	DeckID *uuid.UUID

	// States lists the states to include. nil means all queueable states;
	// an empty non-nil slice selects nothing.
	States []domain.CardStateKind `validate:"omitempty,dive,oneof=new learning review"`

	// Limit caps the number of cards returned. 0 selects the default and
	// values above the maximum are clamped.
	Limit int `validate:"gte=0"`
}

// Result is a built queue.
type Result struct {
	// Items are the due card states in queue order
	Items []*domain.CardState `json:"items"`

	// Shown is len(Items)
	Shown int `json:"shown"`

	// TotalDue is how many cards match the filter regardless of the limit
	TotalDue int `json:"total_due"`

	// Limit is the effective limit after defaults and clamping
	Limit int `json:"limit"`
}

// Summary counts a user's cards.
type Summary struct {
	// Counts holds the number of cards per state, including zero entries
	Counts map[domain.CardStateKind]int `json:"counts"`

	// Due is the number of queueable cards due now
	Due int `json:"due"`

	// Total is the number of cards the user is enrolled in
	Total int `json:"total"`
}

// QueueService builds study queues.
type QueueService interface {
	// Build returns the cards due for userID, in queue order.
	//
	// Returns ErrInvalidFilter (wrapping domain.ErrValidation) for a bad
	// filter and domain.ErrPersistenceFailure when the store fails.
	Build(ctx context.Context, userID uuid.UUID, filter Filter) (*Result, error)

	// Summary returns per-state counts for userID.
	Summary(ctx context.Context, userID uuid.UUID) (*Summary, error)
}
