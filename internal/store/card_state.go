package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// DueFilter selects the due card states of one user.
type DueFilter struct {
	UserID uuid.UUID
	// States must be non-empty and contain only queueable states.
	States []domain.CardStateKind
	// DeckID restricts results to cards of one deck when set.
	DeckID *uuid.UUID
	// Now is the reference time; a state is due when due_at <= Now.
	Now time.Time
	// Limit bounds ListDue results. It is ignored by CountDue.
	Limit int
}

// CardStateStore defines the interface for the scheduling state table.
type CardStateStore interface {
	// CreateMultiple saves initial states, silently skipping pairs that are
	// already enrolled. It returns the number of rows actually inserted.
	CreateMultiple(ctx context.Context, states []*domain.CardState) (int, error)

	// Get retrieves the state of a card for a user without locking.
	// Returns ErrCardStateNotFound if the pair is not enrolled.
	Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)

	// GetForUpdate retrieves the state with a row-level lock (SELECT FOR
	// UPDATE). It must run inside a transaction.
	// Returns ErrCardStateNotFound if the pair is not enrolled.
	GetForUpdate(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)

	// Update writes state if the stored version still equals expectedVersion.
	// On success state.Version is advanced to the stored value.
	// Returns ErrVersionConflict if the row changed, ErrCardStateNotFound if
	// it is gone.
	Update(ctx context.Context, state *domain.CardState, expectedVersion int64) error

	// ListDue returns due states ordered by queue priority, then due_at,
	// then card_id.
	ListDue(ctx context.Context, filter DueFilter) ([]*domain.CardState, error)

	// CountDue returns the number of states matching filter, ignoring Limit.
	CountDue(ctx context.Context, filter DueFilter) (int, error)

	// CountByState returns how many of the user's cards are in each state.
	CountByState(ctx context.Context, userID uuid.UUID) (map[domain.CardStateKind]int, error)

	// WithTx returns a CardStateStore that runs its queries on tx.
	WithTx(tx *sql.Tx) CardStateStore
}
