package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// CardStore is the read-only view of the card catalogue. Cards are owned by
// the content side of the application; the scheduler never writes them.
type CardStore interface {
	// GetByID retrieves a card by its unique ID.
	// Returns ErrCardNotFound if the card does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)

	// FindExisting returns the subset of ids that refer to existing cards,
	// in no particular order.
	FindExisting(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)

	// WithTx returns a CardStore that runs its queries on tx.
	WithTx(tx *sql.Tx) CardStore
}
