package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// ReviewFilter selects entries from a user's review log.
type ReviewFilter struct {
	UserID uuid.UUID
	CardID *uuid.UUID
	Since  *time.Time
	Limit  int
}

// ReviewStore is the append-only review log. There is deliberately no
// update or delete operation.
type ReviewStore interface {
	// Append inserts a review. Returns ErrIdempotencyKeyExists when the
	// user already has a review with the same idempotency key.
	Append(ctx context.Context, review *domain.Review) error

	// GetByIdempotencyKey finds the review a user recorded under key.
	// Returns ErrReviewNotFound if there is none.
	GetByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*domain.Review, error)

	// List returns reviews newest first.
	List(ctx context.Context, filter ReviewFilter) ([]*domain.Review, error)

	// WithTx returns a ReviewStore that runs its queries on tx.
	WithTx(tx *sql.Tx) ReviewStore
}
