package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

const reviewColumns = `
		id, card_id, user_id, rating, response_time_ms, reviewed_at,
		previous_interval, new_interval, easiness_factor, previous_state,
		new_state, idempotency_key`

// PostgresReviewStore implements the append-only store.ReviewStore.
type PostgresReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewStore creates a new PostgreSQL implementation of the ReviewStore interface.
func NewPostgresReviewStore(db store.DBTX, logger *slog.Logger) *PostgresReviewStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresReviewStore{
		db:     db,
		logger: logger.With(slog.String("component", "review_store")),
	}
}

// Ensure PostgresReviewStore implements store.ReviewStore interface
var _ store.ReviewStore = (*PostgresReviewStore)(nil)

// Append implements store.ReviewStore.Append
func (s *PostgresReviewStore) Append(ctx context.Context, review *domain.Review) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := review.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		review.ID,
		review.CardID,
		review.UserID,
		string(review.Rating),
		review.ResponseTimeMs,
		review.ReviewedAt.UTC(),
		review.PreviousInterval,
		review.NewInterval,
		review.EaseFactor,
		string(review.PreviousState),
		string(review.NewState),
		nullString(review.IdempotencyKey),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate idempotency key",
				slog.String("user_id", review.UserID.String()),
				slog.String("card_id", review.CardID.String()))
			return store.ErrIdempotencyKeyExists
		}
		log.Error("failed to append review",
			slog.String("error", err.Error()),
			slog.String("user_id", review.UserID.String()),
			slog.String("card_id", review.CardID.String()))
		return MapError(err)
	}

	return nil
}

// GetByIdempotencyKey implements store.ReviewStore.GetByIdempotencyKey
func (s *PostgresReviewStore) GetByIdempotencyKey(
	ctx context.Context,
	userID uuid.UUID,
	key string,
) (*domain.Review, error) {
	query := `SELECT` + reviewColumns + `
		FROM reviews
		WHERE user_id = $1 AND idempotency_key = $2
	`
	review, err := scanReview(s.db.QueryRowContext(ctx, query, userID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get review by idempotency key",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	return review, nil
}

// List implements store.ReviewStore.List
func (s *PostgresReviewStore) List(ctx context.Context, filter store.ReviewFilter) ([]*domain.Review, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	args := []any{filter.UserID}
	query := `SELECT` + reviewColumns + `
		FROM reviews
		WHERE user_id = $1`
	if filter.CardID != nil {
		args = append(args, *filter.CardID)
		query += fmt.Sprintf(" AND card_id = $%d", len(args))
	}
	if filter.Since != nil {
		args = append(args, filter.Since.UTC())
		query += fmt.Sprintf(" AND reviewed_at >= $%d", len(args))
	}
	query += "\n\t\tORDER BY reviewed_at DESC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list reviews",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows",
				slog.String("error", closeErr.Error()))
		}
	}()

	reviews := make([]*domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, MapError(err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return reviews, nil
}

// WithTx implements store.ReviewStore.WithTx
func (s *PostgresReviewStore) WithTx(tx *sql.Tx) store.ReviewStore {
	return &PostgresReviewStore{
		db:     tx,
		logger: s.logger,
	}
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var (
		review         domain.Review
		rating         string
		previousState  string
		newState       string
		idempotencyKey sql.NullString
	)

	err := row.Scan(
		&review.ID,
		&review.CardID,
		&review.UserID,
		&rating,
		&review.ResponseTimeMs,
		&review.ReviewedAt,
		&review.PreviousInterval,
		&review.NewInterval,
		&review.EaseFactor,
		&previousState,
		&newState,
		&idempotencyKey,
	)
	if err != nil {
		return nil, err
	}

	review.Rating = domain.Rating(rating)
	review.PreviousState = domain.CardStateKind(previousState)
	review.NewState = domain.CardStateKind(newState)
	review.ReviewedAt = review.ReviewedAt.UTC()
	review.IdempotencyKey = idempotencyKey.String

	return &review, nil
}
