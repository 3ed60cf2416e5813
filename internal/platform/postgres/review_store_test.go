package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reviewColumnNames = []string{
	"id", "card_id", "user_id", "rating", "response_time_ms", "reviewed_at",
	"previous_interval", "new_interval", "easiness_factor", "previous_state",
	"new_state", "idempotency_key",
}

func newMockReviewStore(t *testing.T) (*PostgresReviewStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresReviewStore(db, nil), mock
}

func sampleReview() *domain.Review {
	return &domain.Review{
		ID:               uuid.New(),
		CardID:           uuid.New(),
		UserID:           uuid.New(),
		Rating:           domain.RatingGood,
		ResponseTimeMs:   1800,
		ReviewedAt:       time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
		PreviousInterval: 0,
		NewInterval:      1,
		EaseFactor:       2.5,
		PreviousState:    domain.StateNew,
		NewState:         domain.StateLearning,
		IdempotencyKey:   "client-key-1",
	}
}

func TestReviewStoreAppend(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockReviewStore(t)
		r := sampleReview()

		mock.ExpectExec("INSERT INTO reviews").
			WithArgs(r.ID, r.CardID, r.UserID, "good", r.ResponseTimeMs, r.ReviewedAt,
				0, 1, 2.5, "new", "learning", "client-key-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Append(context.Background(), r))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockReviewStore(t)

		mock.ExpectExec("INSERT INTO reviews").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

		err := s.Append(context.Background(), sampleReview())
		assert.ErrorIs(t, err, store.ErrIdempotencyKeyExists)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("invalid review never reaches the database", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockReviewStore(t)
		r := sampleReview()
		r.Rating = "meh"

		err := s.Append(context.Background(), r)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReviewStoreGetByIdempotencyKey(t *testing.T) {
	t.Parallel()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockReviewStore(t)
		r := sampleReview()

		mock.ExpectQuery("WHERE user_id = \\$1 AND idempotency_key = \\$2").
			WithArgs(r.UserID, r.IdempotencyKey).
			WillReturnRows(sqlmock.NewRows(reviewColumnNames).AddRow(
				r.ID.String(), r.CardID.String(), r.UserID.String(), "good", r.ResponseTimeMs,
				r.ReviewedAt, 0, 1, 2.5, "new", "learning", r.IdempotencyKey,
			))

		got, err := s.GetByIdempotencyKey(context.Background(), r.UserID, r.IdempotencyKey)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockReviewStore(t)
		mock.ExpectQuery("FROM reviews").WillReturnRows(sqlmock.NewRows(reviewColumnNames))

		_, err := s.GetByIdempotencyKey(context.Background(), uuid.New(), "missing")
		assert.ErrorIs(t, err, store.ErrReviewNotFound)
	})
}

func TestReviewStoreList(t *testing.T) {
	t.Parallel()
	s, mock := newMockReviewStore(t)
	userID := uuid.New()
	since := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WHERE user_id = \\$1 AND reviewed_at >= \\$2\\s+ORDER BY reviewed_at DESC, id ASC\\s+LIMIT \\$3").
		WithArgs(userID, since, 25).
		WillReturnRows(sqlmock.NewRows(reviewColumnNames).AddRow(
			uuid.NewString(), uuid.NewString(), userID.String(), "again", int64(900),
			since.Add(time.Hour), 3, 0, 2.3, "review", "learning", nil,
		))

	got, err := s.List(context.Background(), store.ReviewFilter{UserID: userID, Since: &since, Limit: 25})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.RatingAgain, got[0].Rating)
	assert.Empty(t, got[0].IdempotencyKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}
