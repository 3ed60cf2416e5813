package postgres

import (
	"context"
	"database/sql/driver"
	"regexp"
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

var cardStateColumnNames = []string{
	"card_id", "user_id", "state", "due_at", "interval_days", "repetitions",
	"easiness_factor", "lapses", "review_count", "last_reviewed_at",
	"suspended_from", "version", "created_at", "updated_at",
}

func newMockCardStateStore(t *testing.T) (*PostgresCardStateStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresCardStateStore(db, nil), mock
}

func cardStateRow(s *domain.CardState) []driver.Value {
	var last any
	if s.LastReviewedAt != nil {
		last = *s.LastReviewedAt
	}
	var from any
	if s.SuspendedFrom != "" {
		from = string(s.SuspendedFrom)
	}
	return []driver.Value{
		s.CardID.String(), s.UserID.String(), string(s.State), s.DueAt, s.Interval,
		s.Repetitions, s.EaseFactor, s.Lapses, s.ReviewCount, last, from,
		s.Version, s.CreatedAt, s.UpdatedAt,
	}
}

func sampleState(t *testing.T, now time.Time) *domain.CardState {
	t.Helper()
	s, err := domain.NewCardState(uuid.New(), uuid.New(), now)
	require.NoError(t, err)
	return s
}

func TestQueuePriorityExpr(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"CASE cs.state WHEN 'new' THEN 0 WHEN 'learning' THEN 1 WHEN 'review' THEN 2 ELSE 2147483647 END",
		queuePriorityExpr)
}

func TestCardStateStoreCreateMultipleErrors(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	t.Run("unknown card", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		mock.ExpectExec("INSERT INTO card_states").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO card_states").
			WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode})

		n, err := s.CreateMultiple(context.Background(), []*domain.CardState{
			sampleState(t, now), sampleState(t, now),
		})
		assert.ErrorIs(t, err, store.ErrCardNotFound)
		assert.Equal(t, 1, n)
	})

	t.Run("invalid entity touches nothing", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		bad := sampleState(t, now)
		bad.Interval = -1

		_, err := s.CreateMultiple(context.Background(), []*domain.CardState{sampleState(t, now), bad})
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardStateStoreCreateMultipleSkipsExisting(t *testing.T) {
	t.Parallel()
	s, mock := newMockCardStateStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("ON CONFLICT \\(card_id, user_id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("ON CONFLICT \\(card_id, user_id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ON CONFLICT \\(card_id, user_id\\) DO NOTHING").WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := s.CreateMultiple(context.Background(), []*domain.CardState{
		sampleState(t, now), sampleState(t, now), sampleState(t, now),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardStateStoreGet(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

	t.Run("found with lock", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		want := sampleState(t, now)
		want.State = domain.StateSuspended
		want.SuspendedFrom = domain.StateReview
		reviewed := now.Add(-time.Hour)
		want.LastReviewedAt = &reviewed
		want.Version = 7

		mock.ExpectQuery("FROM card_states cs\\s+WHERE cs.user_id = \\$1 AND cs.card_id = \\$2\\s+FOR UPDATE").
			WithArgs(want.UserID, want.CardID).
			WillReturnRows(sqlmock.NewRows(cardStateColumnNames).AddRow(cardStateRow(want)...))

		got, err := s.GetForUpdate(context.Background(), want.UserID, want.CardID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		mock.ExpectQuery("FROM card_states cs").
			WillReturnRows(sqlmock.NewRows(cardStateColumnNames))

		_, err := s.Get(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, store.ErrCardStateNotFound)
	})
}

func TestCardStateStoreUpdate(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	updateSQL := regexp.QuoteMeta("WHERE card_id = $1 AND user_id = $2 AND version = $13")

	t.Run("advances version", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		state := sampleState(t, now)
		state.Version = 3

		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.Update(context.Background(), state, 3))
		assert.Equal(t, int64(4), state.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		state := sampleState(t, now)

		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM card_states").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))

		err := s.Update(context.Background(), state, 4)
		assert.ErrorIs(t, err, store.ErrVersionConflict)
		assert.Equal(t, int64(1), state.Version)
	})

	t.Run("row gone", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		state := sampleState(t, now)

		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT version FROM card_states").
			WillReturnRows(sqlmock.NewRows([]string{"version"}))

		err := s.Update(context.Background(), state, 1)
		assert.ErrorIs(t, err, store.ErrCardStateNotFound)
	})

	t.Run("serialization failure", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)

		mock.ExpectExec(updateSQL).WillReturnError(&pgconn.PgError{Code: serializationFailure})

		err := s.Update(context.Background(), sampleState(t, now), 1)
		assert.ErrorIs(t, err, store.ErrSerialization)
	})
}

func TestCardStateStoreListDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	userID := uuid.New()

	t.Run("orders by priority and filters by deck", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)
		deckID := uuid.New()

		newCard := sampleState(t, now.Add(-time.Minute))
		newCard.UserID = userID

		mock.ExpectQuery(regexp.QuoteMeta("JOIN cards c ON c.id = cs.card_id AND c.deck_id = $3") +
			".*" + regexp.QuoteMeta("cs.state IN ($4, $5)") +
			".*" + regexp.QuoteMeta("ORDER BY "+queuePriorityExpr+", cs.due_at ASC, cs.card_id ASC") +
			".*" + regexp.QuoteMeta("LIMIT $6")).
			WithArgs(userID, now, deckID, "new", "review", 10).
			WillReturnRows(sqlmock.NewRows(cardStateColumnNames).AddRow(cardStateRow(newCard)...))

		got, err := s.ListDue(context.Background(), store.DueFilter{
			UserID: userID,
			States: []domain.CardStateKind{domain.StateNew, domain.StateReview},
			DeckID: &deckID,
			Now:    now,
			Limit:  10,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, newCard.CardID, got[0].CardID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty states skip the query", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockCardStateStore(t)

		got, err := s.ListDue(context.Background(), store.DueFilter{
			UserID: userID,
			States: []domain.CardStateKind{},
			Now:    now,
		})
		require.NoError(t, err)
		assert.Empty(t, got)

		count, err := s.CountDue(context.Background(), store.DueFilter{UserID: userID, Now: now})
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardStateStoreCountDue(t *testing.T) {
	t.Parallel()
	s, mock := newMockCardStateStore(t)
	now := time.Now().UTC()
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM card_states cs")).
		WithArgs(userID, now, "new", "learning", "review").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := s.CountDue(context.Background(), store.DueFilter{
		UserID: userID,
		States: domain.QueueableStates(),
		Now:    now,
		Limit:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardStateStoreCountByState(t *testing.T) {
	t.Parallel()
	s, mock := newMockCardStateStore(t)
	userID := uuid.New()

	mock.ExpectQuery("GROUP BY state").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"state", "count"}).
			AddRow("new", 3).
			AddRow("review", 9))

	counts, err := s.CountByState(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[domain.StateNew])
	assert.Equal(t, 0, counts[domain.StateLearning])
	assert.Equal(t, 9, counts[domain.StateReview])
	assert.Equal(t, 0, counts[domain.StateSuspended])
}
