package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

const cardStateColumns = `
		cs.card_id, cs.user_id, cs.state, cs.due_at, cs.interval_days, cs.repetitions,
		cs.easiness_factor, cs.lapses, cs.review_count, cs.last_reviewed_at,
		cs.suspended_from, cs.version, cs.created_at, cs.updated_at`

// queuePriorityExpr orders rows by the same rank table the domain uses, so
// reordering the state constants can never change queue order.
var queuePriorityExpr = buildQueuePriorityExpr()

func buildQueuePriorityExpr() string {
	var b strings.Builder
	b.WriteString("CASE cs.state")
	for _, k := range domain.QueueableStates() {
		rank, _ := domain.QueuePriority(k)
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", k, rank)
	}
	b.WriteString(" ELSE 2147483647 END")
	return b.String()
}

// PostgresCardStateStore implements the store.CardStateStore interface
// using a PostgreSQL database as the storage backend.
type PostgresCardStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStateStore creates a new PostgreSQL implementation of the
// CardStateStore interface. If logger is nil, a default logger will be used.
func NewPostgresCardStateStore(db store.DBTX, logger *slog.Logger) *PostgresCardStateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCardStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_state_store")),
	}
}

// Ensure PostgresCardStateStore implements store.CardStateStore interface
var _ store.CardStateStore = (*PostgresCardStateStore)(nil)

// CreateMultiple implements store.CardStateStore.CreateMultiple
// Pairs that already exist are skipped with ON CONFLICT DO NOTHING.
func (s *PostgresCardStateStore) CreateMultiple(ctx context.Context, states []*domain.CardState) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for _, state := range states {
		if err := state.Validate(); err != nil {
			return 0, fmt.Errorf("%w: card %s: %w", store.ErrInvalidEntity, state.CardID, err)
		}
	}

	query := `
		INSERT INTO card_states (
			card_id, user_id, state, due_at, interval_days, repetitions,
			easiness_factor, lapses, review_count, last_reviewed_at,
			suspended_from, version, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (card_id, user_id) DO NOTHING
	`

	inserted := 0
	for _, state := range states {
		result, err := s.db.ExecContext(ctx, query, insertArgs(state)...)
		if err != nil {
			if IsForeignKeyViolation(err) {
				return inserted, fmt.Errorf("%w: %s", store.ErrCardNotFound, state.CardID)
			}
			log.Error("failed to create card state",
				slog.String("error", err.Error()),
				slog.String("card_id", state.CardID.String()))
			return inserted, MapError(err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(n)
	}

	log.Debug("card states created",
		slog.Int("requested", len(states)),
		slog.Int("inserted", inserted))
	return inserted, nil
}

// Get implements store.CardStateStore.Get
func (s *PostgresCardStateStore) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error) {
	query := `SELECT` + cardStateColumns + `
		FROM card_states cs
		WHERE cs.user_id = $1 AND cs.card_id = $2
	`
	return s.getOne(ctx, query, userID, cardID)
}

// GetForUpdate implements store.CardStateStore.GetForUpdate
func (s *PostgresCardStateStore) GetForUpdate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	query := `SELECT` + cardStateColumns + `
		FROM card_states cs
		WHERE cs.user_id = $1 AND cs.card_id = $2
		FOR UPDATE
	`
	return s.getOne(ctx, query, userID, cardID)
}

func (s *PostgresCardStateStore) getOne(
	ctx context.Context,
	query string,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	state, err := scanCardState(s.db.QueryRowContext(ctx, query, userID, cardID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("card state not found",
				slog.String("user_id", userID.String()),
				slog.String("card_id", cardID.String()))
			return nil, store.ErrCardStateNotFound
		}
		log.Error("failed to get card state",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("card_id", cardID.String()))
		return nil, MapError(err)
	}

	return state, nil
}

// Update implements store.CardStateStore.Update
func (s *PostgresCardStateStore) Update(
	ctx context.Context,
	state *domain.CardState,
	expectedVersion int64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE card_states
		SET state = $3,
			due_at = $4,
			interval_days = $5,
			repetitions = $6,
			easiness_factor = $7,
			lapses = $8,
			review_count = $9,
			last_reviewed_at = $10,
			suspended_from = $11,
			updated_at = $12,
			version = version + 1
		WHERE card_id = $1 AND user_id = $2 AND version = $13
	`
	result, err := s.db.ExecContext(ctx, query,
		state.CardID,
		state.UserID,
		string(state.State),
		state.DueAt.UTC(),
		state.Interval,
		state.Repetitions,
		state.EaseFactor,
		state.Lapses,
		state.ReviewCount,
		nullTime(state.LastReviewedAt),
		nullString(string(state.SuspendedFrom)),
		state.UpdatedAt.UTC(),
		expectedVersion,
	)
	if err != nil {
		log.Error("failed to update card state",
			slog.String("error", err.Error()),
			slog.String("card_id", state.CardID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrVersionConflict); err != nil {
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}
		// Tell a stale version apart from a row that no longer exists.
		var current int64
		lookup := `SELECT version FROM card_states WHERE card_id = $1 AND user_id = $2`
		scanErr := s.db.QueryRowContext(ctx, lookup, state.CardID, state.UserID).Scan(&current)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return store.ErrCardStateNotFound
		}
		if scanErr != nil {
			return MapError(scanErr)
		}
		log.Warn("card state version conflict",
			slog.String("card_id", state.CardID.String()),
			slog.Int64("expected_version", expectedVersion),
			slog.Int64("current_version", current))
		return store.NewStoreError("card_state", "update", "stale version", store.ErrVersionConflict)
	}

	state.Version = expectedVersion + 1
	return nil
}

// ListDue implements store.CardStateStore.ListDue
func (s *PostgresCardStateStore) ListDue(ctx context.Context, filter store.DueFilter) ([]*domain.CardState, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(filter.States) == 0 {
		return []*domain.CardState{}, nil
	}

	where, args := dueWhereClause(filter)
	query := `SELECT` + cardStateColumns + `
		FROM card_states cs` + where + `
		ORDER BY ` + queuePriorityExpr + `, cs.due_at ASC, cs.card_id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query due card states",
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

	states := make([]*domain.CardState, 0)
	for rows.Next() {
		state, err := scanCardState(rows)
		if err != nil {
			log.Error("failed to scan card state",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return states, nil
}

// CountDue implements store.CardStateStore.CountDue
func (s *PostgresCardStateStore) CountDue(ctx context.Context, filter store.DueFilter) (int, error) {
	if len(filter.States) == 0 {
		return 0, nil
	}

	where, args := dueWhereClause(filter)
	query := `SELECT COUNT(*) FROM card_states cs` + where

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to count due card states",
			slog.String("error", err.Error()),
			slog.String("user_id", filter.UserID.String()))
		return 0, MapError(err)
	}
	return count, nil
}

// CountByState implements store.CardStateStore.CountByState
func (s *PostgresCardStateStore) CountByState(
	ctx context.Context,
	userID uuid.UUID,
) (map[domain.CardStateKind]int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT state, COUNT(*)
		FROM card_states
		WHERE user_id = $1
		GROUP BY state
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to count card states",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, MapError(err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Error("failed to close rows",
				slog.String("error", closeErr.Error()))
		}
	}()

	counts := map[domain.CardStateKind]int{
		domain.StateNew:       0,
		domain.StateLearning:  0,
		domain.StateReview:    0,
		domain.StateSuspended: 0,
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, MapError(err)
		}
		counts[domain.CardStateKind(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return counts, nil
}

// WithTx implements store.CardStateStore.WithTx
func (s *PostgresCardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return &PostgresCardStateStore{
		db:     tx,
		logger: s.logger,
	}
}

// dueWhereClause builds the shared predicate of ListDue and CountDue.
func dueWhereClause(filter store.DueFilter) (string, []any) {
	args := []any{filter.UserID, filter.Now.UTC()}
	var b strings.Builder

	if filter.DeckID != nil {
		args = append(args, *filter.DeckID)
		fmt.Fprintf(&b, "\n\t\tJOIN cards c ON c.id = cs.card_id AND c.deck_id = $%d", len(args))
	}

	b.WriteString("\n\t\tWHERE cs.user_id = $1 AND cs.due_at <= $2 AND cs.state IN (")
	for i, k := range filter.States {
		if i > 0 {
			b.WriteString(", ")
		}
		args = append(args, string(k))
		fmt.Fprintf(&b, "$%d", len(args))
	}
	b.WriteString(")")

	return b.String(), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCardState(row rowScanner) (*domain.CardState, error) {
	var (
		state          domain.CardState
		kind           string
		lastReviewedAt sql.NullTime
		suspendedFrom  sql.NullString
	)

	err := row.Scan(
		&state.CardID,
		&state.UserID,
		&kind,
		&state.DueAt,
		&state.Interval,
		&state.Repetitions,
		&state.EaseFactor,
		&state.Lapses,
		&state.ReviewCount,
		&lastReviewedAt,
		&suspendedFrom,
		&state.Version,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	state.State = domain.CardStateKind(kind)
	state.DueAt = state.DueAt.UTC()
	if lastReviewedAt.Valid {
		t := lastReviewedAt.Time.UTC()
		state.LastReviewedAt = &t
	}
	if suspendedFrom.Valid {
		state.SuspendedFrom = domain.CardStateKind(suspendedFrom.String)
	}

	return &state, nil
}

func insertArgs(state *domain.CardState) []any {
	return []any{
		state.CardID,
		state.UserID,
		string(state.State),
		state.DueAt.UTC(),
		state.Interval,
		state.Repetitions,
		state.EaseFactor,
		state.Lapses,
		state.ReviewCount,
		nullTime(state.LastReviewedAt),
		nullString(string(state.SuspendedFrom)),
		state.Version,
		state.CreatedAt.UTC(),
		state.UpdatedAt.UTC(),
	}
}
