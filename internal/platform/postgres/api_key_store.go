package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresAPIKeyStore implements store.APIKeyStore.
type PostgresAPIKeyStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAPIKeyStore creates a new PostgreSQL implementation of the APIKeyStore interface.
func NewPostgresAPIKeyStore(db store.DBTX, logger *slog.Logger) *PostgresAPIKeyStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAPIKeyStore{
		db:     db,
		logger: logger.With(slog.String("component", "api_key_store")),
	}
}

var _ store.APIKeyStore = (*PostgresAPIKeyStore)(nil)

// GetByID implements store.APIKeyStore.GetByID
func (s *PostgresAPIKeyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	query := `
		SELECT id, user_id, name, secret_hash, created_at, last_used_at, revoked_at
		FROM api_keys
		WHERE id = $1
	`

	var key domain.APIKey
	var lastUsedAt, revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.SecretHash,
		&key.CreatedAt,
		&lastUsedAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAPIKeyNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get api key",
			slog.String("error", err.Error()),
			slog.String("key_id", id.String()))
		return nil, MapError(err)
	}

	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}

	return &key, nil
}

// TouchLastUsed implements store.APIKeyStore.TouchLastUsed
func (s *PostgresAPIKeyStore) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAPIKeyNotFound)
}
