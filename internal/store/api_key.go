package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// APIKeyStore reads API keys issued by the account side of the application.
type APIKeyStore interface {
	// GetByID retrieves a key by its public identifier.
	// Returns ErrAPIKeyNotFound if the key does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)

	// TouchLastUsed records that the key was used at the given time.
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}
