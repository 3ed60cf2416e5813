package domain

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a machine credential. Only a bcrypt hash of the secret is stored.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Name       string     `json:"name"`
	SecretHash string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// IsActive reports whether the key may still be used.
func (k *APIKey) IsActive() bool {
	return k.RevokedAt == nil
}
