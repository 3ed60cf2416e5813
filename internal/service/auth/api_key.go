package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// apiKeySecretBytes is the entropy of a generated API key secret.
const apiKeySecretBytes = 32

// PasswordVerifier defines the interface for comparing a secret with its hash.
type PasswordVerifier interface {
	// Compare returns nil when secret matches hashed, an error otherwise.
	Compare(hashed, secret string) error
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

// NewBcryptVerifier creates a new BcryptVerifier.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{}
}

// Compare implements the PasswordVerifier interface using bcrypt.
func (v *BcryptVerifier) Compare(hashed, secret string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(secret))
}

// GeneratedAPIKey is a freshly minted key. Token is shown to the user once;
// only Hash is stored.
type GeneratedAPIKey struct {
	ID     uuid.UUID
	Secret string
	Hash   string
	Token  string
}

// GenerateAPIKey mints a new key ID and secret and hashes the secret with
// the given bcrypt cost (bcrypt.DefaultCost when cost is 0).
func GenerateAPIKey(cost int) (*GeneratedAPIKey, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	buf := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api key secret: %w", err)
	}

	id := uuid.New()
	return &GeneratedAPIKey{
		ID:     id,
		Secret: secret,
		Hash:   string(hash),
		Token:  FormatAPIKey(id, secret),
	}, nil
}

// FormatAPIKey renders the value clients send in the X-API-Key header.
func FormatAPIKey(id uuid.UUID, secret string) string {
	return id.String() + "." + secret
}

// ParseAPIKey splits an X-API-Key header value into key ID and secret.
func ParseAPIKey(raw string) (uuid.UUID, string, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || secret == "" {
		return uuid.Nil, "", ErrInvalidAPIKey
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", ErrInvalidAPIKey
	}
	return id, secret, nil
}

// APIKeyVerifier authenticates X-API-Key header values.
type APIKeyVerifier interface {
	// Verify returns the key the raw value refers to when its secret matches
	// and the key is not revoked.
	Verify(ctx context.Context, raw string) (*domain.APIKey, error)
}

type apiKeyVerifier struct {
	keys     store.APIKeyStore
	hashes   PasswordVerifier
	timeFunc func() time.Time
	logger   *slog.Logger
}

var _ APIKeyVerifier = (*apiKeyVerifier)(nil)

// NewAPIKeyVerifier creates an APIKeyVerifier backed by the key store.
func NewAPIKeyVerifier(keys store.APIKeyStore, hashes PasswordVerifier, logger *slog.Logger) APIKeyVerifier {
	if keys == nil {
		panic("keys cannot be nil")
	}
	if hashes == nil {
		hashes = NewBcryptVerifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &apiKeyVerifier{
		keys:     keys,
		hashes:   hashes,
		timeFunc: time.Now,
		logger:   logger.With(slog.String("component", "api_key_verifier")),
	}
}

// Verify implements APIKeyVerifier.
func (v *apiKeyVerifier) Verify(ctx context.Context, raw string) (*domain.APIKey, error) {
	log := logger.FromContextOrDefault(ctx, v.logger)

	id, secret, err := ParseAPIKey(raw)
	if err != nil {
		return nil, err
	}

	key, err := v.keys.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAPIKeyNotFound) {
			log.Debug("unknown api key", slog.String("key_id", id.String()))
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}

	if err := v.hashes.Compare(key.SecretHash, secret); err != nil {
		log.Debug("api key secret mismatch", slog.String("key_id", id.String()))
		return nil, ErrInvalidAPIKey
	}

	if !key.IsActive() {
		log.Debug("revoked api key used", slog.String("key_id", id.String()))
		return nil, ErrRevokedAPIKey
	}

	if err := v.keys.TouchLastUsed(ctx, key.ID, v.timeFunc().UTC()); err != nil {
		log.Warn("failed to record api key usage",
			slog.String("key_id", id.String()),
			slog.String("error", err.Error()))
	}

	return key, nil
}
