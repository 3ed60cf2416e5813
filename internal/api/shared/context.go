package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Key type for context values
type ContextKey string

// Context keys for various values
const (
	// UserIDContextKey is the context key for the authenticated user ID
	UserIDContextKey ContextKey = "userID"

	// APIKeyIDContextKey is the context key for the API key that
	// authenticated the request, if any
	APIKeyIDContextKey ContextKey = "apiKeyID"

	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of bytes used to generate the trace ID
	TraceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a trace ID to the context.
// This is useful for correlating logs and error responses.
func SetTraceID(ctx context.Context) context.Context {
	traceID := generateTraceID()
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// GetUserID returns the authenticated user ID stored in ctx.
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}

// GetAPIKeyID returns the ID of the API key that authenticated the request.
func GetAPIKeyID(ctx context.Context) (uuid.UUID, bool) {
	keyID, ok := ctx.Value(APIKeyIDContextKey).(uuid.UUID)
	if !ok || keyID == uuid.Nil {
		return uuid.Nil, false
	}
	return keyID, true
}

// generateTraceID returns a 32 character hex string. When crypto/rand
// fails it falls back to the clock so that every request still gets a
// distinct ID.
func generateTraceID() string {
	return traceIDFrom(rand.Reader)
}

func traceIDFrom(src io.Reader) string {
	b := make([]byte, TraceIDLength)
	if _, err := io.ReadFull(src, b); err != nil {
		slog.Error("failed to generate random trace ID, using time-based fallback", "error", err)
		return fallbackTraceID()
	}
	return hex.EncodeToString(b)
}

func fallbackTraceID() string {
	b := make([]byte, TraceIDLength)
	binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(b[8:], fallbackSeq.Add(1))
	return hex.EncodeToString(b)
}

var fallbackSeq atomic.Uint64
