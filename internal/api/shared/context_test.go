package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestSetAndGetTraceID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, GetTraceID(context.Background()))

	ctx := SetTraceID(context.Background())
	traceID := GetTraceID(ctx)
	assert.Len(t, traceID, TraceIDLength*2)

	other := GetTraceID(SetTraceID(context.Background()))
	assert.NotEqual(t, traceID, other)
}

func TestTraceIDFallback(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := traceIDFrom(failingReader{})
		assert.Len(t, id, TraceIDLength*2)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestGetUserID(t *testing.T) {
	t.Parallel()

	_, ok := GetUserID(context.Background())
	assert.False(t, ok)

	_, ok = GetUserID(context.WithValue(context.Background(), UserIDContextKey, uuid.Nil))
	assert.False(t, ok)

	_, ok = GetUserID(context.WithValue(context.Background(), UserIDContextKey, "not-a-uuid"))
	assert.False(t, ok)

	id := uuid.New()
	got, ok := GetUserID(context.WithValue(context.Background(), UserIDContextKey, id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestGetAPIKeyID(t *testing.T) {
	t.Parallel()

	_, ok := GetAPIKeyID(context.Background())
	assert.False(t, ok)

	id := uuid.New()
	got, ok := GetAPIKeyID(context.WithValue(context.Background(), APIKeyIDContextKey, id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
