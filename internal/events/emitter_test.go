package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()
	payload := CardsEnrolled{UserID: uuid.New(), Requested: 3, Enrolled: 2}

	event, err := NewEvent(TypeCardsEnrolled, payload, now)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeCardsEnrolled, event.Type)
	assert.Equal(t, now, event.OccurredAt)

	var decoded CardsEnrolled
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)

	_, err = NewEvent(TypeCardsEnrolled, make(chan int), now)
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()
	emitter := NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	event, err := NewEvent(TypeReviewRecorded, ReviewRecorded{}, time.Now())
	require.NoError(t, err)

	// no handlers is not an error
	require.NoError(t, emitter.EmitEvent(context.Background(), event))

	firstErr := errors.New("first")
	var calls []int
	emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *Event) error {
		calls = append(calls, 1)
		return firstErr
	}))
	emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *Event) error {
		calls = append(calls, 2)
		return errors.New("second")
	}))
	emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *Event) error {
		calls = append(calls, 3)
		return nil
	}))

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, firstErr)
	assert.Equal(t, []int{1, 2, 3}, calls)
}

func TestInMemoryEventEmitterFiltersByType(t *testing.T) {
	t.Parallel()
	emitter := NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var got []string
	emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *Event) error {
		got = append(got, "reviews:"+e.Type)
		return nil
	}), TypeReviewRecorded)
	emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *Event) error {
		got = append(got, "all:"+e.Type)
		return nil
	}))

	for _, eventType := range []string{TypeReviewRecorded, TypeCardsEnrolled} {
		event, err := NewEvent(eventType, struct{}{}, time.Now())
		require.NoError(t, err)
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
	}

	assert.Equal(t, []string{
		"reviews:" + TypeReviewRecorded,
		"all:" + TypeReviewRecorded,
		"all:" + TypeCardsEnrolled,
	}, got)
}

func TestReviewAnalyticsHandler(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	h := NewReviewAnalyticsHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	payload := ReviewRecorded{
		ReviewID: uuid.New(), UserID: uuid.New(), CardID: uuid.New(),
		Rating: "again", PreviousState: "review", NewState: "learning",
		PreviousInterval: 12, NewInterval: 0, EaseFactor: 2.3, Lapse: true,
	}
	event, err := NewEvent(TypeReviewRecorded, payload, time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), event))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "review recorded", line["msg"])
	assert.Equal(t, "again", line["rating"])
	assert.Equal(t, true, line["lapse"])

	buf.Reset()
	other, err := NewEvent(TypeCardsEnrolled, CardsEnrolled{}, time.Now())
	require.NoError(t, err)
	require.NoError(t, h.HandleEvent(context.Background(), other))
	assert.Zero(t, buf.Len())

	broken := &Event{ID: uuid.New(), Type: TypeReviewRecorded, Payload: []byte("{")}
	assert.Error(t, h.HandleEvent(context.Background(), broken))
}
