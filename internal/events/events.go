package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeReviewRecorded   = "review.recorded"
	TypeCardStateChanged = "card_state.changed"
	TypeCardsEnrolled    = "cards.enrolled"
)

// Event is a fact published by a service.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is when the underlying change was committed
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}, occurredAt time.Time) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    payloadBytes,
		OccurredAt: occurredAt,
	}, nil
}

// ReviewRecorded is the payload of TypeReviewRecorded.
type ReviewRecorded struct {
	ReviewID         uuid.UUID `json:"review_id"`
	UserID           uuid.UUID `json:"user_id"`
	CardID           uuid.UUID `json:"card_id"`
	Rating           string    `json:"rating"`
	PreviousState    string    `json:"previous_state"`
	NewState         string    `json:"new_state"`
	PreviousInterval int       `json:"previous_interval"`
	NewInterval      int       `json:"new_interval"`
	EaseFactor       float64   `json:"easiness_factor"`
	Lapse            bool      `json:"lapse"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
}

// CardStateChanged is the payload of TypeCardStateChanged.
type CardStateChanged struct {
	UserID    uuid.UUID `json:"user_id"`
	CardID    uuid.UUID `json:"card_id"`
	Action    string    `json:"action"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	DueAt     time.Time `json:"due_at"`
}

// CardsEnrolled is the payload of TypeCardsEnrolled.
type CardsEnrolled struct {
	UserID    uuid.UUID `json:"user_id"`
	Requested int       `json:"requested"`
	Enrolled  int       `json:"enrolled"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *Event) error
}
