package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
)

// ReviewAnalyticsHandler writes one structured log line per recorded review,
// which is what downstream analytics and streak jobs consume.
type ReviewAnalyticsHandler struct {
	logger *slog.Logger
}

// NewReviewAnalyticsHandler creates a ReviewAnalyticsHandler.
func NewReviewAnalyticsHandler(l *slog.Logger) *ReviewAnalyticsHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ReviewAnalyticsHandler{logger: l.With("component", "review_analytics")}
}

// HandleEvent implements EventHandler. Other event types are ignored.
func (h *ReviewAnalyticsHandler) HandleEvent(ctx context.Context, event *Event) error {
	if event.Type != TypeReviewRecorded {
		return nil
	}

	var p ReviewRecorded
	if err := event.UnmarshalPayload(&p); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	logger.FromContextOrDefault(ctx, h.logger).Info("review recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("user_id", p.UserID.String()),
		slog.String("card_id", p.CardID.String()),
		slog.String("rating", p.Rating),
		slog.String("previous_state", p.PreviousState),
		slog.String("new_state", p.NewState),
		slog.Int("previous_interval", p.PreviousInterval),
		slog.Int("new_interval", p.NewInterval),
		slog.Float64("easiness_factor", p.EaseFactor),
		slog.Bool("lapse", p.Lapse),
		slog.Int64("response_time_ms", p.ResponseTimeMs),
		slog.Time("reviewed_at", event.OccurredAt))
	return nil
}
