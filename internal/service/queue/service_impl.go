package queue

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/redact"
	"github.com/phrazzld/scry-scheduler/internal/store"
	"golang.org/x/sync/errgroup"
)

// Verify interface compliance at compile time
var _ QueueService = (*queueServiceImpl)(nil)

type queueServiceImpl struct {
	states       store.CardStateStore
	validate     *validator.Validate
	defaultLimit int
	maxLimit     int
	now          func() time.Time
	logger       *slog.Logger
}

// Option customizes the service.
type Option func(*queueServiceImpl)

// WithClock replaces the wall clock used to decide what is due.
func WithClock(now func() time.Time) Option {
	return func(s *queueServiceImpl) {
		s.now = now
	}
}

// WithLimits overrides DefaultLimit and MaxLimit. Non-positive values keep
// the package defaults.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *queueServiceImpl) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// NewQueueService creates a QueueService backed by the card state store.
func NewQueueService(states store.CardStateStore, logger *slog.Logger, opts ...Option) QueueService {
	if states == nil {
		panic("states cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &queueServiceImpl{
		states:       states,
		validate:     validator.New(),
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.With(slog.String("component", "queue_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s
}

// Build implements QueueService.Build.
func (s *queueServiceImpl) Build(ctx context.Context, userID uuid.UUID, filter Filter) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	if err := s.validate.Struct(filter); err != nil {
		log.Debug("rejected queue filter", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrValidation, ErrInvalidFilter, err)
	}

	limit := s.effectiveLimit(filter.Limit)

	if filter.States != nil && len(filter.States) == 0 {
		return &Result{Items: []*domain.CardState{}, Limit: limit}, nil
	}

	states := filter.States
	if states == nil {
		states = domain.QueueableStates()
	}

	due := store.DueFilter{
		UserID: userID,
		States: uniqueStates(states),
		DeckID: filter.DeckID,
		Now:    s.now(),
		Limit:  limit,
	}

	var (
		items []*domain.CardState
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.states.ListDue(gctx, due)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.states.CountDue(gctx, due)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to build queue", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: build queue: %w", domain.ErrPersistenceFailure, err)
	}

	if items == nil {
		items = []*domain.CardState{}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	sortQueue(items)

	// The count and the list are separate reads; never report fewer due
	// cards than we are showing.
	total = max(total, len(items))

	log.Debug("built queue",
		slog.Int("shown", len(items)),
		slog.Int("total_due", total),
		slog.Int("limit", limit))

	return &Result{
		Items:    items,
		Shown:    len(items),
		TotalDue: total,
		Limit:    limit,
	}, nil
}

// Summary implements QueueService.Summary.
func (s *queueServiceImpl) Summary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("user_id", userID.String()))

	var (
		counts map[domain.CardStateKind]int
		due    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.states.CountByState(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		due, err = s.states.CountDue(gctx, store.DueFilter{
			UserID: userID,
			States: domain.QueueableStates(),
			Now:    s.now(),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error("failed to summarize queue", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: summarize queue: %w", domain.ErrPersistenceFailure, err)
	}

	summary := &Summary{
		Counts: map[domain.CardStateKind]int{
			domain.StateNew:       0,
			domain.StateLearning:  0,
			domain.StateReview:    0,
			domain.StateSuspended: 0,
		},
		Due: due,
	}
	for state, n := range counts {
		summary.Counts[state] = n
		summary.Total += n
	}

	return summary, nil
}

func (s *queueServiceImpl) effectiveLimit(requested int) int {
	switch {
	case requested == 0:
		return s.defaultLimit
	case requested > s.maxLimit:
		return s.maxLimit
	default:
		return requested
	}
}

// sortQueue orders items by state priority, then due time, then card ID.
func sortQueue(items []*domain.CardState) {
	slices.SortStableFunc(items, func(a, b *domain.CardState) int {
		ra, _ := domain.QueuePriority(a.State)
		rb, _ := domain.QueuePriority(b.State)
		if c := cmp.Compare(ra, rb); c != 0 {
			return c
		}
		if c := a.DueAt.Compare(b.DueAt); c != 0 {
			return c
		}
		return cmp.Compare(a.CardID.String(), b.CardID.String())
	})
}

func uniqueStates(states []domain.CardStateKind) []domain.CardStateKind {
	out := make([]domain.CardStateKind, 0, len(states))
	for _, s := range states {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
