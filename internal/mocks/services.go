package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/service/card_review"
	"github.com/phrazzld/scry-scheduler/internal/service/queue"
)

// MockCardReviewService implements card_review.CardReviewService for testing
type MockCardReviewService struct {
	SubmitAnswerFn  func(ctx context.Context, userID, cardID uuid.UUID, answer card_review.ReviewAnswer) (*card_review.Result, error)
	PostponeCardFn  func(ctx context.Context, userID, cardID uuid.UUID, days int) (*domain.CardState, error)
	SuspendCardFn   func(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)
	UnsuspendCardFn func(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)
	EnrollCardsFn   func(ctx context.Context, userID uuid.UUID, cardIDs []uuid.UUID) (*card_review.EnrollResult, error)
	GetCardStateFn  func(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error)
	ListReviewsFn   func(ctx context.Context, userID uuid.UUID, query card_review.ReviewQuery) ([]*domain.Review, error)

	// Default values used when functions aren't explicitly defined
	Result       *card_review.Result
	State        *domain.CardState
	EnrollResult *card_review.EnrollResult
	Reviews      []*domain.Review
	Err          error
}

var _ card_review.CardReviewService = (*MockCardReviewService)(nil)

// SubmitAnswer implements card_review.CardReviewService
func (m *MockCardReviewService) SubmitAnswer(
	ctx context.Context,
	userID, cardID uuid.UUID,
	answer card_review.ReviewAnswer,
) (*card_review.Result, error) {
	if m.SubmitAnswerFn != nil {
		return m.SubmitAnswerFn(ctx, userID, cardID, answer)
	}
	return m.Result, m.Err
}

// PostponeCard implements card_review.CardReviewService
func (m *MockCardReviewService) PostponeCard(
	ctx context.Context,
	userID, cardID uuid.UUID,
	days int,
) (*domain.CardState, error) {
	if m.PostponeCardFn != nil {
		return m.PostponeCardFn(ctx, userID, cardID, days)
	}
	return m.State, m.Err
}

// SuspendCard implements card_review.CardReviewService
func (m *MockCardReviewService) SuspendCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error) {
	if m.SuspendCardFn != nil {
		return m.SuspendCardFn(ctx, userID, cardID)
	}
	return m.State, m.Err
}

// UnsuspendCard implements card_review.CardReviewService
func (m *MockCardReviewService) UnsuspendCard(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error) {
	if m.UnsuspendCardFn != nil {
		return m.UnsuspendCardFn(ctx, userID, cardID)
	}
	return m.State, m.Err
}

// EnrollCards implements card_review.CardReviewService
func (m *MockCardReviewService) EnrollCards(
	ctx context.Context,
	userID uuid.UUID,
	cardIDs []uuid.UUID,
) (*card_review.EnrollResult, error) {
	if m.EnrollCardsFn != nil {
		return m.EnrollCardsFn(ctx, userID, cardIDs)
	}
	return m.EnrollResult, m.Err
}

// GetCardState implements card_review.CardReviewService
func (m *MockCardReviewService) GetCardState(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error) {
	if m.GetCardStateFn != nil {
		return m.GetCardStateFn(ctx, userID, cardID)
	}
	return m.State, m.Err
}

// ListReviews implements card_review.CardReviewService
func (m *MockCardReviewService) ListReviews(
	ctx context.Context,
	userID uuid.UUID,
	query card_review.ReviewQuery,
) ([]*domain.Review, error) {
	if m.ListReviewsFn != nil {
		return m.ListReviewsFn(ctx, userID, query)
	}
	return m.Reviews, m.Err
}

// MockQueueService implements queue.QueueService for testing
type MockQueueService struct {
	BuildFn   func(ctx context.Context, userID uuid.UUID, filter queue.Filter) (*queue.Result, error)
	SummaryFn func(ctx context.Context, userID uuid.UUID) (*queue.Summary, error)

	Result        *queue.Result
	SummaryResult *queue.Summary
	Err           error
}

var _ queue.QueueService = (*MockQueueService)(nil)

// Build implements queue.QueueService
func (m *MockQueueService) Build(ctx context.Context, userID uuid.UUID, filter queue.Filter) (*queue.Result, error) {
	if m.BuildFn != nil {
		return m.BuildFn(ctx, userID, filter)
	}
	return m.Result, m.Err
}

// Summary implements queue.QueueService
func (m *MockQueueService) Summary(ctx context.Context, userID uuid.UUID) (*queue.Summary, error) {
	if m.SummaryFn != nil {
		return m.SummaryFn(ctx, userID)
	}
	return m.SummaryResult, m.Err
}

// MockJWTService implements auth.JWTService for testing
type MockJWTService struct {
	GenerateTokenFn func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)

	Token       string
	Err         error
	ValidateErr error
	Claims      *auth.Claims
}

var _ auth.JWTService = (*MockJWTService)(nil)

// GenerateToken implements auth.JWTService
func (m *MockJWTService) GenerateToken(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, userID)
	}
	return m.Token, m.Err
}

// ValidateToken implements auth.JWTService
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	return m.Claims, m.ValidateErr
}

// MockAPIKeyVerifier implements auth.APIKeyVerifier for testing
type MockAPIKeyVerifier struct {
	VerifyFn func(ctx context.Context, raw string) (*domain.APIKey, error)

	Key *domain.APIKey
	Err error
}

var _ auth.APIKeyVerifier = (*MockAPIKeyVerifier)(nil)

// Verify implements auth.APIKeyVerifier
func (m *MockAPIKeyVerifier) Verify(ctx context.Context, raw string) (*domain.APIKey, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, raw)
	}
	return m.Key, m.Err
}
