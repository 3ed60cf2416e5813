package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/store"
	"github.com/stretchr/testify/mock"
)

// Compile-time checks
var (
	_ store.CardStore      = (*MockCardStore)(nil)
	_ store.CardStateStore = (*MockCardStateStore)(nil)
	_ store.ReviewStore    = (*MockReviewStore)(nil)
	_ store.APIKeyStore    = (*MockAPIKeyStore)(nil)
)

// MockCardStore is a testify mock of store.CardStore. WithTx returns the
// mock itself so expectations hold inside transactions.
type MockCardStore struct {
	mock.Mock
}

func (m *MockCardStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardStore) FindExisting(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockCardStore) WithTx(tx *sql.Tx) store.CardStore {
	return m
}

// MockCardStateStore is a mock implementation of store.CardStateStore
type MockCardStateStore struct {
	mock.Mock
}

func (m *MockCardStateStore) CreateMultiple(ctx context.Context, states []*domain.CardState) (int, error) {
	args := m.Called(ctx, states)
	return args.Int(0), args.Error(1)
}

func (m *MockCardStateStore) Get(ctx context.Context, userID, cardID uuid.UUID) (*domain.CardState, error) {
	args := m.Called(ctx, userID, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardState), args.Error(1)
}

func (m *MockCardStateStore) GetForUpdate(
	ctx context.Context,
	userID, cardID uuid.UUID,
) (*domain.CardState, error) {
	args := m.Called(ctx, userID, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CardState), args.Error(1)
}

func (m *MockCardStateStore) Update(ctx context.Context, state *domain.CardState, expectedVersion int64) error {
	return m.Called(ctx, state, expectedVersion).Error(0)
}

func (m *MockCardStateStore) ListDue(ctx context.Context, filter store.DueFilter) ([]*domain.CardState, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CardState), args.Error(1)
}

func (m *MockCardStateStore) CountDue(ctx context.Context, filter store.DueFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockCardStateStore) CountByState(
	ctx context.Context,
	userID uuid.UUID,
) (map[domain.CardStateKind]int, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.CardStateKind]int), args.Error(1)
}

func (m *MockCardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return m
}

// MockReviewStore is a mock implementation of store.ReviewStore
type MockReviewStore struct {
	mock.Mock
}

func (m *MockReviewStore) Append(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *MockReviewStore) GetByIdempotencyKey(
	ctx context.Context,
	userID uuid.UUID,
	key string,
) (*domain.Review, error) {
	args := m.Called(ctx, userID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewStore) List(ctx context.Context, filter store.ReviewFilter) ([]*domain.Review, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *MockReviewStore) WithTx(tx *sql.Tx) store.ReviewStore {
	return m
}

// MockAPIKeyStore is a mock implementation of store.APIKeyStore
type MockAPIKeyStore struct {
	mock.Mock
}

func (m *MockAPIKeyStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyStore) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}
