package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCardState(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	cardID := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := NewCardState(userID, cardID, now)
	require.NoError(t, err)

	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, cardID, s.CardID)
	assert.Equal(t, StateNew, s.State)
	assert.Equal(t, now, s.DueAt)
	assert.Zero(t, s.Interval)
	assert.Zero(t, s.Repetitions)
	assert.Zero(t, s.Lapses)
	assert.Equal(t, DefaultEaseFactor, s.EaseFactor)
	assert.Nil(t, s.LastReviewedAt)
	assert.Equal(t, int64(1), s.Version)
	assert.True(t, s.IsDue(now))

	_, err = NewCardState(uuid.Nil, cardID, now)
	assert.ErrorIs(t, err, ErrEmptyStateUserID)

	_, err = NewCardState(userID, uuid.Nil, now)
	assert.ErrorIs(t, err, ErrEmptyStateCardID)
}

func TestCardStateValidate(t *testing.T) {
	t.Parallel()

	valid := func() *CardState {
		s, err := NewCardState(uuid.New(), uuid.New(), time.Now())
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name    string
		mutate  func(s *CardState)
		wantErr error
	}{
		{"valid", func(s *CardState) {}, nil},
		{"unknown state", func(s *CardState) { s.State = "graduated" }, ErrInvalidStateKind},
		{"negative interval", func(s *CardState) { s.Interval = -1 }, ErrInvalidInterval},
		{"ease factor below one", func(s *CardState) { s.EaseFactor = 0.9 }, ErrInvalidEaseFactor},
		{"negative repetitions", func(s *CardState) { s.Repetitions = -2 }, ErrInvalidRepetitions},
		{"negative lapses", func(s *CardState) { s.Lapses = -1 }, ErrInvalidLapses},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			err := s.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestQueuePriority(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []CardStateKind{StateNew, StateLearning, StateReview}, QueueableStates())

	newRank, ok := QueuePriority(StateNew)
	require.True(t, ok)
	learningRank, ok := QueuePriority(StateLearning)
	require.True(t, ok)
	reviewRank, ok := QueuePriority(StateReview)
	require.True(t, ok)
	assert.Less(t, newRank, learningRank)
	assert.Less(t, learningRank, reviewRank)

	_, ok = QueuePriority(StateSuspended)
	assert.False(t, ok)
	assert.False(t, StateSuspended.IsQueueable())
}

func TestCardStateIsDue(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s, err := NewCardState(uuid.New(), uuid.New(), now)
	require.NoError(t, err)

	s.DueAt = now.Add(time.Minute)
	assert.False(t, s.IsDue(now))

	s.DueAt = now.Add(-time.Hour)
	assert.True(t, s.IsDue(now))

	s.State = StateSuspended
	assert.False(t, s.IsDue(now), "suspended cards are never due")
}

func TestCardStateClone(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s, err := NewCardState(uuid.New(), uuid.New(), now)
	require.NoError(t, err)
	s.LastReviewedAt = &now

	c := s.Clone()
	c.Interval = 9
	*c.LastReviewedAt = now.Add(time.Hour)

	assert.Zero(t, s.Interval)
	assert.Equal(t, now, *s.LastReviewedAt)
}

func TestParseCardStateKind(t *testing.T) {
	t.Parallel()

	k, err := ParseCardStateKind("learning")
	require.NoError(t, err)
	assert.Equal(t, StateLearning, k)

	_, err = ParseCardStateKind("LEARNING ")
	assert.ErrorIs(t, err, ErrInvalidStateKind)
}
