package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

const day = 24 * time.Hour

// calculateNewEaseFactor determines the new ease factor based on the rating.
//
// The ease factor represents how fast intervals grow for the card. Again and
// Hard lower it, Easy raises it, Good leaves it alone. The result is clamped
// to params.MinEaseFactor and, when configured, params.MaxEaseFactor.
func calculateNewEaseFactor(
	currentEF float64,
	rating domain.Rating,
	params *Params,
) float64 {
	newEF := currentEF + params.EaseFactorAdjustment[rating]

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}
	if params.MaxEaseFactor > 0 && newEF > params.MaxEaseFactor {
		newEF = params.MaxEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the new interval in days.
//
// Parameters:
//   - currentInterval: The interval before this review, in days
//   - easeFactor: The ease factor before this review
//   - rating: The user's rating
//   - params: Configuration parameters for the SRS algorithm
//
// Algorithm behavior:
//   - Again: 0, the card is re-shown after params.AgainStep instead
//   - currentInterval = 0: the seed interval for the rating
//   - Hard: currentInterval * hard modifier
//   - Good: currentInterval * easeFactor
//   - Easy: currentInterval * easeFactor * easy modifier
//
// Every non-again result is rounded to the nearest day and lies in
// [1, params.MaxInterval].
func calculateNewInterval(
	currentInterval int,
	easeFactor float64,
	rating domain.Rating,
	params *Params,
) int {
	if rating == domain.RatingAgain {
		return 0
	}

	if currentInterval == 0 {
		return clampInterval(float64(params.FirstReviewIntervals[rating]), params)
	}

	var factor float64
	switch rating {
	case domain.RatingHard:
		factor = params.IntervalModifier[domain.RatingHard]
	case domain.RatingGood:
		factor = easeFactor * params.IntervalModifier[domain.RatingGood]
	case domain.RatingEasy:
		factor = easeFactor * params.IntervalModifier[domain.RatingEasy]
	}

	return clampInterval(math.Round(float64(currentInterval)*factor), params)
}

// clampInterval bounds days before it is converted to an int, so intervals
// read back from old rows above the cap cannot overflow either.
func clampInterval(days float64, params *Params) int {
	if math.IsNaN(days) || days < 1 {
		return 1
	}
	if days > float64(params.MaxInterval) {
		return params.MaxInterval
	}
	return int(days)
}

// calculateNextDueAt converts the new interval into the next due time. Due
// times are always now plus a duration so grading never depends on the
// caller's time zone or calendar day boundaries.
func calculateNextDueAt(
	interval int,
	rating domain.Rating,
	now time.Time,
	params *Params,
) time.Time {
	if rating == domain.RatingAgain {
		return now.Add(params.AgainStep)
	}

	return now.Add(time.Duration(min(interval, params.MaxInterval)) * day)
}

// calculateNextStateKind decides the lifecycle phase after a review.
//
// Again always sends the card to learning. Easy always graduates. Hard and
// Good keep review cards in review and graduate learning cards once
// repetitions reach the threshold.
func calculateNextStateKind(
	current domain.CardStateKind,
	repetitions int,
	rating domain.Rating,
	params *Params,
) domain.CardStateKind {
	switch {
	case rating == domain.RatingAgain:
		return domain.StateLearning
	case rating == domain.RatingEasy:
		return domain.StateReview
	case current == domain.StateReview:
		return domain.StateReview
	case repetitions >= params.GraduationThreshold:
		return domain.StateReview
	default:
		return domain.StateLearning
	}
}

// calculateNextState returns a new CardState reflecting one review. The
// input is never modified.
func calculateNextState(
	state *domain.CardState,
	rating domain.Rating,
	now time.Time,
	params *Params,
) *domain.CardState {
	next := state.Clone()

	next.ReviewCount++
	reviewedAt := now
	next.LastReviewedAt = &reviewedAt
	next.UpdatedAt = now

	if rating == domain.RatingAgain {
		next.Repetitions = 0
		if state.State != domain.StateNew {
			next.Lapses++
		}
	} else {
		next.Repetitions++
	}

	next.Interval = calculateNewInterval(state.Interval, state.EaseFactor, rating, params)
	next.EaseFactor = calculateNewEaseFactor(state.EaseFactor, rating, params)
	next.DueAt = calculateNextDueAt(next.Interval, rating, now, params)
	next.State = calculateNextStateKind(state.State, next.Repetitions, rating, params)

	return next
}

// buildReview creates the log entry for a transition. The ID is left empty
// so that grading stays deterministic; the caller assigns one on persist.
func buildReview(
	prev, next *domain.CardState,
	rating domain.Rating,
	now time.Time,
) *domain.Review {
	return &domain.Review{
		CardID:           prev.CardID,
		UserID:           prev.UserID,
		Rating:           rating,
		ReviewedAt:       now,
		PreviousInterval: prev.Interval,
		NewInterval:      next.Interval,
		EaseFactor:       next.EaseFactor,
		PreviousState:    prev.State,
		NewState:         next.State,
	}
}
