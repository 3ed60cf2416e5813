package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/service/card_review"
	"github.com/phrazzld/scry-scheduler/internal/service/queue"
)

// IdempotencyKeyHeader lets clients retry a review submission safely.
const IdempotencyKeyHeader = "Idempotency-Key"

// SubmitReviewRequest defines the payload for POST /api/cards/{id}/review.
type SubmitReviewRequest struct {
	Rating         string `json:"rating"           validate:"required,oneof=again hard good easy"`
	ResponseTimeMs int64  `json:"response_time_ms" validate:"gte=0"`
}

// PostponeRequest defines the payload for POST /api/cards/{id}/postpone.
type PostponeRequest struct {
	Days int `json:"days" validate:"required,gte=1,lte=3650"`
}

// EnrollRequest defines the payload for POST /api/cards/enroll.
type EnrollRequest struct {
	CardIDs []uuid.UUID `json:"card_ids" validate:"required,min=1,max=500"`
}

// CardStateResponse is the public view of a card's scheduling state.
type CardStateResponse struct {
	CardID         uuid.UUID  `json:"card_id"`
	State          string     `json:"state"`
	DueAt          time.Time  `json:"due_at"`
	Interval       int        `json:"interval"`
	Repetitions    int        `json:"repetitions"`
	EaseFactor     float64    `json:"easiness_factor"`
	Lapses         int        `json:"lapses"`
	ReviewCount    int        `json:"review_count"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
	SuspendedFrom  string     `json:"suspended_from,omitempty"`
	Due            bool       `json:"due"`
}

// ReviewResponse is the public view of one review log entry.
type ReviewResponse struct {
	ID               uuid.UUID `json:"id"`
	CardID           uuid.UUID `json:"card_id"`
	Rating           string    `json:"rating"`
	ResponseTimeMs   int64     `json:"response_time_ms"`
	ReviewedAt       time.Time `json:"reviewed_at"`
	PreviousInterval int       `json:"previous_interval"`
	NewInterval      int       `json:"new_interval"`
	EaseFactor       float64   `json:"easiness_factor"`
	PreviousState    string    `json:"previous_state"`
	NewState         string    `json:"new_state"`
}

// SubmitReviewResponse is returned by POST /api/cards/{id}/review.
type SubmitReviewResponse struct {
	State    CardStateResponse `json:"state"`
	Review   ReviewResponse    `json:"review"`
	Replayed bool              `json:"replayed"`
}

// QueueResponse is returned by GET /api/queue.
type QueueResponse struct {
	Items    []CardStateResponse `json:"items"`
	Shown    int                 `json:"shown"`
	TotalDue int                 `json:"total_due"`
	Limit    int                 `json:"limit"`
}

// QueueSummaryResponse is returned by GET /api/queue/summary.
type QueueSummaryResponse struct {
	Counts map[string]int `json:"counts"`
	Due    int            `json:"due"`
	Total  int            `json:"total"`
}

// EnrollResponse is returned by POST /api/cards/enroll.
type EnrollResponse struct {
	Requested       int         `json:"requested"`
	Enrolled        int         `json:"enrolled"`
	AlreadyEnrolled int         `json:"already_enrolled"`
	Missing         []uuid.UUID `json:"missing"`
}

// ReviewListResponse is returned by GET /api/reviews.
type ReviewListResponse struct {
	Reviews []ReviewResponse `json:"reviews"`
	Count   int              `json:"count"`
}

// cardStateToResponse renders s as seen at now; Due tells clients whether
// the card belongs in a queue built at that instant.
func cardStateToResponse(s *domain.CardState, now time.Time) CardStateResponse {
	return CardStateResponse{
		CardID:         s.CardID,
		State:          string(s.State),
		DueAt:          s.DueAt,
		Interval:       s.Interval,
		Repetitions:    s.Repetitions,
		EaseFactor:     s.EaseFactor,
		Lapses:         s.Lapses,
		ReviewCount:    s.ReviewCount,
		LastReviewedAt: s.LastReviewedAt,
		SuspendedFrom:  string(s.SuspendedFrom),
		Due:            s.IsDue(now),
	}
}

func reviewToResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:               r.ID,
		CardID:           r.CardID,
		Rating:           string(r.Rating),
		ResponseTimeMs:   r.ResponseTimeMs,
		ReviewedAt:       r.ReviewedAt,
		PreviousInterval: r.PreviousInterval,
		NewInterval:      r.NewInterval,
		EaseFactor:       r.EaseFactor,
		PreviousState:    string(r.PreviousState),
		NewState:         string(r.NewState),
	}
}

func submitResultToResponse(res *card_review.Result, now time.Time) SubmitReviewResponse {
	return SubmitReviewResponse{
		State:    cardStateToResponse(res.State, now),
		Review:   reviewToResponse(res.Review),
		Replayed: res.Replayed,
	}
}

func queueResultToResponse(res *queue.Result, now time.Time) QueueResponse {
	items := make([]CardStateResponse, 0, len(res.Items))
	for _, s := range res.Items {
		items = append(items, cardStateToResponse(s, now))
	}
	return QueueResponse{
		Items:    items,
		Shown:    res.Shown,
		TotalDue: res.TotalDue,
		Limit:    res.Limit,
	}
}

func summaryToResponse(s *queue.Summary) QueueSummaryResponse {
	counts := make(map[string]int, len(s.Counts))
	for k, n := range s.Counts {
		counts[string(k)] = n
	}
	return QueueSummaryResponse{Counts: counts, Due: s.Due, Total: s.Total}
}

func enrollResultToResponse(res *card_review.EnrollResult) EnrollResponse {
	missing := res.Missing
	if missing == nil {
		missing = []uuid.UUID{}
	}
	return EnrollResponse{
		Requested:       res.Requested,
		Enrolled:        res.Enrolled,
		AlreadyEnrolled: res.AlreadyEnrolled,
		Missing:         missing,
	}
}

func reviewsToResponse(reviews []*domain.Review) ReviewListResponse {
	out := make([]ReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, reviewToResponse(r))
	}
	return ReviewListResponse{Reviews: out, Count: len(out)}
}

// QuotaResponse is returned by GET /api/quota.
type QuotaResponse struct {
	Quotas []QuotaStatusResponse `json:"quotas"`
}

// QuotaStatusResponse is one limiter's view of the caller.
type QuotaStatusResponse struct {
	Name      string    `json:"name"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}
