package handler

import (
	"time"

	"scholar/internal/review"
)

// ReviewResponse is the wire representation of a single review.
type ReviewResponse struct {
	ID                string    `json:"id"`
	WorkID            string    `json:"work_id"`
	WorkVersion       int       `json:"work_version"`
	ReviewerPseudonym string    `json:"reviewer_pseudonym"`
	Recommendation    string    `json:"recommendation"`
	Summary           string    `json:"summary"`
	Detail            string    `json:"detail"`
	Confidence        int       `json:"confidence"`
	CreatedAt         time.Time `json:"created_at"`
}

// ListReviewsResponse wraps the reviews recorded for a work.
type ListReviewsResponse struct {
	Reviews []*ReviewResponse `json:"reviews"`
}

// ResultResponse reports an accepted review together with the work state
// and the decision the acceptance triggered.
type ResultResponse struct {
	Review    *ReviewResponse `json:"review"`
	NewStatus string          `json:"work_status"`
	Decision  review.Decision `json:"decision"`
}

// PendingReviewsResponse wraps the reviewer's queue.
type PendingReviewsResponse struct {
	Pending []review.QueueEntry `json:"pending"`
}

func reviewResponse(r *review.Review) *ReviewResponse {
	return &ReviewResponse{
		ID:                r.ID.String(),
		WorkID:            r.WorkID.String(),
		WorkVersion:       r.WorkVersion,
		ReviewerPseudonym: r.ReviewerPseudonym.String(),
		Recommendation:    string(r.Recommendation),
		Summary:           r.Summary,
		Detail:            r.Detail,
		Confidence:        r.Confidence,
		CreatedAt:         r.CreatedAt,
	}
}

func resultResponse(res *review.Result) ResultResponse {
	return ResultResponse{
		Review:    reviewResponse(res.Review),
		NewStatus: string(res.NewStatus),
		Decision:  res.Decision,
	}
}
