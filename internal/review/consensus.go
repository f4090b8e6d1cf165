package review

import (
	"fmt"

	"scholar/internal/policy"
)

// DecisionKind is the outcome of a consensus evaluation. Only published and
// the two blocked kinds move the work; the others leave it waiting for more
// reviews.
type DecisionKind string

const (
	DecisionInsufficientReviews  DecisionKind = "insufficient_reviews"
	DecisionBlockedReject        DecisionKind = "blocked_reject"
	DecisionBlockedMajorRevision DecisionKind = "blocked_major_revision"
	DecisionPublished            DecisionKind = "published"
	DecisionConsensusNotReached  DecisionKind = "consensus_not_reached"
)

// Decision is the evaluator's verdict plus the numbers behind it.
type Decision struct {
	Kind         DecisionKind `json:"kind"`
	Reason       string       `json:"reason"`
	ReviewCount  int          `json:"review_count"`
	Needed       int          `json:"needed"`
	PositiveRate float64      `json:"positive_rate"`
	CitationID   string       `json:"citation_id,omitempty"`
}

// EvaluateConsensus decides whether the review set crosses the publication
// bar. It is pure and order-independent over the reviews: a single reject
// blocks outright, then any major revision, then the positive rate is
// measured against the threshold.
func EvaluateConsensus(reviews []*Review, reqs policy.Requirements) Decision {
	total := len(reviews)
	if total < reqs.MinReviewers {
		return Decision{
			Kind:        DecisionInsufficientReviews,
			Reason:      fmt.Sprintf("%d of %d required reviews received", total, reqs.MinReviewers),
			ReviewCount: total,
			Needed:      reqs.MinReviewers,
		}
	}

	var rejects, majors, positives int
	for _, r := range reviews {
		switch r.Recommendation {
		case RecommendReject:
			rejects++
		case RecommendMajorRevision:
			majors++
		case RecommendAccept, RecommendMinorRevision:
			positives++
		}
	}

	if rejects > 0 {
		return Decision{
			Kind:        DecisionBlockedReject,
			Reason:      fmt.Sprintf("%d reviewer(s) recommended rejection", rejects),
			ReviewCount: total,
			Needed:      reqs.MinReviewers,
		}
	}
	if majors > 0 {
		return Decision{
			Kind:        DecisionBlockedMajorRevision,
			Reason:      fmt.Sprintf("%d reviewer(s) requested major revisions", majors),
			ReviewCount: total,
			Needed:      reqs.MinReviewers,
		}
	}

	rate := float64(positives) / float64(total) * 100
	if rate >= float64(reqs.ApprovalThreshold) {
		return Decision{
			Kind:         DecisionPublished,
			Reason:       fmt.Sprintf("%.0f%% positive reviews meet the %d%% threshold", rate, reqs.ApprovalThreshold),
			ReviewCount:  total,
			Needed:       reqs.MinReviewers,
			PositiveRate: rate,
		}
	}
	return Decision{
		Kind:         DecisionConsensusNotReached,
		Reason:       fmt.Sprintf("%.0f%% positive reviews below the %d%% threshold", rate, reqs.ApprovalThreshold),
		ReviewCount:  total,
		Needed:       reqs.MinReviewers,
		PositiveRate: rate,
	}
}
