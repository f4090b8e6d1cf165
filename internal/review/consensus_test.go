package review

import (
	"testing"

	"scholar/internal/policy"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Consensus Evaluation Test Suite
// =============================================================================
// Justification for unit tests: the precedence order of the decision rules
// (insufficient, reject block, major block, threshold) is the core of the
// publication pipeline and must be pinned independently of any store or
// transport behaviour.

type ConsensusSuite struct {
	suite.Suite
}

func TestConsensusSuite(t *testing.T) {
	suite.Run(t, new(ConsensusSuite))
}

func reviewsOf(recs ...Recommendation) []*Review {
	out := make([]*Review, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &Review{Recommendation: rec})
	}
	return out
}

func standard() policy.Requirements {
	return policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80}
}

func (s *ConsensusSuite) TestInsufficientReviews() {
	s.Run("fewer reviews than required waits", func() {
		d := EvaluateConsensus(reviewsOf(RecommendAccept), standard())
		s.Equal(DecisionInsufficientReviews, d.Kind)
		s.Equal(1, d.ReviewCount)
		s.Equal(2, d.Needed)
	})

	s.Run("a reject among an incomplete set still waits", func() {
		reqs := policy.Requirements{MinReviewers: 3, ApprovalThreshold: 80}
		d := EvaluateConsensus(reviewsOf(RecommendReject), reqs)
		s.Equal(DecisionInsufficientReviews, d.Kind)
	})

	s.Run("no reviews at all", func() {
		d := EvaluateConsensus(nil, standard())
		s.Equal(DecisionInsufficientReviews, d.Kind)
		s.Equal(0, d.ReviewCount)
	})
}

func (s *ConsensusSuite) TestBlockingRecommendations() {
	s.Run("a single reject blocks regardless of the positive majority", func() {
		d := EvaluateConsensus(reviewsOf(RecommendAccept, RecommendAccept, RecommendReject), standard())
		s.Equal(DecisionBlockedReject, d.Kind)
	})

	s.Run("reject outranks major revision when both are present", func() {
		d := EvaluateConsensus(reviewsOf(RecommendMajorRevision, RecommendReject), standard())
		s.Equal(DecisionBlockedReject, d.Kind)
	})

	s.Run("a single major revision blocks without a reject", func() {
		d := EvaluateConsensus(reviewsOf(RecommendAccept, RecommendMajorRevision), standard())
		s.Equal(DecisionBlockedMajorRevision, d.Kind)
	})
}

func (s *ConsensusSuite) TestThreshold() {
	s.Run("accept plus minor revision reaches 100 percent", func() {
		d := EvaluateConsensus(reviewsOf(RecommendAccept, RecommendMinorRevision), standard())
		s.Equal(DecisionPublished, d.Kind)
		s.InDelta(100.0, d.PositiveRate, 0.001)
	})

	s.Run("unanimity threshold rejects anything short of 100 percent", func() {
		reqs := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 100}
		d := EvaluateConsensus(reviewsOf(RecommendAccept, RecommendAccept, RecommendAccept), reqs)
		s.Equal(DecisionPublished, d.Kind)
	})

	s.Run("larger panels publish once the count is met", func() {
		reqs := policy.Requirements{MinReviewers: 5, ApprovalThreshold: 80}
		d := EvaluateConsensus(reviewsOf(
			RecommendAccept, RecommendAccept, RecommendAccept, RecommendMinorRevision,
			RecommendAccept,
		), reqs)
		s.Equal(DecisionPublished, d.Kind)
		s.Equal(5, d.ReviewCount)
	})

	s.Run("evaluation is order independent", func() {
		forward := EvaluateConsensus(reviewsOf(RecommendAccept, RecommendReject, RecommendMinorRevision), standard())
		backward := EvaluateConsensus(reviewsOf(RecommendMinorRevision, RecommendReject, RecommendAccept), standard())
		s.Equal(forward, backward)
	})
}

func (s *ConsensusSuite) TestDecisionReporting() {
	s.Run("insufficient reason reports counts", func() {
		d := EvaluateConsensus(reviewsOf(RecommendAccept), standard())
		s.Contains(d.Reason, "1 of 2")
	})

	s.Run("published reason reports the rate and threshold", func() {
		d := EvaluateConsensus(reviewsOf(RecommendAccept, RecommendMinorRevision), standard())
		s.Contains(d.Reason, "100%")
		s.Contains(d.Reason, "80%")
	})
}
