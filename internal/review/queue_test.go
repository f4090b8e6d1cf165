package review

import (
	"context"
	"testing"
	"time"

	"scholar/internal/policy"
	"scholar/internal/submission"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Review Queue Test Suite
// =============================================================================

// ReviewQueueSuite reuses the service suite's stores and stubs.
type ReviewQueueSuite struct {
	ReviewServiceSuite
}

func TestReviewQueueSuite(t *testing.T) {
	suite.Run(t, new(ReviewQueueSuite))
}

func (s *ReviewQueueSuite) seedAt(created time.Time, status submission.Status) *submission.Work {
	work := s.seedWork(policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80})
	_, err := s.works.Execute(context.Background(), work.ID,
		func(w *submission.Work) error { return nil },
		func(w *submission.Work) {
			w.CreatedAt = created
			w.Status = status
		},
	)
	s.Require().NoError(err)
	work.CreatedAt = created
	work.Status = status
	return work
}

func (s *ReviewQueueSuite) TestPendingReviews() {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	s.Run("lists reviewable works oldest first", func() {
		newer := s.seedAt(base.Add(time.Hour), submission.StatusSubmitted)
		older := s.seedAt(base, submission.StatusUnderReview)
		reviewer := s.newReviewer()

		entries, err := s.service.PendingReviews(context.Background(), reviewer)
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(older.ID, entries[0].WorkID)
		s.Equal(newer.ID, entries[1].WorkID)
	})

	s.Run("excludes the reviewer's own works", func() {
		s.seedAt(base, submission.StatusSubmitted)
		entries, err := s.service.PendingReviews(context.Background(), s.authorID)
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("excludes versions the reviewer already covered", func() {
		work := s.seedAt(base, submission.StatusSubmitted)
		reviewer := s.newReviewer()
		_, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		entries, err := s.service.PendingReviews(context.Background(), reviewer)
		s.Require().NoError(err)
		s.Empty(entries)

		// a new version puts the work back in their queue
		_, err = s.works.Execute(context.Background(), work.ID,
			func(w *submission.Work) error { return nil },
			func(w *submission.Work) {
				w.Version = 2
				w.Status = submission.StatusSubmitted
			},
		)
		s.Require().NoError(err)

		entries, err = s.service.PendingReviews(context.Background(), reviewer)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(2, entries[0].Version)
		s.Equal(0, entries[0].ReviewsReceived)
	})

	s.Run("excludes terminal and draft states", func() {
		s.seedAt(base, submission.StatusPublished)
		s.seedAt(base, submission.StatusRejected)
		s.seedAt(base, submission.StatusRevisionRequested)
		entries, err := s.service.PendingReviews(context.Background(), s.newReviewer())
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("counts reviews from other agents", func() {
		work := s.seedAt(base, submission.StatusSubmitted)
		_, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		entries, err := s.service.PendingReviews(context.Background(), s.newReviewer())
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(1, entries[0].ReviewsReceived)
		s.Equal(submission.StatusUnderReview, entries[0].Status)
	})

	s.Run("requires an agent identity", func() {
		_, err := s.service.PendingReviews(context.Background(), id.AgentID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
