package review

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"scholar/internal/citation"
	"scholar/internal/policy"
	"scholar/internal/safety"
	"scholar/internal/submission"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/platform/audit"
	"scholar/pkg/platform/sentinel"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Review Service Test Suite
// =============================================================================
// Justification for unit tests: the guard chain ordering, the per-version
// duplicate rule, and the decision side effects (publication with citation,
// reject and major-revision transitions) are the contract of the review flow
// and cannot be verified through the consensus function alone.

type stubDirectory struct {
	reviewers map[id.AgentID]ReviewerInfo
}

func (d *stubDirectory) Lookup(_ context.Context, agentID id.AgentID) (ReviewerInfo, error) {
	info, ok := d.reviewers[agentID]
	if !ok {
		return ReviewerInfo{}, sentinel.ErrNotFound
	}
	return info, nil
}

type stubCounters struct {
	reviews   int
	citations int
}

func (c *stubCounters) IncrementReviews(_ context.Context, _ id.AgentID, delta int) error {
	c.reviews += delta
	return nil
}

func (c *stubCounters) IncrementCitations(_ context.Context, _ id.AgentID, delta int) error {
	c.citations += delta
	return nil
}

type captureEmitter struct {
	events []audit.Event
}

func (c *captureEmitter) Emit(_ context.Context, event audit.Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *captureEmitter) actions() []string {
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Action)
	}
	return out
}

type ReviewServiceSuite struct {
	suite.Suite
	works     *submission.InMemoryStore
	reviews   *InMemoryStore
	directory *stubDirectory
	counters  *stubCounters
	auditor   *captureEmitter
	service   *Service
	authorID  id.AgentID
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceSuite))
}

func (s *ReviewServiceSuite) SetupTest() {
	s.works = submission.NewInMemoryStore()
	s.reviews = NewInMemoryStore()
	s.directory = &stubDirectory{reviewers: make(map[id.AgentID]ReviewerInfo)}
	s.counters = &stubCounters{}
	s.auditor = &captureEmitter{}
	svc, err := New(s.works, s.reviews, citation.NewMemoryAllocator(),
		s.directory, s.counters, s.auditor, slog.Default(), nil)
	s.Require().NoError(err)
	s.service = svc
	s.authorID = id.NewAgentID()
}

func (s *ReviewServiceSuite) SetupSubTest() {
	s.SetupTest()
}

// newReviewer registers an eligible reviewer in the directory.
func (s *ReviewServiceSuite) newReviewer() id.AgentID {
	agentID := id.NewAgentID()
	s.directory.reviewers[agentID] = ReviewerInfo{
		Pseudonym: id.Pseudonym("Reviewer@" + agentID.String()[:8]),
		Active:    true,
		CanReview: true,
	}
	return agentID
}

// seedWork persists a submitted work with the given review requirements.
func (s *ReviewServiceSuite) seedWork(reqs policy.Requirements) *submission.Work {
	work := &submission.Work{
		ID:              id.NewWorkID(),
		AuthorID:        s.authorID,
		AuthorPseudonym: id.Pseudonym("Scribe@deadbeef01"),
		Title:           "On the Epistemology of Distributed Agent Consensus",
		Abstract:        "A study of how autonomous scholarly agents converge on shared judgements about novel claims.",
		Body:            strings.Repeat("The collective dynamics of autonomous scholarly agents merit sustained inquiry. ", 14),
		Subject:         id.SubjectAgentEpistemology,
		Status:          submission.StatusSubmitted,
		Version:         1,
		RiskLevel:       safety.RiskNone,
		Requirements:    reqs,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	s.Require().NoError(s.works.Create(context.Background(), work))
	return work
}

func positiveInput(rec Recommendation) SubmitInput {
	return SubmitInput{
		Recommendation: string(rec),
		Summary:        "A careful and well grounded argument that advances the field meaningfully.",
		Detail: strings.Repeat(
			"The methodology is sound and the claims follow from the presented evidence. ", 4),
		Confidence: 4,
	}
}

func (s *ReviewServiceSuite) TestGuards() {
	reqs := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80}

	s.Run("unknown reviewer is unauthorized", func() {
		work := s.seedWork(reqs)
		_, err := s.service.AcceptReview(context.Background(), id.NewAgentID(), work.ID, positiveInput(RecommendAccept))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("inactive reviewer is forbidden", func() {
		work := s.seedWork(reqs)
		agentID := id.NewAgentID()
		s.directory.reviewers[agentID] = ReviewerInfo{Pseudonym: "Dormant@0badcafe", Active: false, CanReview: true}
		_, err := s.service.AcceptReview(context.Background(), agentID, work.ID, positiveInput(RecommendAccept))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Contains(s.auditor.actions(), string(audit.EventReviewRefused))
	})

	s.Run("unknown work is not found", func() {
		reviewer := s.newReviewer()
		_, err := s.service.AcceptReview(context.Background(), reviewer, id.NewWorkID(), positiveInput(RecommendAccept))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("self review is forbidden even on a published work", func() {
		work := s.seedWork(reqs)
		_, err := s.works.Execute(context.Background(), work.ID,
			func(w *submission.Work) error { return nil },
			func(w *submission.Work) { w.Status = submission.StatusPublished },
		)
		s.Require().NoError(err)
		s.directory.reviewers[s.authorID] = ReviewerInfo{Pseudonym: work.AuthorPseudonym, Active: true, CanReview: true}

		_, err = s.service.AcceptReview(context.Background(), s.authorID, work.ID, positiveInput(RecommendAccept))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("published work does not accept reviews", func() {
		work := s.seedWork(reqs)
		_, err := s.works.Execute(context.Background(), work.ID,
			func(w *submission.Work) error { return nil },
			func(w *submission.Work) { w.Status = submission.StatusPublished },
		)
		s.Require().NoError(err)

		reviewer := s.newReviewer()
		_, err = s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendAccept))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWrongState))
	})

	s.Run("review text passes the safety gate", func() {
		work := s.seedWork(reqs)
		reviewer := s.newReviewer()
		in := positiveInput(RecommendAccept)
		in.Detail = in.Detail + " Contact the author at real.person@gmail.com for clarification."
		_, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSafetyBlock))
	})

	s.Run("field bounds are validated", func() {
		work := s.seedWork(reqs)
		reviewer := s.newReviewer()
		in := positiveInput(RecommendAccept)
		in.Summary = "too short"
		_, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ReviewServiceSuite) TestAcceptReview() {
	reqs := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80}

	s.Run("first review moves the work under review", func() {
		work := s.seedWork(reqs)
		reviewer := s.newReviewer()
		result, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)
		s.Equal(submission.StatusUnderReview, result.NewStatus)
		s.Equal(DecisionInsufficientReviews, result.Decision.Kind)
		s.Equal(1, result.Review.WorkVersion)
		s.Equal(1, s.counters.reviews)
		s.Contains(s.auditor.actions(), string(audit.EventReviewSubmitted))
	})

	s.Run("same reviewer cannot review the same version twice", func() {
		work := s.seedWork(reqs)
		reviewer := s.newReviewer()
		_, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		_, err = s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendMinorRevision))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicate))
	})

	s.Run("a revision opens a fresh review slot for the same reviewer", func() {
		work := s.seedWork(reqs)
		reviewer := s.newReviewer()
		_, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		_, err = s.works.Execute(context.Background(), work.ID,
			func(w *submission.Work) error { return nil },
			func(w *submission.Work) {
				w.Version = 2
				w.Status = submission.StatusSubmitted
			},
		)
		s.Require().NoError(err)

		result, err := s.service.AcceptReview(context.Background(), reviewer, work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)
		s.Equal(2, result.Review.WorkVersion)
	})
}

func (s *ReviewServiceSuite) TestDecisions() {
	reqs := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80}

	s.Run("meeting the threshold publishes and assigns a citation", func() {
		work := s.seedWork(reqs)
		_, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		result, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendMinorRevision))
		s.Require().NoError(err)
		s.Equal(DecisionPublished, result.Decision.Kind)
		s.Equal(submission.StatusPublished, result.NewStatus)
		s.NotEmpty(result.Decision.CitationID)
		s.Contains(result.Decision.CitationID, "ES-")
		s.Equal(1, s.counters.citations)
		s.Contains(s.auditor.actions(), string(audit.EventWorkPublished))
		s.Contains(s.auditor.actions(), string(audit.EventCitationAssigned))

		published, err := s.works.FindByID(context.Background(), work.ID)
		s.Require().NoError(err)
		s.Equal(result.Decision.CitationID, published.CitationID)
		s.NotNil(published.PublishedAt)
	})

	s.Run("a reject recommendation rejects the work", func() {
		work := s.seedWork(reqs)
		_, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		result, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendReject))
		s.Require().NoError(err)
		s.Equal(DecisionBlockedReject, result.Decision.Kind)
		s.Equal(submission.StatusRejected, result.NewStatus)
		s.Contains(s.auditor.actions(), string(audit.EventWorkRejected))
	})

	s.Run("a major revision recommendation requests revision", func() {
		work := s.seedWork(reqs)
		_, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		result, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendMajorRevision))
		s.Require().NoError(err)
		s.Equal(DecisionBlockedMajorRevision, result.Decision.Kind)
		s.Equal(submission.StatusRevisionRequested, result.NewStatus)
		s.Contains(s.auditor.actions(), string(audit.EventRevisionRequested))
	})

	s.Run("unanimity requirement holds publication below 100 percent", func() {
		critical := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 100}
		work := s.seedWork(critical)
		_, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)

		result, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendMajorRevision))
		s.Require().NoError(err)
		s.Equal(DecisionBlockedMajorRevision, result.Decision.Kind)
	})
}

func (s *ReviewServiceSuite) TestEvaluateConsensus() {
	reqs := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80}

	s.Run("re-evaluating a published work reports the existing citation", func() {
		work := s.seedWork(reqs)
		_, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)
		result, err := s.service.AcceptReview(context.Background(), s.newReviewer(), work.ID, positiveInput(RecommendAccept))
		s.Require().NoError(err)
		s.Equal(DecisionPublished, result.Decision.Kind)

		again, err := s.service.EvaluateConsensus(context.Background(), work.ID)
		s.Require().NoError(err)
		s.Equal(DecisionPublished, again.Kind)
		s.Equal(result.Decision.CitationID, again.CitationID)
	})

	s.Run("pending works report insufficient reviews", func() {
		work := s.seedWork(reqs)
		decision, err := s.service.EvaluateConsensus(context.Background(), work.ID)
		s.Require().NoError(err)
		s.Equal(DecisionInsufficientReviews, decision.Kind)
	})

	s.Run("unknown work is not found", func() {
		_, err := s.service.EvaluateConsensus(context.Background(), id.NewWorkID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ReviewServiceSuite) TestCitationSequenceStaysDense() {
	reqs := policy.Requirements{MinReviewers: 2, ApprovalThreshold: 80}
	ctx := context.Background()

	// Threshold already crossed, not yet published: seed the reviews directly
	// so every racer starts from the same pending state.
	first := s.seedWork(reqs)
	_, err := s.works.Execute(ctx, first.ID,
		func(*submission.Work) error { return nil },
		func(w *submission.Work) { w.Status = submission.StatusUnderReview },
	)
	s.Require().NoError(err)
	for i := 0; i < 2; i++ {
		reviewer := s.newReviewer()
		s.Require().NoError(s.reviews.Create(ctx, &Review{
			ID:                id.NewReviewID(),
			WorkID:            first.ID,
			WorkVersion:       first.Version,
			ReviewerID:        reviewer,
			ReviewerPseudonym: s.directory.reviewers[reviewer].Pseudonym,
			Recommendation:    RecommendAccept,
			Summary:           "A careful and well grounded argument that advances the field meaningfully.",
			Detail:            strings.Repeat("The methodology is sound and the claims follow from the presented evidence. ", 4),
			Confidence:        4,
			CreatedAt:         time.Now().UTC(),
		}))
	}

	var wg sync.WaitGroup
	citations := make([]string, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := s.service.EvaluateConsensus(ctx, first.ID)
			s.NoError(err)
			citations[i] = decision.CitationID
		}(i)
	}
	wg.Wait()

	year := time.Now().Year()
	for _, c := range citations {
		s.Equal(citation.Format(year, 1), c)
	}

	// Losing racers must not have consumed sequence numbers: the next
	// publication takes the immediately following one.
	second := s.seedWork(reqs)
	_, err = s.service.AcceptReview(ctx, s.newReviewer(), second.ID, positiveInput(RecommendAccept))
	s.Require().NoError(err)
	result, err := s.service.AcceptReview(ctx, s.newReviewer(), second.ID, positiveInput(RecommendAccept))
	s.Require().NoError(err)
	s.Equal(DecisionPublished, result.Decision.Kind)
	s.Equal(citation.Format(year, 2), result.Decision.CitationID)
}
