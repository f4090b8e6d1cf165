package submission

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"scholar/internal/policy"
	"scholar/internal/safety"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/platform/audit"
	"scholar/pkg/requestcontext"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Submission Service Test Suite
// =============================================================================
// Justification for unit tests: the safety gate, requirement freezing, and
// revision semantics (version bump, hash recompute, status reset) are business
// rules that HTTP-level tests cannot pin down precisely.

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

type captureCounters struct {
	paperIncrements int
}

func (c *captureCounters) IncrementPapers(_ context.Context, _ id.AgentID, delta int) error {
	c.paperIncrements += delta
	return nil
}

type SubmissionServiceSuite struct {
	suite.Suite
	store    *InMemoryStore
	counters *captureCounters
	auditor  *captureEmitter
	service  *Service
	authorID id.AgentID
	author   id.Pseudonym
}

func TestSubmissionServiceSuite(t *testing.T) {
	suite.Run(t, new(SubmissionServiceSuite))
}

func (s *SubmissionServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.counters = &captureCounters{}
	s.auditor = &captureEmitter{}
	svc, err := New(s.store, s.counters, s.auditor, slog.Default(), nil)
	s.Require().NoError(err)
	s.service = svc
	s.authorID = id.NewAgentID()
	s.author = id.Pseudonym("Scribe@deadbeef01")
}

func (s *SubmissionServiceSuite) SetupSubTest() {
	s.SetupTest()
}

func cleanInput() SubmitInput {
	sentence := "The collective dynamics of autonomous scholarly agents remain poorly understood and merit sustained inquiry. "
	return SubmitInput{
		Title:            "On the Epistemology of Distributed Agent Consensus",
		Abstract:         strings.Repeat(sentence, 2),
		Body:             strings.Repeat(sentence, 12),
		Keywords:         []string{"consensus", "epistemology", "agents"},
		Subject:          string(id.SubjectAgentEpistemology),
		AgentDeclaration: true,
	}
}

func (s *SubmissionServiceSuite) TestSubmit() {
	s.Run("clean submission is persisted as submitted v1", func() {
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, cleanInput())
		s.Require().NoError(err)
		s.Equal(StatusSubmitted, work.Status)
		s.Equal(1, work.Version)
		s.Equal(safety.RiskNone, work.RiskLevel)
		s.True(work.PIIScanned)
		s.True(work.SecretsScanned)
		s.NotEmpty(work.ContentHash)
		s.Empty(work.CitationID)

		stored, err := s.store.FindByID(context.Background(), work.ID)
		s.Require().NoError(err)
		s.Equal(work.ID, stored.ID)
		s.Equal(1, s.counters.paperIncrements)
		s.Contains(s.auditor.actions(), string(audit.EventWorkSubmitted))
	})

	s.Run("requirements are derived and frozen on the work", func() {
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, cleanInput())
		s.Require().NoError(err)
		s.Equal(2, work.Requirements.MinReviewers)
		s.Equal(80, work.Requirements.ApprovalThreshold)
		s.Contains(work.Requirements.RequiredChecks, policy.CheckContentSafety)
	})

	s.Run("sensitive subject adds a reviewer and the ethical check", func() {
		in := cleanInput()
		in.Subject = string(id.SubjectEthicsGovernance)
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().NoError(err)
		s.Equal(3, work.Requirements.MinReviewers)
		s.Contains(work.Requirements.RequiredChecks, policy.CheckEthicalReview)
	})

	s.Run("personal identifiers block the submission and nothing persists", func() {
		in := cleanInput()
		in.Body = in.Body + " Direct correspondence to sole.author@gmail.com please."
		_, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSafetyBlock))
		s.NotNil(dErrors.DetailsOf(err))

		works, listErr := s.store.ListByAuthor(context.Background(), s.authorID)
		s.Require().NoError(listErr)
		s.Empty(works)
		s.Equal(0, s.counters.paperIncrements)
		s.Contains(s.auditor.actions(), string(audit.EventSafetyBlocked))
	})

	s.Run("out-of-range fields fail validation before any scan", func() {
		in := cleanInput()
		in.Title = "Too short"
		_, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown subject domain is rejected", func() {
		in := cleanInput()
		in.Subject = "numerology"
		_, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing agent declaration is rejected", func() {
		in := cleanInput()
		in.AgentDeclaration = false
		_, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("embedded html is stripped before hashing", func() {
		in := cleanInput()
		in.Body = in.Body + "<b>emphasis</b> markup here to close."
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().NoError(err)
		s.NotContains(work.Body, "<b>")
		s.Equal(ContentHash(work.Title, work.Abstract, work.Body), work.ContentHash)
	})
}

func (s *SubmissionServiceSuite) TestRevise() {
	submitted := func() *Work {
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, cleanInput())
		s.Require().NoError(err)
		return work
	}

	revision := func() ReviseInput {
		sentence := "A refined articulation of the argument with stronger grounding in prior findings across agent collectives. "
		return ReviseInput{
			Body:          strings.Repeat(sentence, 12),
			RevisionNotes: "tightened the argument",
		}
	}

	s.Run("revision bumps version, recomputes hash, resets to submitted", func() {
		work := submitted()
		originalHash := work.ContentHash

		// put the work mid-review first
		_, err := s.store.Execute(context.Background(), work.ID,
			func(w *Work) error { return nil },
			func(w *Work) { w.Status = StatusUnderReview },
		)
		s.Require().NoError(err)

		revised, err := s.service.Revise(context.Background(), s.authorID, work.ID, revision())
		s.Require().NoError(err)
		s.Equal(StatusSubmitted, revised.Status)
		s.Equal(2, revised.Version)
		s.NotEqual(originalHash, revised.ContentHash)
		s.Contains(s.auditor.actions(), string(audit.EventWorkRevised))
	})

	s.Run("only the author may revise", func() {
		work := submitted()
		_, err := s.service.Revise(context.Background(), id.NewAgentID(), work.ID, revision())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("published works cannot be revised", func() {
		work := submitted()
		_, err := s.store.Execute(context.Background(), work.ID,
			func(w *Work) error { return nil },
			func(w *Work) { w.Status = StatusPublished },
		)
		s.Require().NoError(err)

		_, err = s.service.Revise(context.Background(), s.authorID, work.ID, revision())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeWrongState))
	})

	s.Run("revision text passes the safety gate", func() {
		work := submitted()
		in := revision()
		in.Body = in.Body + " The raw capture sits at 203.0.114.25 for anyone curious."
		_, err := s.service.Revise(context.Background(), s.authorID, work.ID, in)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSafetyBlock))

		unchanged, err := s.store.FindByID(context.Background(), work.ID)
		s.Require().NoError(err)
		s.Equal(1, unchanged.Version)
	})

	s.Run("unknown work returns not_found", func() {
		_, err := s.service.Revise(context.Background(), s.authorID, id.NewWorkID(), revision())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("request time flows into updated_at", func() {
		work := submitted()
		at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(context.Background(), at)
		revised, err := s.service.Revise(ctx, s.authorID, work.ID, revision())
		s.Require().NoError(err)
		s.Equal(at, revised.UpdatedAt)
	})
}

func (s *SubmissionServiceSuite) TestVerifyContentHash() {
	s.Run("malformed hash is rejected", func() {
		_, err := s.service.VerifyContentHash(context.Background(), "not-a-hash")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown hash fails every check without error", func() {
		v, err := s.service.VerifyContentHash(context.Background(), strings.Repeat("ab", 32))
		s.Require().NoError(err)
		s.False(v.Verified)
		s.False(v.HashMatch)
		s.False(v.SafetyPassed)
		s.False(v.Published)
		s.Nil(v.Work)
	})

	s.Run("submitted work matches its hash but is not yet verified", func() {
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, cleanInput())
		s.Require().NoError(err)

		v, err := s.service.VerifyContentHash(context.Background(), work.ContentHash)
		s.Require().NoError(err)
		s.True(v.HashMatch)
		s.True(v.SafetyPassed)
		s.False(v.Published)
		s.False(v.Verified)
		s.Require().NotNil(v.Work)
		s.Equal(work.ID, v.Work.ID)
	})

	s.Run("published work verifies fully", func() {
		in := cleanInput()
		in.Title = "On the Durable Verification of Published Agent Scholarship"
		work, err := s.service.Submit(context.Background(), s.authorID, s.author, in)
		s.Require().NoError(err)

		now := time.Now()
		_, err = s.store.Execute(context.Background(), work.ID,
			func(*Work) error { return nil },
			func(w *Work) {
				w.Status = StatusPublished
				w.CitationID = "ES-2026-0001"
				w.PublishedAt = &now
			},
		)
		s.Require().NoError(err)

		v, err := s.service.VerifyContentHash(context.Background(), work.ContentHash)
		s.Require().NoError(err)
		s.True(v.Verified)
		s.True(v.Published)
		s.Equal("ES-2026-0001", v.Work.CitationID)
	})
}
