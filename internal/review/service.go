package review

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scholar/internal/citation"
	"scholar/internal/review/metrics"
	"scholar/internal/safety"
	"scholar/internal/submission"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/platform/audit"
	"scholar/pkg/platform/sentinel"
	"scholar/pkg/requestcontext"
)

// ReviewerInfo is the slice of an agent record the review guards need.
type ReviewerInfo struct {
	Pseudonym id.Pseudonym
	Active    bool
	CanReview bool
}

// ReviewerDirectory resolves a reviewer's standing.
type ReviewerDirectory interface {
	Lookup(ctx context.Context, agentID id.AgentID) (ReviewerInfo, error)
}

// AgentCounters is the slice of the identity service the review flow
// mutates: review counts on acceptance and citation counts on publication.
type AgentCounters interface {
	IncrementReviews(ctx context.Context, agentID id.AgentID, delta int) error
	IncrementCitations(ctx context.Context, agentID id.AgentID, delta int) error
}

// Result is the outcome of an accepted review.
type Result struct {
	Review    *Review           `json:"review"`
	NewStatus submission.Status `json:"new_status"`
	Decision  Decision          `json:"decision"`
}

// Service accepts reviews and drives the consensus evaluation that follows
// each one.
type Service struct {
	works     submission.Store
	reviews   Store
	citations citation.Allocator
	directory ReviewerDirectory
	counters  AgentCounters
	auditor   audit.Emitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func New(
	works submission.Store,
	reviews Store,
	citations citation.Allocator,
	directory ReviewerDirectory,
	counters AgentCounters,
	auditor audit.Emitter,
	logger *slog.Logger,
	m *metrics.Metrics,
) (*Service, error) {
	if works == nil {
		return nil, errors.New("work store is required")
	}
	if reviews == nil {
		return nil, errors.New("review store is required")
	}
	if citations == nil {
		return nil, errors.New("citation allocator is required")
	}
	if directory == nil {
		return nil, errors.New("reviewer directory is required")
	}
	if counters == nil {
		return nil, errors.New("agent counters are required")
	}
	if auditor == nil {
		return nil, errors.New("audit emitter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		works:     works,
		reviews:   reviews,
		citations: citations,
		directory: directory,
		counters:  counters,
		auditor:   auditor,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("scholar/review"),
	}, nil
}

// AcceptReview runs the full guard chain, persists the review, and
// synchronously evaluates consensus. Publication, rejection, or a revision
// request is a direct consequence of the review that crossed the line.
//
// Guard order: field validation, reviewer standing, work existence,
// self-review, reviewable status, duplicate. Self-review is checked before
// status so an author always sees forbidden, never wrong_state.
func (s *Service) AcceptReview(ctx context.Context, reviewerID id.AgentID, workID id.WorkID, in SubmitInput) (*Result, error) {
	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "agent identity required")
	}
	if workID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "work ID required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	scan := safety.Classify([]safety.Field{
		{Name: "summary", Text: in.Summary},
		{Name: "detail", Text: in.Detail},
	})
	if scan.FailsOutright {
		return nil, dErrors.WithDetails(dErrors.CodeSafetyBlock,
			"review blocked by content safety scan", scan.Findings)
	}

	reviewer, err := s.directory.Lookup(ctx, reviewerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown reviewer")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up reviewer")
	}
	if !reviewer.Active || !reviewer.CanReview {
		s.refused(ctx, workID, reviewerID, "reviewer_not_eligible")
		return nil, dErrors.New(dErrors.CodeForbidden, "agent is not eligible to review")
	}

	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "work not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load work")
	}

	if work.AuthorID == reviewerID || work.AuthorPseudonym == reviewer.Pseudonym {
		s.refused(ctx, workID, reviewerID, "self_review")
		return nil, dErrors.New(dErrors.CodeForbidden, "authors may not review their own work")
	}
	if !work.CanAcceptReview() {
		return nil, dErrors.Newf(dErrors.CodeWrongState,
			"work in %s status does not accept reviews", work.Status)
	}

	recommendation, _ := ParseRecommendation(in.Recommendation)
	now := requestcontext.Now(ctx)
	review := &Review{
		ID:                id.NewReviewID(),
		WorkID:            work.ID,
		WorkVersion:       work.Version,
		ReviewerID:        reviewerID,
		ReviewerPseudonym: reviewer.Pseudonym,
		Recommendation:    recommendation,
		Summary:           in.Summary,
		Detail:            in.Detail,
		Confidence:        in.Confidence,
		CreatedAt:         now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicate,
				"reviewer has already reviewed this version of the work")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist review")
	}

	// First review moves the work out of the submitted queue.
	work, err = s.works.Execute(ctx, work.ID,
		func(w *submission.Work) error { return nil },
		func(w *submission.Work) {
			if w.Status == submission.StatusSubmitted {
				w.Status = submission.StatusUnderReview
				w.UpdatedAt = now
			}
		},
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update work status")
	}

	if err := s.counters.IncrementReviews(ctx, reviewerID, 1); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment reviewer count",
			"error", err, "reviewer_id", reviewerID.String())
	}

	s.metrics.IncrementReview(recommendation.String())
	s.emit(ctx, audit.Event{
		WorkID:    work.ID,
		AgentID:   reviewerID,
		Pseudonym: reviewer.Pseudonym.String(),
		Action:    string(audit.EventReviewSubmitted),
		Details: map[string]any{
			"review_id":      review.ID.String(),
			"work_version":   review.WorkVersion,
			"recommendation": recommendation.String(),
		},
	})

	decision, work, err := s.evaluate(ctx, work, review.WorkVersion)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review accepted",
		"work_id", work.ID.String(),
		"review_id", review.ID.String(),
		"recommendation", recommendation.String(),
		"decision", string(decision.Kind),
	)
	return &Result{Review: review, NewStatus: work.Status, Decision: decision}, nil
}

// EvaluateConsensus re-runs the consensus evaluation for a work outside the
// review path. Re-evaluating a published work is a no-op that reports the
// existing citation.
func (s *Service) EvaluateConsensus(ctx context.Context, workID id.WorkID) (Decision, error) {
	if workID.IsNil() {
		return Decision{}, dErrors.New(dErrors.CodeBadRequest, "work ID required")
	}
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Decision{}, dErrors.New(dErrors.CodeNotFound, "work not found")
		}
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load work")
	}

	if work.Status == submission.StatusPublished {
		return Decision{
			Kind:       DecisionPublished,
			Reason:     "work is already published",
			CitationID: work.CitationID,
		}, nil
	}

	decision, _, err := s.evaluate(ctx, work, work.Version)
	return decision, err
}

// evaluate computes the decision for the work's current review set and
// applies any resulting transition. Returns the decision and the freshest
// view of the work.
func (s *Service) evaluate(ctx context.Context, work *submission.Work, version int) (Decision, *submission.Work, error) {
	ctx, span := s.tracer.Start(ctx, "review.evaluate_consensus",
		trace.WithAttributes(
			attribute.String("work.id", work.ID.String()),
			attribute.Int("work.version", version),
		))
	defer span.End()

	reviews, err := s.reviews.ListByWorkVersion(ctx, work.ID, version)
	if err != nil {
		return Decision{}, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}

	decision := EvaluateConsensus(reviews, work.Requirements)
	span.SetAttributes(
		attribute.String("decision.kind", string(decision.Kind)),
		attribute.Int("decision.reviews", decision.ReviewCount),
	)
	s.metrics.IncrementDecision(string(decision.Kind))

	switch decision.Kind {
	case DecisionPublished:
		updated, err := s.publish(ctx, work, &decision)
		if err != nil {
			return Decision{}, nil, err
		}
		return decision, updated, nil

	case DecisionBlockedReject:
		updated, err := s.applyBlock(ctx, work, submission.StatusRejected, audit.EventWorkRejected, decision.Reason)
		if err != nil {
			return Decision{}, nil, err
		}
		return decision, updated, nil

	case DecisionBlockedMajorRevision:
		updated, err := s.applyBlock(ctx, work, submission.StatusRevisionRequested, audit.EventRevisionRequested, decision.Reason)
		if err != nil {
			return Decision{}, nil, err
		}
		return decision, updated, nil

	default:
		return decision, work, nil
	}
}

// publish transitions the work to published and assigns its citation. The
// store's Execute gives concurrent evaluations a single winner: losers
// observe the already-published row and report its existing citation.
func (s *Service) publish(ctx context.Context, work *submission.Work, decision *Decision) (*submission.Work, error) {
	if work.Status == submission.StatusPublished && work.CitationID != "" {
		decision.CitationID = work.CitationID
		return work, nil
	}

	now := requestcontext.Now(ctx)

	// The sequence is allocated under the work lock, after the status check,
	// so a lost publish race never burns a number and the per-year series
	// stays dense.
	var (
		alreadyPublished bool
		citationID       string
	)
	updated, err := s.works.Execute(ctx, work.ID,
		func(w *submission.Work) error {
			if w.Status == submission.StatusPublished {
				alreadyPublished = true
				return nil
			}
			if !submission.CanTransition(w.Status, submission.StatusPublished) {
				return dErrors.Newf(dErrors.CodeWrongState,
					"cannot publish work in %s status", w.Status)
			}
			seq, err := s.citations.Next(ctx, now.Year())
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate citation")
			}
			citationID = citation.Format(now.Year(), seq)
			return nil
		},
		func(w *submission.Work) {
			if alreadyPublished {
				return
			}
			w.Status = submission.StatusPublished
			w.CitationID = citationID
			w.PublishedAt = &now
			w.UpdatedAt = now
		},
	)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish work")
	}

	decision.CitationID = updated.CitationID
	if alreadyPublished {
		return updated, nil
	}

	if err := s.counters.IncrementCitations(ctx, updated.AuthorID, 1); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment author citations",
			"error", err, "work_id", updated.ID.String())
	}

	s.metrics.IncrementPublication(updated.Subject.String())
	s.emit(ctx, audit.Event{
		WorkID:    updated.ID,
		AgentID:   updated.AuthorID,
		Pseudonym: updated.AuthorPseudonym.String(),
		Action:    string(audit.EventWorkPublished),
		Details:   map[string]any{"citation_id": updated.CitationID},
	})
	s.emit(ctx, audit.Event{
		WorkID:  updated.ID,
		AgentID: updated.AuthorID,
		Action:  string(audit.EventCitationAssigned),
		Reason:  updated.CitationID,
	})

	s.logger.InfoContext(ctx, "work published",
		"work_id", updated.ID.String(),
		"citation_id", updated.CitationID,
	)
	return updated, nil
}

func (s *Service) applyBlock(ctx context.Context, work *submission.Work, target submission.Status, event audit.AuditEvent, reason string) (*submission.Work, error) {
	now := requestcontext.Now(ctx)
	var alreadyThere bool
	updated, err := s.works.Execute(ctx, work.ID,
		func(w *submission.Work) error {
			if w.Status == target {
				alreadyThere = true
				return nil
			}
			if !submission.CanTransition(w.Status, target) {
				return dErrors.Newf(dErrors.CodeWrongState,
					"cannot move work from %s to %s", w.Status, target)
			}
			return nil
		},
		func(w *submission.Work) {
			if alreadyThere {
				return
			}
			w.Status = target
			w.UpdatedAt = now
		},
	)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to transition work")
	}
	if alreadyThere {
		return updated, nil
	}

	s.emit(ctx, audit.Event{
		WorkID:    updated.ID,
		AgentID:   updated.AuthorID,
		Pseudonym: updated.AuthorPseudonym.String(),
		Action:    string(event),
		Reason:    reason,
	})
	return updated, nil
}

// ReviewsForWork lists the reviews attached to the work's current version.
func (s *Service) ReviewsForWork(ctx context.Context, workID id.WorkID) ([]*Review, error) {
	if workID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "work ID required")
	}
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "work not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load work")
	}
	reviews, err := s.reviews.ListByWorkVersion(ctx, workID, work.Version)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}
	return reviews, nil
}

func (s *Service) refused(ctx context.Context, workID id.WorkID, agentID id.AgentID, reason string) {
	s.emit(ctx, audit.Event{
		WorkID:  workID,
		AgentID: agentID,
		Action:  string(audit.EventReviewRefused),
		Reason:  reason,
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"error", err, "action", event.Action)
	}
}
