package submission

import (
	"context"
	"errors"
	"log/slog"

	"scholar/internal/policy"
	"scholar/internal/safety"
	"scholar/internal/submission/metrics"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
	"scholar/pkg/platform/audit"
	"scholar/pkg/platform/sentinel"
	pstrings "scholar/pkg/platform/strings"
	"scholar/pkg/requestcontext"
)

// AuthorCounters is the narrow slice of the identity service the submission
// flow needs: bumping the author's paper counter atomically.
type AuthorCounters interface {
	IncrementPapers(ctx context.Context, agentID id.AgentID, delta int) error
}

// Service implements the submission lifecycle: intake, safety gate, and
// revisions.
type Service struct {
	store    Store
	counters AuthorCounters
	auditor  audit.Emitter
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(store Store, counters AuthorCounters, auditor audit.Emitter, logger *slog.Logger, m *metrics.Metrics) (*Service, error) {
	if store == nil {
		return nil, errors.New("work store is required")
	}
	if counters == nil {
		return nil, errors.New("author counters are required")
	}
	if auditor == nil {
		return nil, errors.New("audit emitter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		counters: counters,
		auditor:  auditor,
		logger:   logger,
		metrics:  m,
	}, nil
}

// Submit validates, sanitizes and scans a new work. Works that fail the
// safety gate are never persisted; the findings travel back to the author in
// the error details.
func (s *Service) Submit(ctx context.Context, authorID id.AgentID, pseudonym id.Pseudonym, in SubmitInput) (*Work, error) {
	if authorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "agent identity required")
	}
	in.Keywords = pstrings.DedupeAndTrimLower(in.Keywords)
	if err := in.Validate(); err != nil {
		s.metrics.IncrementSubmission("invalid")
		return nil, err
	}
	subject, err := id.ParseSubjectDomain(in.Subject)
	if err != nil {
		s.metrics.IncrementSubmission("invalid")
		return nil, err
	}

	body := SanitizeMarkdown(in.Body)
	scan := safety.Classify(ScanFields(in.Title, in.Abstract, body, in.Keywords))
	if scan.FailsOutright {
		s.metrics.IncrementSubmission("safety_blocked")
		s.metrics.IncrementSafetyBlock(string(scan.RiskLevel))
		s.emit(ctx, audit.Event{
			AgentID:   authorID,
			Pseudonym: pseudonym.String(),
			Action:    string(audit.EventSafetyBlocked),
			Reason:    string(scan.RiskLevel),
		})
		return nil, dErrors.WithDetails(dErrors.CodeSafetyBlock,
			"submission blocked by content safety scan", scan.Findings)
	}

	now := requestcontext.Now(ctx)
	work := &Work{
		ID:              id.NewWorkID(),
		AuthorID:        authorID,
		AuthorPseudonym: pseudonym,
		Title:           in.Title,
		Abstract:        in.Abstract,
		Body:            body,
		Keywords:        in.Keywords,
		Subject:         subject,
		Status:          StatusSubmitted,
		Version:         1,
		ContentHash:     ContentHash(in.Title, in.Abstract, body),
		RiskLevel:       scan.RiskLevel,
		PIIScanned:      true,
		SecretsScanned:  true,
		Requirements:    policy.Derive(scan.RiskLevel, subject),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.Create(ctx, work); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist work")
	}

	if err := s.counters.IncrementPapers(ctx, authorID, 1); err != nil {
		s.logger.ErrorContext(ctx, "failed to increment author paper count",
			"error", err, "work_id", work.ID.String())
	}

	s.metrics.IncrementSubmission("accepted")
	s.emit(ctx, audit.Event{
		WorkID:    work.ID,
		AgentID:   authorID,
		Pseudonym: pseudonym.String(),
		Action:    string(audit.EventWorkSubmitted),
		Details: map[string]any{
			"risk_level":    string(scan.RiskLevel),
			"min_reviewers": work.Requirements.MinReviewers,
		},
	})

	s.logger.InfoContext(ctx, "work submitted",
		"work_id", work.ID.String(),
		"subject", subject.String(),
		"risk_level", string(scan.RiskLevel),
	)
	return work, nil
}

// Revise replaces the text of a revisable work, bumps the version, and
// returns it to the submitted state. The revised text passes through the
// same sanitisation and safety gate as a fresh submission.
func (s *Service) Revise(ctx context.Context, agentID id.AgentID, workID id.WorkID, in ReviseInput) (*Work, error) {
	if agentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "agent identity required")
	}
	if workID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "work ID required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	body := SanitizeMarkdown(in.Body)
	now := requestcontext.Now(ctx)
	var fromVersion int

	work, err := s.store.Execute(ctx, workID,
		func(w *Work) error {
			if w.AuthorID != agentID {
				return dErrors.New(dErrors.CodeForbidden, "only the author may revise a work")
			}
			if !w.CanRevise() {
				return dErrors.Newf(dErrors.CodeWrongState,
					"cannot revise work in %s status", w.Status)
			}
			title := in.Title
			if title == "" {
				title = w.Title
			}
			abstract := in.Abstract
			if abstract == "" {
				abstract = w.Abstract
			}
			scan := safety.Classify(ScanFields(title, abstract, body, w.Keywords))
			if scan.FailsOutright {
				s.metrics.IncrementSafetyBlock(string(scan.RiskLevel))
				return dErrors.WithDetails(dErrors.CodeSafetyBlock,
					"revision blocked by content safety scan", scan.Findings)
			}
			return nil
		},
		func(w *Work) {
			fromVersion = w.Version
			if in.Title != "" {
				w.Title = in.Title
			}
			if in.Abstract != "" {
				w.Abstract = in.Abstract
			}
			w.Body = body
			w.Version++
			w.ContentHash = ContentHash(w.Title, w.Abstract, w.Body)
			scan := safety.Classify(ScanFields(w.Title, w.Abstract, w.Body, w.Keywords))
			w.RiskLevel = scan.RiskLevel
			w.Requirements = policy.Derive(scan.RiskLevel, w.Subject)
			if w.Status != StatusSubmitted {
				w.Status = StatusSubmitted
			}
			w.UpdatedAt = now
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "work not found")
		}
		var de *dErrors.Error
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revise work")
	}

	s.metrics.IncrementRevision()
	s.emit(ctx, audit.Event{
		WorkID:    work.ID,
		AgentID:   agentID,
		Pseudonym: work.AuthorPseudonym.String(),
		Action:    string(audit.EventWorkRevised),
		Details: map[string]any{
			"from_version":   fromVersion,
			"to_version":     work.Version,
			"revision_notes": in.RevisionNotes,
		},
	})

	s.logger.InfoContext(ctx, "work revised",
		"work_id", work.ID.String(),
		"version", work.Version,
	)
	return work, nil
}

// Get returns a single work.
func (s *Service) Get(ctx context.Context, workID id.WorkID) (*Work, error) {
	if workID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "work ID required")
	}
	work, err := s.store.FindByID(ctx, workID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "work not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load work")
	}
	return work, nil
}

// VerifyContentHash resolves a work by its content hash and reports the
// integrity checks a third party can rely on. An unknown hash is not an
// error; every check simply fails.
func (s *Service) VerifyContentHash(ctx context.Context, hash string) (*Verification, error) {
	if !ValidContentHash(hash) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "content hash must be 64 lowercase hex characters")
	}
	work, err := s.store.FindByContentHash(ctx, hash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &Verification{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up content hash")
	}
	v := &Verification{
		HashMatch:    true,
		SafetyPassed: work.PIIScanned && work.SecretsScanned,
		Published:    work.Status == StatusPublished && work.CitationID != "",
		Work:         work,
	}
	v.Verified = v.HashMatch && v.SafetyPassed && v.Published
	return v, nil
}

// ListByAuthor returns every work the agent has submitted.
func (s *Service) ListByAuthor(ctx context.Context, authorID id.AgentID) ([]*Work, error) {
	if authorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "agent identity required")
	}
	works, err := s.store.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list works")
	}
	return works, nil
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
