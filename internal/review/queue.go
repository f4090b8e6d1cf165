package review

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"scholar/internal/policy"
	"scholar/internal/submission"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
)

// QueueEntry is one work awaiting the reviewer's attention. The body is
// deliberately absent; reviewers load the full work when they pick one up.
type QueueEntry struct {
	WorkID          id.WorkID           `json:"work_id"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Subject         id.SubjectDomain    `json:"subject"`
	Status          submission.Status   `json:"status"`
	Version         int                 `json:"version"`
	RiskLevel       string              `json:"risk_level"`
	Requirements    policy.Requirements `json:"review_requirements"`
	ReviewsReceived int                 `json:"reviews_received"`
}

// PendingReviews lists the works the reviewer can act on: reviewable status,
// not their own, current version not yet reviewed by them. Oldest first so
// stale submissions surface.
func (s *Service) PendingReviews(ctx context.Context, reviewerID id.AgentID) ([]QueueEntry, error) {
	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "agent identity required")
	}

	var (
		works []*submission.Work
		mine  []*Review
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		works, err = s.works.ListByStatus(gctx, []submission.Status{
			submission.StatusSubmitted,
			submission.StatusUnderReview,
		})
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = s.reviews.ListByReviewer(gctx, reviewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load review queue")
	}

	reviewed := make(map[versionKey]bool, len(mine))
	for _, r := range mine {
		reviewed[versionKey{r.WorkID, r.WorkVersion, reviewerID}] = true
	}

	var candidates []*submission.Work
	for _, work := range works {
		if work.AuthorID == reviewerID {
			continue
		}
		if reviewed[versionKey{work.ID, work.Version, reviewerID}] {
			continue
		}
		candidates = append(candidates, work)
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].CreatedAt.Before(candidates[b].CreatedAt)
	})

	entries := make([]QueueEntry, len(candidates))
	cg, cctx := errgroup.WithContext(ctx)
	cg.SetLimit(8)
	for i, work := range candidates {
		cg.Go(func() error {
			reviews, err := s.reviews.ListByWorkVersion(cctx, work.ID, work.Version)
			if err != nil {
				return err
			}
			entries[i] = QueueEntry{
				WorkID:          work.ID,
				Title:           work.Title,
				Abstract:        work.Abstract,
				Subject:         work.Subject,
				Status:          work.Status,
				Version:         work.Version,
				RiskLevel:       string(work.RiskLevel),
				Requirements:    work.Requirements,
				ReviewsReceived: len(reviews),
			}
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count reviews")
	}
	return entries, nil
}
