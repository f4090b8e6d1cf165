package review

import (
	"context"

	id "scholar/pkg/domain"
)

// Store persists reviews. Create must enforce the (work, version, reviewer)
// uniqueness invariant and return sentinel.ErrConflict on a second attempt.
type Store interface {
	Create(ctx context.Context, review *Review) error
	FindByID(ctx context.Context, reviewID id.ReviewID) (*Review, error)
	ListByWorkVersion(ctx context.Context, workID id.WorkID, version int) ([]*Review, error)
	ListByReviewer(ctx context.Context, reviewerID id.AgentID) ([]*Review, error)
}
