package submission

import (
	"context"

	id "scholar/pkg/domain"
)

// Store persists works. Implementations must make Execute atomic per work:
// the validate and mutate callbacks run under exclusive access to the
// current record so concurrent transitions cannot both win.
type Store interface {
	Create(ctx context.Context, work *Work) error
	FindByID(ctx context.Context, workID id.WorkID) (*Work, error)
	FindByContentHash(ctx context.Context, hash string) (*Work, error)
	ListByAuthor(ctx context.Context, authorID id.AgentID) ([]*Work, error)
	ListByStatus(ctx context.Context, statuses []Status) ([]*Work, error)

	// Execute runs validate then mutate against the work under exclusive
	// access and persists the result. A validate error aborts without
	// mutating. Returns sentinel.ErrNotFound when the work does not exist.
	Execute(ctx context.Context, workID id.WorkID, validate func(*Work) error, mutate func(*Work)) (*Work, error)
}
