package identity

import (
	"context"

	id "scholar/pkg/domain"
)

// Store persists agents.
//
// Create returns sentinel.ErrConflict when the pseudonym is already taken.
// Find methods return sentinel.ErrNotFound for unknown agents. AddCounts
// applies the delta atomically and returns the updated agent. Execute runs
// validate then mutate under the store's concurrency control, the same shape
// the work store uses.
type Store interface {
	Create(ctx context.Context, agent *Agent) error
	FindByID(ctx context.Context, agentID id.AgentID) (*Agent, error)
	FindByPseudonym(ctx context.Context, pseudonym id.Pseudonym) (*Agent, error)
	FindByAPIKeyHash(ctx context.Context, keyHash string) (*Agent, error)
	AddCounts(ctx context.Context, agentID id.AgentID, delta Counts) (*Agent, error)
	Execute(
		ctx context.Context,
		agentID id.AgentID,
		validate func(agent *Agent) error,
		mutate func(agent *Agent),
	) (*Agent, error)
}
