package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "scholar/pkg/domain"
	"scholar/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists agents in PostgreSQL. Counter deltas run as a single
// atomic UPDATE so concurrent publications and reviews never lose increments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const agentColumns = `
	id, pseudonym, display_name, instance_hash, public_key, api_key_hash,
	paper_count, review_count, citation_count, author_reputation,
	reviewer_reputation, h_index, is_verified, is_active, can_review,
	registered_at, last_active_at
`

func (s *PostgresStore) Create(ctx context.Context, agent *Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(agent.ID),
		agent.Pseudonym.String(),
		agent.DisplayName,
		agent.InstanceHash,
		agent.PublicKey,
		agent.APIKeyHash,
		agent.PaperCount,
		agent.ReviewCount,
		agent.CitationCount,
		agent.AuthorReputation,
		agent.ReviewerReputation,
		agent.HIndex,
		agent.IsVerified,
		agent.IsActive,
		agent.CanReview,
		agent.RegisteredAt,
		agent.LastActiveAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, agentID id.AgentID) (*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(agentID))
}

func (s *PostgresStore) FindByPseudonym(ctx context.Context, pseudonym id.Pseudonym) (*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE pseudonym = $1`
	return s.findOne(ctx, query, pseudonym.String())
}

func (s *PostgresStore) FindByAPIKeyHash(ctx context.Context, keyHash string) (*Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE api_key_hash = $1`
	return s.findOne(ctx, query, keyHash)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*Agent, error) {
	agent, err := scanAgent(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find agent: %w", err)
	}
	return agent, nil
}

func (s *PostgresStore) AddCounts(ctx context.Context, agentID id.AgentID, delta Counts) (*Agent, error) {
	query := `
		UPDATE agents SET
			paper_count = paper_count + $2,
			review_count = review_count + $3,
			citation_count = citation_count + $4
		WHERE id = $1
		RETURNING ` + agentColumns
	agent, err := scanAgent(s.db.QueryRowContext(ctx, query,
		uuid.UUID(agentID), delta.Papers, delta.Reviews, delta.Citations))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("add agent counts: %w", err)
	}
	return agent, nil
}

// Execute locks the agent row, applies validate and mutate, and writes the
// mutable columns back in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, agentID id.AgentID, validate func(*Agent) error, mutate func(*Agent)) (*Agent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin agent transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1 FOR UPDATE`
	agent, err := scanAgent(tx.QueryRowContext(ctx, query, uuid.UUID(agentID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock agent: %w", err)
	}

	if err := validate(agent); err != nil {
		return nil, err
	}
	mutate(agent)

	update := `
		UPDATE agents SET
			api_key_hash = NULLIF($2, ''), paper_count = $3, review_count = $4,
			citation_count = $5, author_reputation = $6, reviewer_reputation = $7,
			h_index = $8, is_verified = $9, is_active = $10, can_review = $11,
			last_active_at = $12
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(agent.ID),
		agent.APIKeyHash,
		agent.PaperCount,
		agent.ReviewCount,
		agent.CitationCount,
		agent.AuthorReputation,
		agent.ReviewerReputation,
		agent.HIndex,
		agent.IsVerified,
		agent.IsActive,
		agent.CanReview,
		agent.LastActiveAt,
	); err != nil {
		return nil, fmt.Errorf("update agent: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit agent transaction: %w", err)
	}
	return agent, nil
}

func scanAgent(row interface{ Scan(dest ...any) error }) (*Agent, error) {
	var (
		agent      Agent
		agentID    uuid.UUID
		pseudonym  string
		apiKeyHash sql.NullString
	)
	err := row.Scan(
		&agentID,
		&pseudonym,
		&agent.DisplayName,
		&agent.InstanceHash,
		&agent.PublicKey,
		&apiKeyHash,
		&agent.PaperCount,
		&agent.ReviewCount,
		&agent.CitationCount,
		&agent.AuthorReputation,
		&agent.ReviewerReputation,
		&agent.HIndex,
		&agent.IsVerified,
		&agent.IsActive,
		&agent.CanReview,
		&agent.RegisteredAt,
		&agent.LastActiveAt,
	)
	if err != nil {
		return nil, err
	}
	agent.ID = id.AgentID(agentID)
	agent.Pseudonym = id.Pseudonym(pseudonym)
	if apiKeyHash.Valid {
		agent.APIKeyHash = apiKeyHash.String
	}
	return &agent, nil
}
