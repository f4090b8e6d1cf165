package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"scholar/internal/policy"
	"scholar/internal/safety"
	id "scholar/pkg/domain"
	"scholar/pkg/platform/sentinel"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore persists works in PostgreSQL. Execute runs its callbacks
// inside a transaction holding a row lock, which is what gives concurrent
// consensus evaluations a single winner.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const workColumns = `
	id, author_id, author_pseudonym, title, abstract, body, keywords, subject,
	status, version, content_hash, risk_level, pii_scanned, secrets_scanned,
	requirements, citation_id, created_at, updated_at, published_at
`

func (s *PostgresStore) Create(ctx context.Context, work *Work) error {
	requirements, err := json.Marshal(work.Requirements)
	if err != nil {
		return fmt.Errorf("marshal requirements: %w", err)
	}
	query := `
		INSERT INTO works (` + workColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''), $17, $18, $19)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(work.ID),
		uuid.UUID(work.AuthorID),
		work.AuthorPseudonym.String(),
		work.Title,
		work.Abstract,
		work.Body,
		pq.Array(work.Keywords),
		work.Subject.String(),
		work.Status.String(),
		work.Version,
		work.ContentHash,
		string(work.RiskLevel),
		work.PIIScanned,
		work.SecretsScanned,
		requirements,
		work.CitationID,
		work.CreatedAt,
		work.UpdatedAt,
		work.PublishedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create work: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, workID id.WorkID) (*Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE id = $1`
	work, err := scanWork(s.db.QueryRowContext(ctx, query, uuid.UUID(workID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find work by id: %w", err)
	}
	return work, nil
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string) (*Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE content_hash = $1 ORDER BY created_at LIMIT 1`
	work, err := scanWork(s.db.QueryRowContext(ctx, query, hash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find work by content hash: %w", err)
	}
	return work, nil
}

func (s *PostgresStore) ListByAuthor(ctx context.Context, authorID id.AgentID) ([]*Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE author_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(authorID))
	if err != nil {
		return nil, fmt.Errorf("list works by author: %w", err)
	}
	defer rows.Close()
	return collectWorks(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses []Status) ([]*Work, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.String()
	}
	query := `SELECT ` + workColumns + ` FROM works WHERE status = ANY($1) ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("list works by status: %w", err)
	}
	defer rows.Close()
	return collectWorks(rows)
}

// Execute locks the work row, applies validate and mutate, and writes the
// mutable columns back in the same transaction.
func (s *PostgresStore) Execute(ctx context.Context, workID id.WorkID, validate func(*Work) error, mutate func(*Work)) (*Work, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin work transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + workColumns + ` FROM works WHERE id = $1 FOR UPDATE`
	work, err := scanWork(tx.QueryRowContext(ctx, query, uuid.UUID(workID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock work: %w", err)
	}

	if err := validate(work); err != nil {
		return nil, err
	}
	mutate(work)

	requirements, err := json.Marshal(work.Requirements)
	if err != nil {
		return nil, fmt.Errorf("marshal requirements: %w", err)
	}
	update := `
		UPDATE works SET
			title = $2, abstract = $3, body = $4, keywords = $5,
			status = $6, version = $7, content_hash = $8, risk_level = $9,
			pii_scanned = $10, secrets_scanned = $11, requirements = $12,
			citation_id = NULLIF($13, ''), updated_at = $14, published_at = $15
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(work.ID),
		work.Title,
		work.Abstract,
		work.Body,
		pq.Array(work.Keywords),
		work.Status.String(),
		work.Version,
		work.ContentHash,
		string(work.RiskLevel),
		work.PIIScanned,
		work.SecretsScanned,
		requirements,
		work.CitationID,
		work.UpdatedAt,
		work.PublishedAt,
	); err != nil {
		return nil, fmt.Errorf("update work: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit work transaction: %w", err)
	}
	return work, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWork(row rowScanner) (*Work, error) {
	var (
		work         Work
		workID       uuid.UUID
		authorID     uuid.UUID
		pseudonym    string
		subject      string
		status       string
		riskLevel    string
		requirements []byte
		citationID   sql.NullString
		publishedAt  sql.NullTime
	)
	err := row.Scan(
		&workID,
		&authorID,
		&pseudonym,
		&work.Title,
		&work.Abstract,
		&work.Body,
		pq.Array(&work.Keywords),
		&subject,
		&status,
		&work.Version,
		&work.ContentHash,
		&riskLevel,
		&work.PIIScanned,
		&work.SecretsScanned,
		&requirements,
		&citationID,
		&work.CreatedAt,
		&work.UpdatedAt,
		&publishedAt,
	)
	if err != nil {
		return nil, err
	}

	work.ID = id.WorkID(workID)
	work.AuthorID = id.AgentID(authorID)
	work.AuthorPseudonym = id.Pseudonym(pseudonym)
	work.Subject = id.SubjectDomain(subject)
	work.Status = Status(status)
	work.RiskLevel = safety.RiskLevel(riskLevel)
	if citationID.Valid {
		work.CitationID = citationID.String
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		work.PublishedAt = &t
	}
	if len(requirements) > 0 {
		var reqs policy.Requirements
		if err := json.Unmarshal(requirements, &reqs); err != nil {
			return nil, fmt.Errorf("unmarshal requirements: %w", err)
		}
		work.Requirements = reqs
	}
	return &work, nil
}

func collectWorks(rows *sql.Rows) ([]*Work, error) {
	var out []*Work
	for rows.Next() {
		work, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work: %w", err)
		}
		out = append(out, work)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate works: %w", err)
	}
	return out, nil
}
