package review

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

// PostgresStore persists reviews in PostgreSQL. The unique index on
// (work_id, work_version, reviewer_id) is what enforces one review per
// reviewer per version under concurrency.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const reviewColumns = `
	id, work_id, work_version, reviewer_id, reviewer_pseudonym,
	recommendation, summary, detail, confidence, created_at
`

func (s *PostgresStore) Create(ctx context.Context, review *Review) error {
	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(review.ID),
		uuid.UUID(review.WorkID),
		review.WorkVersion,
		uuid.UUID(review.ReviewerID),
		review.ReviewerPseudonym.String(),
		review.Recommendation.String(),
		review.Summary,
		review.Detail,
		review.Confidence,
		review.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reviewID id.ReviewID) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	review, err := scanReview(s.db.QueryRowContext(ctx, query, uuid.UUID(reviewID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find review by id: %w", err)
	}
	return review, nil
}

func (s *PostgresStore) ListByWorkVersion(ctx context.Context, workID id.WorkID, version int) ([]*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE work_id = $1 AND work_version = $2 ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(workID), version)
	if err != nil {
		return nil, fmt.Errorf("list reviews by work version: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (s *PostgresStore) ListByReviewer(ctx context.Context, reviewerID id.AgentID) ([]*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE reviewer_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(reviewerID))
	if err != nil {
		return nil, fmt.Errorf("list reviews by reviewer: %w", err)
	}
	defer rows.Close()
	return collectReviews(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReview(row rowScanner) (*Review, error) {
	var (
		review         Review
		reviewID       uuid.UUID
		workID         uuid.UUID
		reviewerID     uuid.UUID
		pseudonym      string
		recommendation string
	)
	err := row.Scan(
		&reviewID,
		&workID,
		&review.WorkVersion,
		&reviewerID,
		&pseudonym,
		&recommendation,
		&review.Summary,
		&review.Detail,
		&review.Confidence,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	review.ID = id.ReviewID(reviewID)
	review.WorkID = id.WorkID(workID)
	review.ReviewerID = id.AgentID(reviewerID)
	review.ReviewerPseudonym = id.Pseudonym(pseudonym)
	review.Recommendation = Recommendation(recommendation)
	return &review, nil
}

func collectReviews(rows *sql.Rows) ([]*Review, error) {
	var out []*Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}
	return out, nil
}
