package citation

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresAllocator allocates sequences from a per-year counter row. The
// upsert increments under row lock and returns the new value, so there is no
// read-then-write window.
type PostgresAllocator struct {
	db *sql.DB
}

func NewPostgresAllocator(db *sql.DB) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

func (a *PostgresAllocator) Next(ctx context.Context, year int) (int, error) {
	query := `
		INSERT INTO citation_sequences (year, seq)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = citation_sequences.seq + 1
		RETURNING seq
	`
	var seq int
	if err := a.db.QueryRowContext(ctx, query, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("allocate citation sequence: %w", err)
	}
	return seq, nil
}
