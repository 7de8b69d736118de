package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// SequenceGenerator allocates per-name monotonic ids with a single upsert,
// so concurrent callers serialize on the row and never see the same value.
type SequenceGenerator struct {
	db *sql.DB
}

func NewSequenceGenerator(db *sql.DB) *SequenceGenerator {
	return &SequenceGenerator{db: db}
}

func (g *SequenceGenerator) Next(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, errors.New("sequence: name is required")
	}

	var value int64
	err := g.db.QueryRowContext(ctx, `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, err
	}
	return value, nil
}
