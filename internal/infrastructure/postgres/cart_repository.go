package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/freshmart/orderflow/internal/domain/cart"
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	var (
		c     domain.Cart
		items []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, items, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &items, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, fmt.Errorf("unmarshal cart items: %w", err)
	}
	return &c, nil
}

func (r *CartRepository) Put(ctx context.Context, c *domain.Cart) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal cart items: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET items = $2, updated_at = $3`,
		c.UserID, items, c.UpdatedAt)
	return err
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE carts SET items = '[]', updated_at = NOW() WHERE user_id = $1`, userID)
	return err
}
