package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/freshmart/orderflow/internal/domain/cart"
)

type CartRepository struct {
	mu    sync.RWMutex
	carts map[int64]*domain.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[int64]*domain.Cart),
	}
}

func (r *CartRepository) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Put(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[c.UserID] = c.Clone()
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[userID]
	if !ok {
		return nil
	}
	c.Items = nil
	c.UpdatedAt = time.Now().UTC()
	return nil
}
