package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/freshmart/orderflow/internal/domain/inventory"
)

type InventoryRepository struct {
	mu       sync.RWMutex
	products map[int64]*domain.Product
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		products: make(map[int64]*domain.Product),
	}
}

func (r *InventoryRepository) Create(ctx context.Context, p *domain.Product) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return domain.ErrConflict
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *InventoryRepository) Get(ctx context.Context, productID int64) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *InventoryRepository) List(ctx context.Context) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InventoryRepository) Restock(ctx context.Context, productID int64, quantity int) (*domain.Product, error) {
	_ = ctx
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	p.Stock += quantity
	p.UpdatedAt = time.Now().UTC()
	return p.Clone(), nil
}

// Reserve checks every line before decrementing anything, all under one write
// lock, so a shortfall leaves stock untouched and two concurrent reservations
// for the last unit cannot both succeed.
func (r *InventoryRepository) Reserve(ctx context.Context, lines []domain.Line) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		if line.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
		p, ok := r.products[line.ProductID]
		if !ok {
			return domain.ErrNotFound
		}
		if p.Stock < line.Quantity {
			return &domain.ShortfallError{ProductID: line.ProductID, Available: p.Stock}
		}
	}

	now := time.Now().UTC()
	for _, line := range lines {
		p := r.products[line.ProductID]
		p.Stock -= line.Quantity
		p.UpdatedAt = now
	}
	return nil
}

// Release restores previously reserved stock. Unknown products are skipped
// rather than failed: release must never block a cancellation.
func (r *InventoryRepository) Release(ctx context.Context, lines []domain.Line) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, line := range lines {
		p, ok := r.products[line.ProductID]
		if !ok || line.Quantity <= 0 {
			continue
		}
		p.Stock += line.Quantity
		p.UpdatedAt = now
	}
	return nil
}
