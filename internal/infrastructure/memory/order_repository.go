package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/freshmart/orderflow/internal/domain/order"
)

type OrderRepository struct {
	mu          sync.RWMutex
	orders      map[int64]*domain.Order
	idempotency map[string]int64
	gatewayRefs map[string]int64
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[int64]*domain.Order),
		idempotency: make(map[string]int64),
		gatewayRefs: make(map[string]int64),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == 0 {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	if key := idemKey(order.UserID, order.IdempotencyKey); key != "" {
		if _, exists := r.idempotency[key]; exists {
			return domain.ErrConflict
		}
	}

	r.orders[order.ID] = order.Clone()
	if key := idemKey(order.UserID, order.IdempotencyKey); key != "" {
		r.idempotency[key] = order.ID
	}
	if order.GatewayRef != "" {
		r.gatewayRefs[order.GatewayRef] = order.ID
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

// Mutate applies fn while holding the write lock, so guarded transitions see
// the latest committed state and concurrent attempts have exactly one winner.
func (r *OrderRepository) Mutate(ctx context.Context, id int64, fn func(*domain.Order) error) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	r.orders[id] = next
	if next.GatewayRef != "" {
		r.gatewayRefs[next.GatewayRef] = next.ID
	}
	return next.Clone(), nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idemKey(userID, key)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[id]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByGatewayRef(ctx context.Context, ref string) (*domain.Order, error) {
	_ = ctx
	if ref == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.gatewayRefs[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, found := r.orders[id]
	if !found {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func idemKey(userID int64, key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%d|%s", userID, key)
}
