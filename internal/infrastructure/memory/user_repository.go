package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/shopspring/decimal"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[int64]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[int64]*domain.User),
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = u.Clone()
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *UserRepository) FindAddress(ctx context.Context, userID, addressID int64) (domain.Address, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return domain.Address{}, domain.ErrNotFound
	}
	return u.AddressByID(addressID)
}

func (r *UserRepository) RecordOrder(ctx context.Context, userID int64, amount decimal.Decimal) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.OrderCount++
	u.TotalSpent = u.TotalSpent.Add(amount)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) RecordDelivery(ctx context.Context, agentID int64) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[agentID]
	if !ok {
		return domain.ErrNotFound
	}
	u.DeliveredCount++
	u.UpdatedAt = time.Now().UTC()
	return nil
}
