package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/freshmart/orderflow/internal/domain/coupon"
)

type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]*domain.Coupon
}

func NewCouponRepository() *CouponRepository {
	return &CouponRepository{
		coupons: make(map[string]*domain.Coupon),
	}
}

func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.coupons[c.Code]; exists {
		return domain.ErrConflict
	}
	r.coupons[c.Code] = c.Clone()
	return nil
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[domain.Normalize(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c.Clone(), nil
}

// Redeem is a conditional atomic increment: the cap check and the bump happen
// under one lock so the last permitted use goes to exactly one order.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[domain.Normalize(code)]
	if !ok {
		return domain.ErrNotFound
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return domain.ErrUsageExhausted
	}
	c.UsedCount++
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *CouponRepository) Restore(ctx context.Context, code string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[domain.Normalize(code)]
	if !ok {
		return domain.ErrNotFound
	}
	if c.UsedCount > 0 {
		c.UsedCount--
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}
