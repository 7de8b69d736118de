package coupon

import "context"

type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// Redeem atomically increments the usage counter, failing with
	// ErrUsageExhausted when the cap would be exceeded. It is called inside the
	// order creation flow so two concurrent orders cannot both consume the last
	// permitted use.
	Redeem(ctx context.Context, code string) error
	// Restore is the inverse of Redeem, applied on cancellation rollback. The
	// counter is floored at zero; restoring an unused coupon is a no-op.
	Restore(ctx context.Context, code string) error
}
