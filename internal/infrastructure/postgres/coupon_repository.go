package postgres

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/freshmart/orderflow/internal/domain/coupon"
)

type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO coupons (id, code, type, value, min_order_amount, max_uses,
		                     used_count, expires_at, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Code, c.Type, c.Value, c.MinOrderAmount, c.MaxUses,
		c.UsedCount, c.ExpiresAt, c.Active, c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var c domain.Coupon
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, type, value, min_order_amount, max_uses,
		       used_count, expires_at, active, created_at, updated_at
		FROM coupons WHERE code = $1`, domain.Normalize(code),
	).Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MinOrderAmount, &c.MaxUses,
		&c.UsedCount, &c.ExpiresAt, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Redeem is a single conditional increment; the WHERE clause is the usage
// cap check, so two orders can never both consume the last slot.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		WHERE code = $1 AND active AND (max_uses = 0 OR used_count < max_uses)`,
		domain.Normalize(code))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, ferr := r.FindByCode(ctx, code); errors.Is(ferr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return domain.ErrUsageExhausted
	}
	return nil
}

// Restore decrements the usage counter, floored at zero.
func (r *CouponRepository) Restore(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE coupons SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		WHERE code = $1`, domain.Normalize(code))
	return err
}
