package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/freshmart/orderflow/internal/domain/order"
)

const orderColumns = `id, code, user_id, idempotency_key, items, subtotal,
	shipping_fee, discount, total, coupon_code, payment_method, payment_status,
	payment_ref, gateway_ref, status, delivery_status, agent_id, delivery_log,
	address, created_at, updated_at, delivery_due`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	deliveryLog, err := json.Marshal(o.DeliveryLog)
	if err != nil {
		return fmt.Errorf("marshal delivery log: %w", err)
	}
	address, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("marshal address: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		o.ID, o.Code, o.UserID, o.IdempotencyKey, items, o.Subtotal,
		o.ShippingFee, o.Discount, o.Total, o.CouponCode, o.PaymentMethod, o.PaymentStatus,
		o.PaymentRef, o.GatewayRef, o.Status, o.DeliveryStatus, o.AgentID, deliveryLog,
		address, o.CreatedAt, o.UpdatedAt, o.DeliveryDue,
	)
	if isUniqueViolation(err) {
		return domain.ErrConflict
	}
	return err
}

func (r *OrderRepository) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// Mutate locks the row, applies fn to the loaded order and writes the result
// back in the same transaction. The row lock is what makes guarded
// transitions single-winner across instances.
func (r *OrderRepository) Mutate(ctx context.Context, id int64, fn func(*domain.Order) error) (*domain.Order, error) {
	var out *domain.Order
	err := WithRetry(ctx, r.db, DefaultTxOptions(), func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}

		deliveryLog, err := json.Marshal(o.DeliveryLog)
		if err != nil {
			return fmt.Errorf("marshal delivery log: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET
				payment_status = $2, payment_ref = $3, gateway_ref = $4,
				status = $5, delivery_status = $6, agent_id = $7,
				delivery_log = $8, updated_at = $9
			WHERE id = $1`,
			o.ID, o.PaymentStatus, o.PaymentRef, o.GatewayRef,
			o.Status, o.DeliveryStatus, o.AgentID,
			deliveryLog, o.UpdatedAt,
		); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	if key == "" {
		return nil, domain.ErrNotFound
	}
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`,
		userID, key))
}

func (r *OrderRepository) FindByGatewayRef(ctx context.Context, ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, domain.ErrNotFound
	}
	return scanOrder(r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE gateway_ref = $1`, ref))
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o           domain.Order
		items       []byte
		deliveryLog []byte
		address     []byte
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.UserID, &o.IdempotencyKey, &items, &o.Subtotal,
		&o.ShippingFee, &o.Discount, &o.Total, &o.CouponCode, &o.PaymentMethod, &o.PaymentStatus,
		&o.PaymentRef, &o.GatewayRef, &o.Status, &o.DeliveryStatus, &o.AgentID, &deliveryLog,
		&address, &o.CreatedAt, &o.UpdatedAt, &o.DeliveryDue,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(deliveryLog, &o.DeliveryLog); err != nil {
		return nil, fmt.Errorf("unmarshal delivery log: %w", err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("unmarshal address: %w", err)
	}
	return &o, nil
}
