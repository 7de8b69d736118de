package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/shopspring/decimal"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	addresses, err := json.Marshal(u.Addresses)
	if err != nil {
		return fmt.Errorf("marshal addresses: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, addresses, order_count, total_spent,
		                   is_admin, is_agent, agent_active, delivered_count,
		                   created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Name, u.Email, addresses, u.OrderCount, u.TotalSpent,
		u.IsAdmin, u.IsDeliveryAgent, u.AgentActive, u.DeliveredCount,
		u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*domain.User, error) {
	var (
		u         domain.User
		addresses []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, addresses, order_count, total_spent,
		       is_admin, is_agent, agent_active, delivered_count,
		       created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &addresses, &u.OrderCount, &u.TotalSpent,
		&u.IsAdmin, &u.IsDeliveryAgent, &u.AgentActive, &u.DeliveredCount,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addresses, &u.Addresses); err != nil {
		return nil, fmt.Errorf("unmarshal addresses: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) FindAddress(ctx context.Context, userID, addressID int64) (domain.Address, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return domain.Address{}, err
	}
	return u.AddressByID(addressID)
}

func (r *UserRepository) RecordOrder(ctx context.Context, userID int64, amount decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET order_count = order_count + 1,
		                 total_spent = total_spent + $2,
		                 updated_at = NOW()
		WHERE id = $1`, userID, amount)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) RecordDelivery(ctx context.Context, agentID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET delivered_count = delivered_count + 1, updated_at = NOW()
		WHERE id = $1 AND is_agent`, agentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotAgent
	}
	return nil
}
