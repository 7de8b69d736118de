package user

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
	FindAddress(ctx context.Context, userID, addressID int64) (Address, error)
	// RecordOrder increments the user's order count and lifetime spend.
	RecordOrder(ctx context.Context, userID int64, amount decimal.Decimal) error
	// RecordDelivery increments a delivery agent's completed-delivery counter.
	RecordDelivery(ctx context.Context, agentID int64) error
}
