package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	// Mutate loads the order, applies fn under exclusive access and persists the
	// result when fn returns nil. It is the serialization point for guarded
	// status transitions: concurrent callers observe each other's committed
	// state inside fn.
	Mutate(ctx context.Context, id int64, fn func(*Order) error) (*Order, error)
	FindByIdempotency(ctx context.Context, userID int64, key string) (*Order, error)
	FindByGatewayRef(ctx context.Context, ref string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
}
