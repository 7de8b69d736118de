package inventory

import "context"

type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, productID int64) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	// Restock increases stock for a single product outside order flows.
	Restock(ctx context.Context, productID int64, quantity int) (*Product, error)

	// Reserve atomically checks and decrements stock for every line. It is
	// all-or-nothing: on any shortfall no stock is mutated and a *ShortfallError
	// identifies the failing product. This check-and-decrement is the
	// serialization point for concurrent orders competing for the last units.
	Reserve(ctx context.Context, lines []Line) error
	// Release is the exact inverse of Reserve. Stock only increases, so it
	// never fails on availability; callers guarantee single application via
	// order status guards.
	Release(ctx context.Context, lines []Line) error
}
