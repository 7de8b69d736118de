package sequence

import "context"

// Well-known counter names.
const (
	Orders   = "orders"
	Coupons  = "coupons"
	Products = "products"
	Users    = "users"
)

// Generator issues monotonically increasing per-name identifiers. Next is
// atomic independent of any enclosing transaction: a value consumed by an
// aborted flow is permanently burned. Gaps are acceptable, duplicates are not.
type Generator interface {
	Next(ctx context.Context, name string) (int64, error)
}
