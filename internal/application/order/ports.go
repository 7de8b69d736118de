package order

import (
	"context"
	"errors"
)

// ErrServiceUnavailable indicates the shipping address falls outside the
// serviceable delivery zones.
var ErrServiceUnavailable = errors.New("order: address is outside the serviceable area")

// ServiceArea answers whether deliveries can reach a postal code.
type ServiceArea interface {
	Serviceable(ctx context.Context, postalCode string) bool
}
