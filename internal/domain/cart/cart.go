package cart

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("cart: not found")
	ErrEmpty    = errors.New("cart: empty")
)

// Item carries a cached name/price copy alongside the product reference. The
// cached copy is display-only; order assembly re-reads the catalog for the
// authoritative snapshot.
type Item struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

type Cart struct {
	UserID    int64
	Items     []Item
	UpdatedAt time.Time
}

func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = append([]Item(nil), c.Items...)
	return &clone
}

type Repository interface {
	Get(ctx context.Context, userID int64) (*Cart, error)
	Put(ctx context.Context, c *Cart) error
	// Clear empties the cart but keeps the record, so the user's next add
	// starts from the same cart identity.
	Clear(ctx context.Context, userID int64) error
}
