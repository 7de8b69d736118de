package order

import (
	"context"
	"fmt"
	"time"

	domcart "github.com/freshmart/orderflow/internal/domain/cart"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domain "github.com/freshmart/orderflow/internal/domain/order"
	"github.com/freshmart/orderflow/internal/domain/sequence"
	domuser "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/shopspring/decimal"
)

// ProductNotFoundError lists cart lines whose product has disappeared from
// the catalog between carting and checkout.
type ProductNotFoundError struct {
	IDs []int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("order: products no longer available: %v", e.IDs)
}

// Evaluator is the coupon evaluation port consumed during assembly.
type Evaluator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error)
}

// AssemblerConfig carries the pricing policy knobs.
type AssemblerConfig struct {
	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	DeliverySLA           time.Duration
}

// Assembler converts a cart snapshot plus shipping address into an immutable
// order record with computed totals. Prices and names are taken from the
// catalog at assembly time, not from the cart's cached copies; what it bakes
// into the order is the authoritative snapshot.
type Assembler struct {
	catalog dominv.Repository
	seq     sequence.Generator
	coupons Evaluator
	cfg     AssemblerConfig
}

func NewAssembler(catalog dominv.Repository, seq sequence.Generator, coupons Evaluator, cfg AssemblerConfig) *Assembler {
	return &Assembler{catalog: catalog, seq: seq, coupons: coupons, cfg: cfg}
}

func (a *Assembler) Assemble(ctx context.Context, c *domcart.Cart, addr domuser.Address, couponCode, paymentMethod string, now time.Time) (*domain.Order, error) {
	if c.Empty() {
		return nil, domcart.ErrEmpty
	}

	items := make([]domain.LineItem, 0, len(c.Items))
	subtotal := decimal.Zero
	var missing []int64

	for _, line := range c.Items {
		product, err := a.catalog.Get(ctx, line.ProductID)
		if err != nil {
			missing = append(missing, line.ProductID)
			continue
		}
		items = append(items, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  line.Quantity,
			ImageURL:  product.ImageURL,
		})
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	if len(missing) > 0 {
		return nil, &ProductNotFoundError{IDs: missing}
	}

	shipping := a.cfg.ShippingFlatFee
	if subtotal.GreaterThan(a.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount := decimal.Zero
	if couponCode != "" {
		d, err := a.coupons.Validate(ctx, couponCode, subtotal, now)
		if err != nil {
			return nil, err
		}
		discount = d
	}

	id, err := a.seq.Next(ctx, sequence.Orders)
	if err != nil {
		return nil, fmt.Errorf("order: allocate id: %w", err)
	}

	ord, err := domain.New(id, c.UserID, items, domain.Address{
		ID:         addr.ID,
		Line1:      addr.Line1,
		City:       addr.City,
		PostalCode: addr.PostalCode,
	}, paymentMethod, subtotal, shipping, discount, now, now.Add(a.cfg.DeliverySLA))
	if err != nil {
		return nil, err
	}
	if couponCode != "" {
		ord.CouponCode = couponCode
	}
	return ord, nil
}
