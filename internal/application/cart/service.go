package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/orderflow/internal/application/instrument"
	"github.com/freshmart/orderflow/internal/domain/auth"
	domain "github.com/freshmart/orderflow/internal/domain/cart"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	"github.com/freshmart/orderflow/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const useCaseSetItem = "cart.set_item"

// Service maintains the per-user cart. Item rows cache the catalog name and
// price for display; checkout re-reads the catalog regardless.
type Service struct {
	carts   domain.Repository
	catalog dominv.Repository
	tel     observability.Telemetry
	clock   func() time.Time
}

func NewService(carts domain.Repository, catalog dominv.Repository, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		carts:   carts,
		catalog: catalog,
		tel:     tel,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// View returns the caller's cart, empty if none exists yet.
func (s *Service) View(ctx context.Context, p auth.Principal) (*domain.Cart, error) {
	c, err := s.carts.Get(ctx, p.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.Cart{UserID: p.UserID}, nil
	}
	return c, err
}

// SetItem sets the quantity for a product in the caller's cart. Quantity 0
// removes the line.
func (s *Service) SetItem(ctx context.Context, p auth.Principal, productID int64, quantity int) (_ *domain.Cart, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseSetItem,
		attribute.Int64("product.id", productID),
		attribute.Int("cart.quantity", quantity),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if quantity < 0 {
		statusText = "QUANTITY_INVALID"
		return nil, dominv.ErrInvalidQuantity
	}

	c, err := s.carts.Get(ctx, p.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		c = &domain.Cart{UserID: p.UserID}
	} else if err != nil {
		statusText = "CART_LOOKUP_FAILED"
		return nil, fmt.Errorf("cart: load: %w", err)
	}

	if quantity == 0 {
		c.Items = removeItem(c.Items, productID)
	} else {
		product, perr := s.catalog.Get(ctx, productID)
		if perr != nil {
			statusText = "PRODUCT_NOT_FOUND"
			return nil, perr
		}
		c.Items = upsertItem(c.Items, domain.Item{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  quantity,
		})
	}
	c.UpdatedAt = s.clock()

	if err = s.carts.Put(ctx, c); err != nil {
		statusText = "CART_SAVE_FAILED"
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return c, nil
}

// Clear empties the caller's cart.
func (s *Service) Clear(ctx context.Context, p auth.Principal) error {
	return s.carts.Clear(ctx, p.UserID)
}

func upsertItem(items []domain.Item, item domain.Item) []domain.Item {
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func removeItem(items []domain.Item, productID int64) []domain.Item {
	out := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}
