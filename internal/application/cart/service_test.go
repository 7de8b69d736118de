package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freshmart/orderflow/internal/domain/auth"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	"github.com/freshmart/orderflow/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
)

func newTestService(t *testing.T) (*Service, *memory.InventoryRepository) {
	t.Helper()
	catalog := memory.NewInventoryRepository()
	p, err := dominv.NewProduct(1, "Milk", decimal.RequireFromString("3.50"), "", 10, time.Now())
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	if err := catalog.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return NewService(memory.NewCartRepository(), catalog, nil), catalog
}

var caller = auth.Principal{UserID: 42}

func TestViewEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	c, err := svc.View(context.Background(), caller)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !c.Empty() || c.UserID != 42 {
		t.Fatalf("unexpected cart: %+v", c)
	}
}

func TestSetItemSnapshotsCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.SetItem(ctx, caller, 1, 2)
	if err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(c.Items))
	}
	it := c.Items[0]
	if it.Name != "Milk" || it.Price.StringFixed(2) != "3.50" || it.Quantity != 2 {
		t.Fatalf("item = %+v", it)
	}

	// Updating the same product replaces the line.
	c, err = svc.SetItem(ctx, caller, 1, 5)
	if err != nil {
		t.Fatalf("SetItem update: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 5 {
		t.Fatalf("after update: %+v", c.Items)
	}
}

func TestSetItemZeroRemoves(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SetItem(ctx, caller, 1, 2); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	c, err := svc.SetItem(ctx, caller, 1, 0)
	if err != nil {
		t.Fatalf("SetItem remove: %v", err)
	}
	if !c.Empty() {
		t.Fatalf("cart not empty: %+v", c.Items)
	}
}

func TestSetItemUnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SetItem(context.Background(), caller, 99, 1); !errors.Is(err, dominv.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSetItemNegativeQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SetItem(context.Background(), caller, 1, -1); !errors.Is(err, dominv.ErrInvalidQuantity) {
		t.Fatalf("got %v, want ErrInvalidQuantity", err)
	}
}
