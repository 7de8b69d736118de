package order

import (
	"context"
	"errors"
	"testing"
	"time"

	appcoupon "github.com/freshmart/orderflow/internal/application/coupon"
	domcart "github.com/freshmart/orderflow/internal/domain/cart"
	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domuser "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/freshmart/orderflow/internal/infrastructure/memory"

	"github.com/shopspring/decimal"
)

var testClock = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testAssembler(t *testing.T) (*Assembler, *memory.InventoryRepository, *memory.CouponRepository) {
	t.Helper()
	catalog := memory.NewInventoryRepository()
	coupons := memory.NewCouponRepository()
	seq := memory.NewSequenceGenerator()
	evaluator := appcoupon.NewService(coupons, seq, nil)

	a := NewAssembler(catalog, seq, evaluator, AssemblerConfig{
		ShippingFlatFee:       decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		DeliverySLA:           48 * time.Hour,
	})
	return a, catalog, coupons
}

func seedProduct(t *testing.T, catalog *memory.InventoryRepository, id int64, name, price string, stock int) {
	t.Helper()
	p, err := dominv.NewProduct(id, name, decimal.RequireFromString(price), "", stock, testClock)
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	if err := catalog.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
}

func seedCoupon(t *testing.T, coupons *memory.CouponRepository, code string, typ domcoupon.Type, value, minOrder string, maxUses int) {
	t.Helper()
	c, err := domcoupon.New(1, code, typ,
		decimal.RequireFromString(value), decimal.RequireFromString(minOrder),
		maxUses, testClock.Add(30*24*time.Hour), testClock)
	if err != nil {
		t.Fatalf("new coupon: %v", err)
	}
	if err := coupons.Create(context.Background(), c); err != nil {
		t.Fatalf("create coupon: %v", err)
	}
}

func testCart(items ...domcart.Item) *domcart.Cart {
	return &domcart.Cart{UserID: 42, Items: items}
}

var testAddr = domuser.Address{ID: 1, Line1: "1 Main St", City: "Springfield", PostalCode: "12345"}

func TestAssembleFlatShippingFee(t *testing.T) {
	a, catalog, _ := testAssembler(t)
	seedProduct(t, catalog, 1, "Basket", "30.00", 10)

	ord, err := a.Assemble(context.Background(),
		testCart(domcart.Item{ProductID: 1, Quantity: 1}),
		testAddr, "", "card", testClock)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if ord.Subtotal.StringFixed(2) != "30.00" {
		t.Fatalf("subtotal = %s, want 30.00", ord.Subtotal.StringFixed(2))
	}
	if ord.ShippingFee.StringFixed(2) != "5.99" {
		t.Fatalf("shipping = %s, want 5.99", ord.ShippingFee.StringFixed(2))
	}
	if ord.Total.StringFixed(2) != "35.99" {
		t.Fatalf("total = %s, want 35.99", ord.Total.StringFixed(2))
	}
	if !ord.DeliveryDue.Equal(testClock.Add(48 * time.Hour)) {
		t.Fatalf("delivery due = %v", ord.DeliveryDue)
	}
}

func TestAssembleFreeShippingAboveThreshold(t *testing.T) {
	a, catalog, _ := testAssembler(t)
	seedProduct(t, catalog, 1, "Crate", "25.01", 10)

	// 50.02 > 50: free shipping. Exactly 50 would still pay the fee.
	ord, err := a.Assemble(context.Background(),
		testCart(domcart.Item{ProductID: 1, Quantity: 2}),
		testAddr, "", "card", testClock)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !ord.ShippingFee.IsZero() {
		t.Fatalf("shipping = %s, want 0", ord.ShippingFee.StringFixed(2))
	}
}

func TestAssembleThresholdBoundaryStillCharges(t *testing.T) {
	a, catalog, _ := testAssembler(t)
	seedProduct(t, catalog, 1, "Crate", "50.00", 10)

	ord, err := a.Assemble(context.Background(),
		testCart(domcart.Item{ProductID: 1, Quantity: 1}),
		testAddr, "", "card", testClock)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if ord.ShippingFee.StringFixed(2) != "5.99" {
		t.Fatalf("shipping at exactly 50 = %s, want 5.99", ord.ShippingFee.StringFixed(2))
	}
}

func TestAssembleAppliesPercentageCoupon(t *testing.T) {
	a, catalog, coupons := testAssembler(t)
	seedProduct(t, catalog, 1, "Basket", "30.00", 10)
	seedCoupon(t, coupons, "SAVE10", domcoupon.TypePercentage, "10", "20", 0)

	ord, err := a.Assemble(context.Background(),
		testCart(domcart.Item{ProductID: 1, Quantity: 1}),
		testAddr, "SAVE10", "card", testClock)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if ord.Discount.StringFixed(2) != "3.00" {
		t.Fatalf("discount = %s, want 3.00", ord.Discount.StringFixed(2))
	}
	// 30 + 5.99 - 3 = 32.99
	if ord.Total.StringFixed(2) != "32.99" {
		t.Fatalf("total = %s, want 32.99", ord.Total.StringFixed(2))
	}
	want := ord.Subtotal.Add(ord.ShippingFee).Sub(ord.Discount)
	if !ord.Total.Equal(want) {
		t.Fatalf("total invariant broken: %s != %s", ord.Total, want)
	}
}

func TestAssembleFixedCouponClamped(t *testing.T) {
	a, catalog, coupons := testAssembler(t)
	seedProduct(t, catalog, 1, "Snack", "4.00", 10)
	seedCoupon(t, coupons, "BIG50", domcoupon.TypeFixed, "50", "0", 0)

	ord, err := a.Assemble(context.Background(),
		testCart(domcart.Item{ProductID: 1, Quantity: 1}),
		testAddr, "BIG50", "card", testClock)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if ord.Discount.StringFixed(2) != "4.00" {
		t.Fatalf("discount = %s, want clamp to 4.00", ord.Discount.StringFixed(2))
	}
	if ord.Total.IsNegative() {
		t.Fatalf("total went negative: %s", ord.Total)
	}
}

func TestAssembleEmptyCart(t *testing.T) {
	a, _, _ := testAssembler(t)
	if _, err := a.Assemble(context.Background(), testCart(), testAddr, "", "card", testClock); !errors.Is(err, domcart.ErrEmpty) {
		t.Fatalf("got %v, want ErrEmpty", err)
	}
}

func TestAssembleReportsMissingProducts(t *testing.T) {
	a, catalog, _ := testAssembler(t)
	seedProduct(t, catalog, 1, "Basket", "30.00", 10)

	_, err := a.Assemble(context.Background(),
		testCart(
			domcart.Item{ProductID: 1, Quantity: 1},
			domcart.Item{ProductID: 77, Quantity: 1},
			domcart.Item{ProductID: 78, Quantity: 2},
		),
		testAddr, "", "card", testClock)

	var missing *ProductNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want ProductNotFoundError", err)
	}
	if len(missing.IDs) != 2 || missing.IDs[0] != 77 || missing.IDs[1] != 78 {
		t.Fatalf("missing ids = %v, want [77 78]", missing.IDs)
	}
}

func TestAssembleSnapshotsCatalogCurrentPrice(t *testing.T) {
	a, catalog, _ := testAssembler(t)
	seedProduct(t, catalog, 1, "Basket", "30.00", 10)

	// Cart carries a stale cached price; the order must use the catalog's.
	ord, err := a.Assemble(context.Background(),
		testCart(domcart.Item{ProductID: 1, Name: "Old name", Price: decimal.NewFromInt(1), Quantity: 1}),
		testAddr, "", "card", testClock)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if ord.Items[0].UnitPrice.StringFixed(2) != "30.00" || ord.Items[0].Name != "Basket" {
		t.Fatalf("snapshot = %s/%q, want catalog-current 30.00/Basket",
			ord.Items[0].UnitPrice.StringFixed(2), ord.Items[0].Name)
	}
}
