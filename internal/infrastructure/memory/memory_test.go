package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domorder "github.com/freshmart/orderflow/internal/domain/order"

	"github.com/shopspring/decimal"
)

func TestSequenceGeneratorUniqueUnderConcurrency(t *testing.T) {
	g := NewSequenceGenerator()

	const n = 100
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := g.Next(context.Background(), "orders")
			if err != nil {
				t.Errorf("Next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %d", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("issued %d unique ids, want %d", len(seen), n)
	}
}

func TestSequenceGeneratorIndependentNames(t *testing.T) {
	g := NewSequenceGenerator()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		id, err := g.Next(ctx, "orders")
		if err != nil || id != i {
			t.Fatalf("orders #%d = %d, %v", i, id, err)
		}
	}
	id, err := g.Next(ctx, "coupons")
	if err != nil || id != 1 {
		t.Fatalf("coupons starts at %d, %v; want 1", id, err)
	}
}

func TestReserveAllOrNothing(t *testing.T) {
	repo := NewInventoryRepository()
	ctx := context.Background()
	now := time.Now()

	for id, stock := range map[int64]int{1: 10, 2: 1} {
		p, err := dominv.NewProduct(id, "p", decimal.NewFromInt(2), "", stock, now)
		if err != nil {
			t.Fatalf("new product: %v", err)
		}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	err := repo.Reserve(ctx, []dominv.Line{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 2},
	})
	var shortfall *dominv.ShortfallError
	if !errors.As(err, &shortfall) {
		t.Fatalf("got %v, want ShortfallError", err)
	}
	if shortfall.ProductID != 2 || shortfall.Available != 1 {
		t.Fatalf("shortfall = %+v", shortfall)
	}

	// Nothing was decremented, including the satisfiable line.
	p1, _ := repo.Get(ctx, 1)
	if p1.Stock != 10 {
		t.Fatalf("product 1 stock = %d, want 10", p1.Stock)
	}
}

func TestReserveConcurrentLastUnit(t *testing.T) {
	repo := NewInventoryRepository()
	ctx := context.Background()

	p, err := dominv.NewProduct(1, "melon", decimal.NewFromInt(9), "", 1, time.Now())
	if err != nil {
		t.Fatalf("new product: %v", err)
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Reserve(ctx, []dominv.Line{{ProductID: 1, Quantity: 1}}); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}
	got, _ := repo.Get(ctx, 1)
	if got.Stock != 0 {
		t.Fatalf("stock = %d, want 0", got.Stock)
	}
}

func TestCouponRedeemCapConcurrent(t *testing.T) {
	repo := NewCouponRepository()
	ctx := context.Background()
	now := time.Now()

	c, err := domcoupon.New(1, "TWICE", domcoupon.TypeFixed, decimal.NewFromInt(5), decimal.Zero, 2, now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("new coupon: %v", err)
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Redeem(ctx, "TWICE"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 2 {
		t.Fatalf("redeems = %d, want 2", successes)
	}
}

func TestCouponRestoreFlooredAtZero(t *testing.T) {
	repo := NewCouponRepository()
	ctx := context.Background()
	now := time.Now()

	c, _ := domcoupon.New(1, "ONCE", domcoupon.TypeFixed, decimal.NewFromInt(5), decimal.Zero, 1, now.Add(time.Hour), now)
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Restore(ctx, "ONCE"); err != nil {
		t.Fatalf("restore unused: %v", err)
	}
	got, _ := repo.FindByCode(ctx, "ONCE")
	if got.UsedCount != 0 {
		t.Fatalf("used count = %d, want 0", got.UsedCount)
	}
}

func TestOrderMutateSingleWinnerCancel(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	now := time.Now()

	ord, err := domorder.New(1, 42,
		[]domorder.LineItem{{ProductID: 1, Name: "p", UnitPrice: decimal.NewFromInt(2), Quantity: 1}},
		domorder.Address{}, "card",
		decimal.NewFromInt(2), decimal.Zero, decimal.Zero, now, now)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	if err := repo.Insert(ctx, ord); err != nil {
		t.Fatalf("insert: %v", err)
	}

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, 1, func(o *domorder.Order) error {
				return o.Cancel(42, now)
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !errors.Is(err, domorder.ErrAlreadyCancelled) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestOrderIdempotencyLookup(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()
	now := time.Now()

	ord, err := domorder.New(1, 42,
		[]domorder.LineItem{{ProductID: 1, Name: "p", UnitPrice: decimal.NewFromInt(2), Quantity: 1}},
		domorder.Address{}, "card",
		decimal.NewFromInt(2), decimal.Zero, decimal.Zero, now, now)
	if err != nil {
		t.Fatalf("new order: %v", err)
	}
	ord.IdempotencyKey = "req-1"
	if err := repo.Insert(ctx, ord); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err := repo.FindByIdempotency(ctx, 42, "req-1")
	if err != nil || found.ID != 1 {
		t.Fatalf("find = %v, %v", found, err)
	}
	if _, err := repo.FindByIdempotency(ctx, 43, "req-1"); !errors.Is(err, domorder.ErrNotFound) {
		t.Fatalf("other user: got %v, want ErrNotFound", err)
	}

	dup := ord.Clone()
	dup.ID = 2
	if err := repo.Insert(ctx, dup); !errors.Is(err, domorder.ErrConflict) {
		t.Fatalf("duplicate key insert: got %v, want ErrConflict", err)
	}
}
