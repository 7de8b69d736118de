package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/freshmart/orderflow/internal/domain/outbox"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{}, 2)
	handler := func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		got = append(got, e.EventName())
		mu.Unlock()
		done <- struct{}{}
		return nil
	}
	bus.Subscribe("order.placed", handler)
	bus.Subscribe("order.placed", handler)
	bus.Subscribe("order.cancelled", handler)

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	if err := bus.Publish(context.Background(), testEvent{name: "order.placed"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handlers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2 (both order.placed subscribers, not the cancelled one)", len(got))
	}
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := NewBus(nil)

	done := make(chan struct{}, 1)
	bus.Subscribe("boom", func(context.Context, domoutbox.Event) error {
		panic("handler exploded")
	})
	bus.Subscribe("boom", func(context.Context, domoutbox.Event) error {
		done <- struct{}{}
		return nil
	})

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	if err := bus.Publish(context.Background(), testEvent{name: "boom"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panic in one handler starved the others")
	}
}

func TestBusPublishNilEvent(t *testing.T) {
	bus := NewBus(nil)
	if err := bus.Publish(context.Background(), nil); err != nil {
		t.Fatalf("nil event: %v", err)
	}
}

func TestBusPublishAbortsOnCancelledContext(t *testing.T) {
	bus := NewBus(nil, WithQueueSize(1))
	// Not started: the queue fills and the second publish must respect ctx.
	if err := bus.Publish(context.Background(), testEvent{name: "x"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Publish(ctx, testEvent{name: "x"}); err == nil {
		t.Fatal("expected context error on full queue")
	}
}
