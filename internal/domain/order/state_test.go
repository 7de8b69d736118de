package order

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testOrder(t *testing.T) *Order {
	t.Helper()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	o, err := New(7, 42,
		[]LineItem{{ProductID: 1, Name: "Milk", UnitPrice: decimal.NewFromInt(3), Quantity: 2}},
		Address{ID: 1, Line1: "1 Main St", City: "Springfield", PostalCode: "12345"},
		"card",
		decimal.NewFromInt(6), decimal.RequireFromString("5.99"), decimal.Zero,
		now, now.Add(48*time.Hour),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestNewComputesTotal(t *testing.T) {
	o := testOrder(t)
	if o.Total.StringFixed(2) != "11.99" {
		t.Fatalf("total = %s, want 11.99", o.Total.StringFixed(2))
	}
	if o.Code != "ORD-000007" {
		t.Fatalf("code = %q, want ORD-000007", o.Code)
	}
	if o.Status != StatusProcessing || o.DeliveryStatus != DeliveryUnassigned || o.PaymentStatus != PaymentPending {
		t.Fatalf("unexpected initial state: %s/%s/%s", o.Status, o.DeliveryStatus, o.PaymentStatus)
	}
}

func TestNewRejectsNegativeTotal(t *testing.T) {
	now := time.Now()
	_, err := New(1, 1,
		[]LineItem{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
		Address{}, "card",
		decimal.NewFromInt(10), decimal.Zero, decimal.NewFromInt(11),
		now, now,
	)
	if !errors.Is(err, ErrNegativeTotal) {
		t.Fatalf("got %v, want ErrNegativeTotal", err)
	}
}

func TestNewRejectsEmptyItems(t *testing.T) {
	now := time.Now()
	_, err := New(1, 1, nil, Address{}, "card", decimal.Zero, decimal.Zero, decimal.Zero, now, now)
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("got %v, want ErrNoItems", err)
	}
}

func TestCancelGuards(t *testing.T) {
	now := time.Now()

	o := testOrder(t)
	if err := o.Cancel(42, now); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if o.Status != StatusCancelled || o.DeliveryStatus != DeliveryCancelled {
		t.Fatalf("state after cancel: %s/%s", o.Status, o.DeliveryStatus)
	}
	if err := o.Cancel(42, now); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel: got %v, want ErrAlreadyCancelled", err)
	}

	delivered := testOrder(t)
	delivered.Status = StatusDelivered
	if err := delivered.Cancel(42, now); !errors.Is(err, ErrCannotCancelDelivered) {
		t.Fatalf("cancel delivered: got %v, want ErrCannotCancelDelivered", err)
	}
}

func TestTransitionForwardOnly(t *testing.T) {
	now := time.Now()

	o := testOrder(t)
	if err := o.Transition(StatusDelivered, 1, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("processing -> delivered: got %v, want ErrInvalidTransition", err)
	}
	if err := o.Transition(StatusShipped, 1, now); err != nil {
		t.Fatalf("processing -> shipped: %v", err)
	}
	if err := o.Transition(StatusProcessing, 1, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("shipped -> processing: got %v, want ErrInvalidTransition", err)
	}
	if err := o.Transition(StatusDelivered, 1, now); err != nil {
		t.Fatalf("shipped -> delivered: %v", err)
	}
	if err := o.Transition(StatusShipped, 1, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("delivered is terminal: got %v, want ErrInvalidTransition", err)
	}
}

func TestAssignAgent(t *testing.T) {
	now := time.Now()

	o := testOrder(t)
	if err := o.AssignAgent(9, 1, now); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if o.AgentID != 9 || o.DeliveryStatus != DeliveryAssigned {
		t.Fatalf("after assign: agent %d, status %s", o.AgentID, o.DeliveryStatus)
	}
	// Reassignment while still assigned is allowed.
	if err := o.AssignAgent(10, 1, now); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	cancelled := testOrder(t)
	_ = cancelled.Cancel(42, now)
	if err := cancelled.AssignAgent(9, 1, now); !errors.Is(err, ErrNotAssignable) {
		t.Fatalf("assign on cancelled: got %v, want ErrNotAssignable", err)
	}
}

func TestAdvanceDeliverySequence(t *testing.T) {
	now := time.Now()
	o := testOrder(t)

	if err := o.AdvanceDelivery(DeliveryOutForDelivery, 9, now); !errors.Is(err, ErrDeliverySequence) {
		t.Fatalf("skip to out_for_delivery: got %v, want ErrDeliverySequence", err)
	}
	if err := o.AssignAgent(9, 1, now); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := o.AdvanceDelivery(DeliveryOutForDelivery, 9, now); err != nil {
		t.Fatalf("assigned -> out_for_delivery: %v", err)
	}
	if err := o.AdvanceDelivery(DeliveryDelivered, 9, now); err != nil {
		t.Fatalf("out_for_delivery -> delivered: %v", err)
	}
	if o.Status != StatusDelivered {
		t.Fatalf("order status = %s, want delivered after delivery completes", o.Status)
	}
	if len(o.DeliveryLog) != 3 {
		t.Fatalf("delivery log entries = %d, want 3", len(o.DeliveryLog))
	}
}

func TestAdvanceDeliveryOnCancelled(t *testing.T) {
	now := time.Now()
	o := testOrder(t)
	_ = o.Cancel(42, now)
	if err := o.AdvanceDelivery(DeliveryAssigned, 9, now); !errors.Is(err, ErrDeliveryOnCancelled) {
		t.Fatalf("got %v, want ErrDeliveryOnCancelled", err)
	}
}
