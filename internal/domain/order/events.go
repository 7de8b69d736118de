package order

import "time"

// PlacedEvent is emitted once an order has been durably created. It is the
// input of the notification dispatcher and any other interested context.
type PlacedEvent struct {
	OrderID    int64
	Code       string
	UserID     int64
	Total      string
	CouponCode string
	OccurredAt time.Time
}

func (PlacedEvent) EventName() string { return "order.placed" }

func NewPlacedEvent(o *Order, now time.Time) PlacedEvent {
	return PlacedEvent{
		OrderID:    o.ID,
		Code:       o.Code,
		UserID:     o.UserID,
		Total:      o.Total.StringFixed(2),
		CouponCode: o.CouponCode,
		OccurredAt: now,
	}
}

// CancelledEvent is emitted after the cancellation rollback has been applied.
type CancelledEvent struct {
	OrderID    int64
	Code       string
	UserID     int64
	ActorID    int64
	OccurredAt time.Time
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(o *Order, actorID int64, now time.Time) CancelledEvent {
	return CancelledEvent{
		OrderID:    o.ID,
		Code:       o.Code,
		UserID:     o.UserID,
		ActorID:    actorID,
		OccurredAt: now,
	}
}

// StatusChangedEvent covers order status and delivery status transitions.
type StatusChangedEvent struct {
	OrderID        int64
	Code           string
	UserID         int64
	Status         Status
	DeliveryStatus DeliveryStatus
	ActorID        int64
	OccurredAt     time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func NewStatusChangedEvent(o *Order, actorID int64, now time.Time) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:        o.ID,
		Code:           o.Code,
		UserID:         o.UserID,
		Status:         o.Status,
		DeliveryStatus: o.DeliveryStatus,
		ActorID:        actorID,
		OccurredAt:     now,
	}
}

// PaymentCompletedEvent is emitted when a payment proof has been verified.
type PaymentCompletedEvent struct {
	OrderID    int64
	Code       string
	UserID     int64
	PaymentRef string
	OccurredAt time.Time
}

func (PaymentCompletedEvent) EventName() string { return "order.payment_completed" }

func NewPaymentCompletedEvent(o *Order, now time.Time) PaymentCompletedEvent {
	return PaymentCompletedEvent{
		OrderID:    o.ID,
		Code:       o.Code,
		UserID:     o.UserID,
		PaymentRef: o.PaymentRef,
		OccurredAt: now,
	}
}
