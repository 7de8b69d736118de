package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound              = errors.New("order: not found")
	ErrConflict              = errors.New("order: already exists")
	ErrNoItems               = errors.New("order: at least one line item is required")
	ErrNegativeTotal         = errors.New("order: total must be zero or greater")
	ErrAlreadyCancelled      = errors.New("order: already cancelled")
	ErrCannotCancelDelivered = errors.New("order: delivered orders cannot be cancelled")
	ErrInvalidTransition     = errors.New("order: invalid status transition")
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryUnassigned     DeliveryStatus = "unassigned"
	DeliveryAssigned       DeliveryStatus = "assigned"
	DeliveryOutForDelivery DeliveryStatus = "out_for_delivery"
	DeliveryDelivered      DeliveryStatus = "delivered"
	DeliveryCancelled      DeliveryStatus = "cancelled"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryUnassigned, DeliveryAssigned, DeliveryOutForDelivery, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// LineItem is a catalog snapshot taken at assembly time. Name, price and image
// are never re-read from the live catalog afterwards.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Address is the shipping address snapshot baked into the order.
type Address struct {
	ID         int64  `json:"id"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

// DeliveryUpdate is one entry of the append-only delivery log.
type DeliveryUpdate struct {
	Status  DeliveryStatus `json:"status"`
	ActorID int64          `json:"actor_id"`
	At      time.Time      `json:"at"`
}

type Order struct {
	ID             int64
	Code           string
	UserID         int64
	IdempotencyKey string

	Items       []LineItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	CouponCode  string

	PaymentMethod string
	PaymentStatus PaymentStatus
	PaymentRef    string
	GatewayRef    string

	Status         Status
	DeliveryStatus DeliveryStatus
	AgentID        int64
	DeliveryLog    []DeliveryUpdate

	Address Address

	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveryDue time.Time
}

// New validates and constructs an order in its initial state. Totals are
// expected to be precomputed by the assembler; the arithmetic invariant
// total == subtotal + shipping - discount is enforced here.
func New(id int64, userID int64, items []LineItem, addr Address, paymentMethod string, subtotal, shipping, discount decimal.Decimal, now time.Time, due time.Time) (*Order, error) {
	if id <= 0 {
		return nil, errors.New("order: id must be positive")
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("order: product %d: quantity must be greater than zero", it.ProductID)
		}
	}
	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		return nil, ErrNegativeTotal
	}

	return &Order{
		ID:             id,
		Code:           Code(id),
		UserID:         userID,
		Items:          items,
		Subtotal:       subtotal,
		ShippingFee:    shipping,
		Discount:       discount,
		Total:          total,
		PaymentMethod:  paymentMethod,
		PaymentStatus:  PaymentPending,
		Status:         StatusProcessing,
		DeliveryStatus: DeliveryUnassigned,
		Address:        addr,
		CreatedAt:      now,
		UpdatedAt:      now,
		DeliveryDue:    due,
	}, nil
}

// Code derives the human-readable order code from the sequence id.
func Code(id int64) string {
	return fmt.Sprintf("ORD-%06d", id)
}

// Lines reports the (productID, quantity) pairs for reservation and release.
func (o *Order) Lines() []Line {
	lines := make([]Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// Line pairs a product with a quantity for stock mutations.
type Line struct {
	ProductID int64
	Quantity  int
}

func (o *Order) MarkPaid(paymentRef string, now time.Time) {
	o.PaymentStatus = PaymentCompleted
	o.PaymentRef = paymentRef
	o.touch(now)
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]LineItem(nil), o.Items...)
	clone.DeliveryLog = append([]DeliveryUpdate(nil), o.DeliveryLog...)
	return &clone
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
}
