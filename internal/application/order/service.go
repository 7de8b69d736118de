package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/orderflow/internal/application/instrument"
	"github.com/freshmart/orderflow/internal/domain/auth"
	domcart "github.com/freshmart/orderflow/internal/domain/cart"
	domcoupon "github.com/freshmart/orderflow/internal/domain/coupon"
	dominv "github.com/freshmart/orderflow/internal/domain/inventory"
	domain "github.com/freshmart/orderflow/internal/domain/order"
	"github.com/freshmart/orderflow/internal/domain/outbox"
	domuser "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/freshmart/orderflow/internal/observability"
	"github.com/freshmart/orderflow/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseCreate               = "order.create"
	useCaseCancel               = "order.cancel"
	useCaseUpdateStatus         = "order.update_status"
	useCaseAssignDelivery       = "order.assign_delivery"
	useCaseUpdateDeliveryStatus = "order.update_delivery_status"
)

// Service is the order lifecycle manager. It owns the checkout transaction
// (reserve stock, redeem coupon, persist, publish) and all guarded state
// transitions afterwards.
type Service struct {
	orders    domain.Repository
	coupons   domcoupon.Repository
	stock     dominv.Repository
	carts     domcart.Repository
	users     domuser.Repository
	assembler *Assembler
	area      ServiceArea
	bus       outbox.Publisher
	tel       observability.Telemetry
	log       observability.Logger
	clock     func() time.Time
}

func NewService(
	orders domain.Repository,
	coupons domcoupon.Repository,
	stock dominv.Repository,
	carts domcart.Repository,
	users domuser.Repository,
	assembler *Assembler,
	area ServiceArea,
	bus outbox.Publisher,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		orders:    orders,
		coupons:   coupons,
		stock:     stock,
		carts:     carts,
		users:     users,
		assembler: assembler,
		area:      area,
		bus:       bus,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", "order-service")),
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, primarily for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

type CreateInput struct {
	AddressID      int64
	CouponCode     string
	PaymentMethod  string
	IdempotencyKey string
}

// Create runs the checkout flow for the caller's current cart. The sequence
// is assemble, reserve stock, redeem coupon, persist; on a persist failure
// the reservation and redemption are compensated so no stock or usage slot
// leaks. A repeated IdempotencyKey returns the previously created order.
func (s *Service) Create(ctx context.Context, p auth.Principal, input CreateInput) (_ *domain.Order, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseCreate,
		attribute.Int64("user.id", p.UserID),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if input.IdempotencyKey != "" {
		existing, ferr := s.orders.FindByIdempotency(ctx, p.UserID, input.IdempotencyKey)
		if ferr == nil {
			statusText = "IDEMPOTENT_REPLAY"
			return existing, nil
		}
		if !errors.Is(ferr, domain.ErrNotFound) {
			statusText = "IDEMPOTENCY_LOOKUP_FAILED"
			return nil, fmt.Errorf("order: idempotency lookup: %w", ferr)
		}
	}

	addr, err := s.users.FindAddress(ctx, p.UserID, input.AddressID)
	if err != nil {
		statusText = "ADDRESS_NOT_FOUND"
		return nil, err
	}
	if s.area != nil && !s.area.Serviceable(ctx, addr.PostalCode) {
		statusText = "SERVICE_UNAVAILABLE"
		return nil, ErrServiceUnavailable
	}

	cart, err := s.carts.Get(ctx, p.UserID)
	if err != nil && !errors.Is(err, domcart.ErrNotFound) {
		statusText = "CART_LOOKUP_FAILED"
		return nil, fmt.Errorf("order: load cart: %w", err)
	}
	if cart.Empty() {
		statusText = "CART_EMPTY"
		return nil, domcart.ErrEmpty
	}

	now := s.clock()
	ord, err := s.assembler.Assemble(ctx, cart, addr, input.CouponCode, input.PaymentMethod, now)
	if err != nil {
		statusText = assembleStatusText(err)
		return nil, err
	}
	ord.IdempotencyKey = input.IdempotencyKey

	lines := ord.Lines()
	if err = s.stock.Reserve(ctx, toStockLines(lines)); err != nil {
		var shortfall *dominv.ShortfallError
		if errors.As(err, &shortfall) {
			statusText = "INSUFFICIENT_STOCK"
			return nil, err
		}
		statusText = "RESERVE_FAILED"
		return nil, fmt.Errorf("order: reserve stock: %w", err)
	}

	if ord.CouponCode != "" {
		if err = s.coupons.Redeem(ctx, ord.CouponCode); err != nil {
			s.release(ctx, lines)
			if errors.Is(err, domcoupon.ErrUsageExhausted) {
				statusText = "COUPON_EXHAUSTED"
				return nil, err
			}
			statusText = "COUPON_REDEEM_FAILED"
			return nil, fmt.Errorf("order: redeem coupon: %w", err)
		}
	}

	if err = s.orders.Insert(ctx, ord); err != nil {
		s.release(ctx, lines)
		if ord.CouponCode != "" {
			s.restore(ctx, ord.CouponCode)
		}
		statusText = "PERSIST_FAILED"
		return nil, fmt.Errorf("order: persist: %w", err)
	}

	// Post-commit bookkeeping: the order exists, so these failures are logged
	// and left to reconciliation rather than undoing the checkout.
	logger := logctx.FromOr(ctx, s.log)
	if rerr := s.users.RecordOrder(ctx, p.UserID, ord.Total); rerr != nil {
		logger.Warn("record_order_failed",
			observability.F("order_id", ord.ID),
			observability.F("error", rerr.Error()),
		)
	}
	if cerr := s.carts.Clear(ctx, p.UserID); cerr != nil {
		logger.Warn("cart_clear_failed",
			observability.F("order_id", ord.ID),
			observability.F("error", cerr.Error()),
		)
	}

	s.publish(ctx, domain.NewPlacedEvent(ord, now))
	return ord, nil
}

// Cancel moves the order to its terminal cancelled state and rolls back the
// resources checkout consumed. The guarded mutation ensures exactly one of
// any number of concurrent cancels performs the rollback.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, orderID int64) (_ *domain.Order, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseCancel,
		attribute.Int64("order.id", orderID),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	now := s.clock()
	ord, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		if !p.CanActFor(o.UserID) {
			return auth.ErrUnauthorized
		}
		return o.Cancel(p.UserID, now)
	})
	if err != nil {
		statusText = cancelStatusText(err)
		return nil, err
	}

	s.rollback(ctx, ord)
	s.publish(ctx, domain.NewCancelledEvent(ord, p.UserID, now))
	return ord, nil
}

// UpdateStatus applies an admin-driven order status transition. A transition
// into cancelled carries the same rollback as Cancel.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, orderID int64, to domain.Status) (_ *domain.Order, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseUpdateStatus,
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", string(to)),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if !p.Admin {
		statusText = "NOT_ADMIN"
		return nil, auth.ErrUnauthorized
	}

	now := s.clock()
	ord, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		return o.Transition(to, p.UserID, now)
	})
	if err != nil {
		statusText = transitionStatusText(err)
		return nil, err
	}

	if ord.Status == domain.StatusCancelled {
		// The guard above admitted exactly one transition into cancelled, so
		// the rollback runs once.
		s.rollback(ctx, ord)
		s.publish(ctx, domain.NewCancelledEvent(ord, p.UserID, now))
		return ord, nil
	}

	s.publish(ctx, domain.NewStatusChangedEvent(ord, p.UserID, now))
	return ord, nil
}

// AssignDelivery binds an active delivery agent to the order.
func (s *Service) AssignDelivery(ctx context.Context, p auth.Principal, orderID, agentID int64) (_ *domain.Order, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseAssignDelivery,
		attribute.Int64("order.id", orderID),
		attribute.Int64("agent.id", agentID),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if !p.Admin {
		statusText = "NOT_ADMIN"
		return nil, auth.ErrUnauthorized
	}

	agent, err := s.users.Get(ctx, agentID)
	if err != nil {
		statusText = "AGENT_NOT_FOUND"
		return nil, err
	}
	if err = agent.AvailableAgent(); err != nil {
		statusText = agentStatusText(err)
		return nil, err
	}

	now := s.clock()
	ord, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		return o.AssignAgent(agentID, p.UserID, now)
	})
	if err != nil {
		statusText = transitionStatusText(err)
		return nil, err
	}

	s.publish(ctx, domain.NewStatusChangedEvent(ord, p.UserID, now))
	return ord, nil
}

// UpdateDeliveryStatus advances the delivery sub-state machine. Admins may
// advance any order; a delivery agent only the orders assigned to them.
// Reaching delivered credits the agent's completed-delivery counter.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, p auth.Principal, orderID int64, to domain.DeliveryStatus) (_ *domain.Order, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseUpdateDeliveryStatus,
		attribute.Int64("order.id", orderID),
		attribute.String("delivery.status", string(to)),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if !p.Admin && !p.DeliveryAgent {
		statusText = "NOT_ALLOWED"
		return nil, auth.ErrUnauthorized
	}

	now := s.clock()
	ord, err := s.orders.Mutate(ctx, orderID, func(o *domain.Order) error {
		if !p.Admin && o.AgentID != p.UserID {
			return auth.ErrNotAssignedAgent
		}
		return o.AdvanceDelivery(to, p.UserID, now)
	})
	if err != nil {
		statusText = deliveryStatusText(err)
		return nil, err
	}

	if ord.DeliveryStatus == domain.DeliveryDelivered && ord.AgentID != 0 {
		if rerr := s.users.RecordDelivery(ctx, ord.AgentID); rerr != nil {
			logctx.FromOr(ctx, s.log).Warn("record_delivery_failed",
				observability.F("order_id", ord.ID),
				observability.F("agent_id", ord.AgentID),
				observability.F("error", rerr.Error()),
			)
		}
	}

	s.publish(ctx, domain.NewStatusChangedEvent(ord, p.UserID, now))
	return ord, nil
}

// Get returns one order, restricted to its owner unless the caller is an
// admin or the assigned delivery agent.
func (s *Service) Get(ctx context.Context, p auth.Principal, orderID int64) (*domain.Order, error) {
	ord, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !p.CanActFor(ord.UserID) && !(p.DeliveryAgent && ord.AgentID == p.UserID) {
		return nil, auth.ErrUnauthorized
	}
	return ord, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, p auth.Principal, userID int64) ([]*domain.Order, error) {
	if !p.CanActFor(userID) {
		return nil, auth.ErrUnauthorized
	}
	return s.orders.ListByUser(ctx, userID)
}

// rollback returns the cancelled order's resources: reserved stock and, if a
// coupon was applied, its usage slot.
func (s *Service) rollback(ctx context.Context, ord *domain.Order) {
	s.release(ctx, ord.Lines())
	if ord.CouponCode != "" {
		s.restore(ctx, ord.CouponCode)
	}
}

func (s *Service) release(ctx context.Context, lines []domain.Line) {
	if err := s.stock.Release(ctx, toStockLines(lines)); err != nil {
		logctx.FromOr(ctx, s.log).Error("stock_release_failed",
			observability.F("error", err.Error()),
		)
	}
}

func (s *Service) restore(ctx context.Context, code string) {
	if err := s.coupons.Restore(ctx, code); err != nil {
		logctx.FromOr(ctx, s.log).Error("coupon_restore_failed",
			observability.F("coupon_code", code),
			observability.F("error", err.Error()),
		)
	}
}

func (s *Service) publish(ctx context.Context, e outbox.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, e); err != nil {
		logctx.FromOr(ctx, s.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

func toStockLines(lines []domain.Line) []dominv.Line {
	out := make([]dominv.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, dominv.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

func assembleStatusText(err error) string {
	var notFound *ProductNotFoundError
	switch {
	case errors.Is(err, domcart.ErrEmpty):
		return "CART_EMPTY"
	case errors.As(err, &notFound):
		return "PRODUCT_NOT_FOUND"
	case errors.Is(err, domcoupon.ErrInvalidCode):
		return "COUPON_INVALID"
	case errors.Is(err, domcoupon.ErrExpired):
		return "COUPON_EXPIRED"
	case errors.Is(err, domcoupon.ErrBelowMinimum):
		return "COUPON_BELOW_MINIMUM"
	case errors.Is(err, domcoupon.ErrUsageExhausted):
		return "COUPON_EXHAUSTED"
	}
	return "ASSEMBLE_FAILED"
}

func cancelStatusText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, auth.ErrUnauthorized):
		return "NOT_ALLOWED"
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return "ALREADY_CANCELLED"
	case errors.Is(err, domain.ErrCannotCancelDelivered):
		return "ALREADY_DELIVERED"
	}
	return "CANCEL_FAILED"
}

func transitionStatusText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return "ALREADY_CANCELLED"
	case errors.Is(err, domain.ErrCannotCancelDelivered):
		return "ALREADY_DELIVERED"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrNotAssignable):
		return "NOT_ASSIGNABLE"
	}
	return "TRANSITION_FAILED"
}

func agentStatusText(err error) string {
	switch {
	case errors.Is(err, domuser.ErrNotAgent):
		return "NOT_AN_AGENT"
	case errors.Is(err, domuser.ErrAgentInactive):
		return "AGENT_INACTIVE"
	}
	return "AGENT_UNAVAILABLE"
}

func deliveryStatusText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, auth.ErrNotAssignedAgent):
		return "NOT_ASSIGNED_AGENT"
	case errors.Is(err, domain.ErrDeliveryOnCancelled):
		return "ORDER_CANCELLED"
	case errors.Is(err, domain.ErrDeliverySequence):
		return "INVALID_DELIVERY_TRANSITION"
	}
	return "DELIVERY_UPDATE_FAILED"
}
