// Package notify bridges order lifecycle events to the notification channel.
package notify

import (
	"context"
	"fmt"

	domorder "github.com/freshmart/orderflow/internal/domain/order"
	domoutbox "github.com/freshmart/orderflow/internal/domain/outbox"
	"github.com/freshmart/orderflow/internal/observability"
)

// Notification is one message addressed to a user.
type Notification struct {
	UserID  int64
	Kind    string
	OrderID int64
	Code    string
	Message string
}

// Dispatcher delivers notifications over some channel (email, push, SMS).
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// LogDispatcher writes notifications to the structured log. It is the dev
// stand-in for a real channel adapter.
type LogDispatcher struct {
	log observability.Logger
}

func NewLogDispatcher(log observability.Logger) *LogDispatcher {
	if log == nil {
		log = observability.NopLogger()
	}
	return &LogDispatcher{log: log.With(observability.F("component", "notify-dispatcher"))}
}

func (d *LogDispatcher) Dispatch(_ context.Context, n Notification) error {
	d.log.Info("notification_dispatched",
		observability.F("user_id", n.UserID),
		observability.F("kind", n.Kind),
		observability.F("order_id", n.OrderID),
		observability.F("message", n.Message),
	)
	return nil
}

// Worker subscribes to order lifecycle events and turns each into a user
// notification. Handlers return errors to the bus for logging; there is no
// retry beyond that.
type Worker struct {
	subscriber domoutbox.Subscriber
	dispatcher Dispatcher
	tel        observability.Telemetry
	log        observability.Logger
}

func NewWorker(subscriber domoutbox.Subscriber, dispatcher Dispatcher, tel observability.Telemetry) *Worker {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Worker{
		subscriber: subscriber,
		dispatcher: dispatcher,
		tel:        tel,
		log:        tel.Logger().With(observability.F("component", "notify-worker")),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.dispatcher == nil {
		return
	}
	w.subscriber.Subscribe(domorder.PlacedEvent{}.EventName(), w.handlePlaced)
	w.subscriber.Subscribe(domorder.CancelledEvent{}.EventName(), w.handleCancelled)
	w.subscriber.Subscribe(domorder.StatusChangedEvent{}.EventName(), w.handleStatusChanged)
	w.subscriber.Subscribe(domorder.PaymentCompletedEvent{}.EventName(), w.handlePaymentCompleted)
}

func (w *Worker) handlePlaced(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.PlacedEvent)
	if !ok {
		return nil
	}
	return w.dispatch(ctx, Notification{
		UserID:  evt.UserID,
		Kind:    "order_placed",
		OrderID: evt.OrderID,
		Code:    evt.Code,
		Message: fmt.Sprintf("Order %s placed, total %s", evt.Code, evt.Total),
	})
}

func (w *Worker) handleCancelled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.CancelledEvent)
	if !ok {
		return nil
	}
	return w.dispatch(ctx, Notification{
		UserID:  evt.UserID,
		Kind:    "order_cancelled",
		OrderID: evt.OrderID,
		Code:    evt.Code,
		Message: fmt.Sprintf("Order %s has been cancelled", evt.Code),
	})
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.StatusChangedEvent)
	if !ok {
		return nil
	}
	return w.dispatch(ctx, Notification{
		UserID:  evt.UserID,
		Kind:    "order_status_changed",
		OrderID: evt.OrderID,
		Code:    evt.Code,
		Message: fmt.Sprintf("Order %s is now %s (delivery: %s)", evt.Code, evt.Status, evt.DeliveryStatus),
	})
}

func (w *Worker) handlePaymentCompleted(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.PaymentCompletedEvent)
	if !ok {
		return nil
	}
	return w.dispatch(ctx, Notification{
		UserID:  evt.UserID,
		Kind:    "payment_completed",
		OrderID: evt.OrderID,
		Code:    evt.Code,
		Message: fmt.Sprintf("Payment received for order %s", evt.Code),
	})
}

func (w *Worker) dispatch(ctx context.Context, n Notification) error {
	err := w.dispatcher.Dispatch(ctx, n)
	outcome := "success"
	if err != nil {
		outcome = "error"
		w.log.Warn("notification_dispatch_failed",
			observability.F("kind", n.Kind),
			observability.F("order_id", n.OrderID),
			observability.F("error", err.Error()),
		)
	}
	w.tel.Counter(observability.MetricNotificationsDispatched).Add(1,
		observability.L("kind", n.Kind),
		observability.L("outcome", outcome),
	)
	return err
}
