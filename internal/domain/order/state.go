package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotAssignable       = errors.New("order: delivery cannot be assigned in current state")
	ErrDeliverySequence    = errors.New("order: invalid delivery status transition")
	ErrDeliveryOnCancelled = errors.New("order: delivery updates not allowed on cancelled order")
)

// Cancel transitions the order into its terminal cancelled state. Guards make
// concurrent cancel attempts have exactly one winner: the loser observes
// ErrAlreadyCancelled (or ErrCannotCancelDelivered) from the guarded mutation.
func (o *Order) Cancel(actorID int64, now time.Time) error {
	switch o.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusDelivered:
		return ErrCannotCancelDelivered
	}

	o.Status = StatusCancelled
	o.DeliveryStatus = DeliveryCancelled
	o.appendDeliveryLog(DeliveryCancelled, actorID, now)
	o.touch(now)
	return nil
}

// Transition moves order status forward: processing -> shipped -> delivered.
// Cancellation goes through Cancel so rollback bookkeeping stays in one place.
func (o *Order) Transition(to Status, actorID int64, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if to == StatusCancelled {
		return o.Cancel(actorID, now)
	}

	allowed := map[Status]Status{
		StatusProcessing: StatusShipped,
		StatusShipped:    StatusDelivered,
	}
	next, ok := allowed[o.Status]
	if !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	o.Status = to
	o.touch(now)
	return nil
}

// AssignAgent binds a delivery agent and opens the delivery sub-state machine.
func (o *Order) AssignAgent(agentID, actorID int64, now time.Time) error {
	if o.Status == StatusCancelled || o.Status == StatusDelivered {
		return ErrNotAssignable
	}
	if o.DeliveryStatus != DeliveryUnassigned && o.DeliveryStatus != DeliveryAssigned {
		return ErrNotAssignable
	}

	o.AgentID = agentID
	o.DeliveryStatus = DeliveryAssigned
	o.appendDeliveryLog(DeliveryAssigned, actorID, now)
	o.touch(now)
	return nil
}

// AdvanceDelivery applies the delivery sub-state sequence
// unassigned -> assigned -> out_for_delivery -> delivered. Reaching delivered
// also forces the order status to delivered; this is the single point where
// the two state machines are cross-linked.
func (o *Order) AdvanceDelivery(to DeliveryStatus, actorID int64, now time.Time) error {
	if !to.Valid() || to == DeliveryCancelled {
		return fmt.Errorf("%w: unknown delivery status %q", ErrDeliverySequence, to)
	}
	if o.Status == StatusCancelled {
		return ErrDeliveryOnCancelled
	}

	allowed := map[DeliveryStatus]DeliveryStatus{
		DeliveryUnassigned:     DeliveryAssigned,
		DeliveryAssigned:       DeliveryOutForDelivery,
		DeliveryOutForDelivery: DeliveryDelivered,
	}
	next, ok := allowed[o.DeliveryStatus]
	if !ok || next != to {
		return fmt.Errorf("%w: %s -> %s", ErrDeliverySequence, o.DeliveryStatus, to)
	}

	o.DeliveryStatus = to
	o.appendDeliveryLog(to, actorID, now)
	if to == DeliveryDelivered {
		o.Status = StatusDelivered
	}
	o.touch(now)
	return nil
}

func (o *Order) appendDeliveryLog(status DeliveryStatus, actorID int64, at time.Time) {
	o.DeliveryLog = append(o.DeliveryLog, DeliveryUpdate{Status: status, ActorID: actorID, At: at})
}
