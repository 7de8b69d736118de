// Package gateway provides payment gateway adapters. The sandbox adapter
// stands in for a real provider in dev and test environments.
package gateway

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/freshmart/orderflow/internal/observability"
	"github.com/oklog/ulid/v2"
)

// Sandbox mints opaque external references locally instead of calling a
// provider. References are ULIDs so they sort by creation time, which makes
// sandbox payment logs easy to scan.
type Sandbox struct {
	log observability.Logger
}

func NewSandbox(log observability.Logger) *Sandbox {
	if log == nil {
		log = observability.NopLogger()
	}
	return &Sandbox{log: log.With(observability.F("component", "payment-gateway"))}
}

func (s *Sandbox) CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receiptRef string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ref := "pay_" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	s.log.Info("gateway_order_created",
		observability.F("external_ref", ref),
		observability.F("amount_minor_units", amountMinorUnits),
		observability.F("currency", currency),
		observability.F("receipt", receiptRef),
	)
	return ref, nil
}
