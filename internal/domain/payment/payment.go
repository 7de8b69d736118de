package payment

import (
	"context"
	"errors"
)

var (
	ErrAlreadyPaid      = errors.New("payment: order already paid")
	ErrInvalidSignature = errors.New("payment: invalid signature")
	ErrNotFound         = errors.New("payment: no order for reference")
)

// Gateway is the outbound port to the third-party payment provider. The core
// only consumes the opaque external reference it returns.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinorUnits int64, currency, receiptRef string) (externalRef string, err error)
}
