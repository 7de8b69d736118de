package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/orderflow/internal/application/instrument"
	"github.com/freshmart/orderflow/internal/domain/auth"
	domorder "github.com/freshmart/orderflow/internal/domain/order"
	"github.com/freshmart/orderflow/internal/domain/outbox"
	domain "github.com/freshmart/orderflow/internal/domain/payment"
	"github.com/freshmart/orderflow/internal/observability"
	"github.com/freshmart/orderflow/internal/observability/logctx"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseCreateIntent = "payment.create_intent"
	useCaseVerify       = "payment.verify"
)

// Service is the payment verifier. CreateIntent registers the order with the
// external gateway; Verify checks the returned proof and marks the order
// paid. The gateway secret never leaves this package.
type Service struct {
	orders   domorder.Repository
	gateway  domain.Gateway
	bus      outbox.Publisher
	secret   []byte
	currency string
	tel      observability.Telemetry
	log      observability.Logger
	clock    func() time.Time
}

func NewService(orders domorder.Repository, gateway domain.Gateway, bus outbox.Publisher, secret, currency string, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		orders:   orders,
		gateway:  gateway,
		bus:      bus,
		secret:   []byte(secret),
		currency: currency,
		tel:      tel,
		log:      tel.Logger().With(observability.F("service", "payment-service")),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, primarily for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Intent is what the client needs to hand to the payment provider.
type Intent struct {
	OrderID     int64
	ExternalRef string
	Amount      decimal.Decimal
	Currency    string
}

// CreateIntent registers the order total with the gateway and stores the
// returned external reference on the order. Repeating the call for an unpaid
// order mints a fresh reference; the latest one wins verification.
func (s *Service) CreateIntent(ctx context.Context, p auth.Principal, orderID int64) (_ *Intent, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseCreateIntent,
		attribute.Int64("order.id", orderID),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	ord, err := s.orders.Get(ctx, orderID)
	if err != nil {
		statusText = "ORDER_NOT_FOUND"
		return nil, err
	}
	if !p.CanActFor(ord.UserID) {
		statusText = "NOT_ALLOWED"
		return nil, auth.ErrUnauthorized
	}
	if ord.PaymentStatus == domorder.PaymentCompleted {
		statusText = "ALREADY_PAID"
		return nil, domain.ErrAlreadyPaid
	}
	if ord.Status == domorder.StatusCancelled {
		statusText = "ORDER_CANCELLED"
		return nil, domorder.ErrAlreadyCancelled
	}

	externalRef, err := s.gateway.CreateOrder(ctx, minorUnits(ord.Total), s.currency, ord.Code)
	if err != nil {
		statusText = "GATEWAY_FAILED"
		return nil, fmt.Errorf("payment: gateway create: %w", err)
	}

	now := s.clock()
	ord, err = s.orders.Mutate(ctx, orderID, func(o *domorder.Order) error {
		if o.PaymentStatus == domorder.PaymentCompleted {
			return domain.ErrAlreadyPaid
		}
		o.GatewayRef = externalRef
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			statusText = "ALREADY_PAID"
			return nil, err
		}
		statusText = "PERSIST_FAILED"
		return nil, fmt.Errorf("payment: store gateway ref: %w", err)
	}

	return &Intent{
		OrderID:     ord.ID,
		ExternalRef: externalRef,
		Amount:      ord.Total,
		Currency:    s.currency,
	}, nil
}

// Proof is the callback payload from the payment provider.
type Proof struct {
	ExternalRef string
	PaymentRef  string
	Signature   string
}

// Verify authenticates the payment proof and marks the order paid. The
// signature is HMAC-SHA256 over "externalRef|paymentRef" hex encoded; a
// mismatch leaves the order untouched. Verification is idempotent for a
// proof that already succeeded.
func (s *Service) Verify(ctx context.Context, proof Proof) (_ *domorder.Order, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseVerify,
		attribute.String("payment.external_ref", proof.ExternalRef),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	ord, err := s.orders.FindByGatewayRef(ctx, proof.ExternalRef)
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			statusText = "UNKNOWN_REFERENCE"
			return nil, domain.ErrNotFound
		}
		statusText = "LOOKUP_FAILED"
		return nil, fmt.Errorf("payment: lookup: %w", err)
	}

	if !s.validSignature(proof) {
		statusText = "INVALID_SIGNATURE"
		return nil, domain.ErrInvalidSignature
	}

	if ord.PaymentStatus == domorder.PaymentCompleted {
		if ord.PaymentRef == proof.PaymentRef {
			statusText = "ALREADY_VERIFIED"
			return ord, nil
		}
		statusText = "ALREADY_PAID"
		return nil, domain.ErrAlreadyPaid
	}

	now := s.clock()
	ord, err = s.orders.Mutate(ctx, ord.ID, func(o *domorder.Order) error {
		if o.PaymentStatus == domorder.PaymentCompleted {
			if o.PaymentRef == proof.PaymentRef {
				return nil
			}
			return domain.ErrAlreadyPaid
		}
		o.MarkPaid(proof.PaymentRef, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyPaid) {
			statusText = "ALREADY_PAID"
			return nil, err
		}
		statusText = "PERSIST_FAILED"
		return nil, fmt.Errorf("payment: mark paid: %w", err)
	}

	logctx.FromOr(ctx, s.log).Info("payment_verified",
		observability.F("order_id", ord.ID),
		observability.F("payment_ref", proof.PaymentRef),
	)
	s.publish(ctx, domorder.NewPaymentCompletedEvent(ord, now))
	return ord, nil
}

func (s *Service) validSignature(proof Proof) bool {
	got, err := hex.DecodeString(proof.Signature)
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(s.secret, proof.ExternalRef, proof.PaymentRef))
}

// Sign computes the proof signature for the given references. Exposed so the
// sandbox gateway and tests can produce valid proofs.
func Sign(secret []byte, externalRef, paymentRef string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(externalRef + "|" + paymentRef))
	return mac.Sum(nil)
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

// minorUnits converts a decimal amount into the gateway's integer minor
// units, e.g. 35.99 -> 3599.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
