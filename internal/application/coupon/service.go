package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/orderflow/internal/application/instrument"
	"github.com/freshmart/orderflow/internal/domain/auth"
	domain "github.com/freshmart/orderflow/internal/domain/coupon"
	"github.com/freshmart/orderflow/internal/domain/sequence"
	"github.com/freshmart/orderflow/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseCreate   = "coupon.create"
	useCaseValidate = "coupon.validate"
)

// Service is the coupon evaluator plus the admin-facing coupon management.
type Service struct {
	repo  domain.Repository
	seq   sequence.Generator
	tel   observability.Telemetry
	log   observability.Logger
	clock func() time.Time
}

func NewService(repo domain.Repository, seq sequence.Generator, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		repo:  repo,
		seq:   seq,
		tel:   tel,
		log:   tel.Logger().With(observability.F("service", "coupon-service")),
		clock: func() time.Time { return time.Now().UTC() },
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
	Code           string
	Type           domain.Type
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	MaxUses        int
	ExpiresAt      time.Time
}

func (s *Service) Create(ctx context.Context, p auth.Principal, input CreateInput) (_ *domain.Coupon, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseCreate,
		attribute.String("coupon.code", domain.Normalize(input.Code)),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if !p.Admin {
		statusText = "NOT_ADMIN"
		return nil, auth.ErrUnauthorized
	}

	id, err := s.seq.Next(ctx, sequence.Coupons)
	if err != nil {
		statusText = "SEQUENCE_FAILED"
		return nil, fmt.Errorf("coupon: allocate id: %w", err)
	}

	c, err := domain.New(id, input.Code, input.Type, input.Value, input.MinOrderAmount, input.MaxUses, input.ExpiresAt, s.clock())
	if err != nil {
		statusText = "INVALID_INPUT"
		return nil, err
	}

	if err = s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			statusText = "CODE_EXISTS"
			return nil, err
		}
		statusText = "REPO_CREATE_FAILED"
		return nil, fmt.Errorf("coupon: create: %w", err)
	}

	return c, nil
}

// Validate runs the evaluator checks against the subtotal and returns the
// discount amount. The caller redeems the usage slot separately, inside the
// order creation flow.
func (s *Service) Validate(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (_ decimal.Decimal, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseValidate,
		attribute.String("coupon.code", domain.Normalize(code)),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			statusText = "INVALID_CODE"
			return decimal.Zero, domain.ErrInvalidCode
		}
		statusText = "REPO_LOOKUP_FAILED"
		return decimal.Zero, fmt.Errorf("coupon: lookup: %w", err)
	}

	if err = c.Validate(subtotal, now); err != nil {
		statusText = reasonText(err)
		return decimal.Zero, err
	}

	return c.DiscountFor(subtotal), nil
}

func reasonText(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return "INVALID_CODE"
	case errors.Is(err, domain.ErrExpired):
		return "EXPIRED"
	case errors.Is(err, domain.ErrBelowMinimum):
		return "BELOW_MINIMUM"
	case errors.Is(err, domain.ErrUsageExhausted):
		return "USAGE_EXHAUSTED"
	}
	return "INVALID"
}
