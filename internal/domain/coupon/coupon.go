package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("coupon: not found")
	ErrConflict       = errors.New("coupon: code already exists")
	ErrInvalidCode    = errors.New("coupon: invalid code")
	ErrExpired        = errors.New("coupon: expired")
	ErrBelowMinimum   = errors.New("coupon: order below minimum amount")
	ErrUsageExhausted = errors.New("coupon: usage cap reached")
	ErrInvalidValue   = errors.New("coupon: discount value must be greater than zero")
	ErrInvalidType    = errors.New("coupon: unknown discount type")
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

type Coupon struct {
	ID             int64
	Code           string
	Type           Type
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	// MaxUses of 0 means unlimited. UsedCount never exceeds MaxUses when the
	// cap is set, and never goes below zero on rollback.
	MaxUses   int
	UsedCount int
	ExpiresAt time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(id int64, code string, typ Type, value, minOrder decimal.Decimal, maxUses int, expiresAt, now time.Time) (*Coupon, error) {
	code = Normalize(code)
	if code == "" {
		return nil, ErrInvalidCode
	}
	if typ != TypePercentage && typ != TypeFixed {
		return nil, ErrInvalidType
	}
	if !value.IsPositive() {
		return nil, ErrInvalidValue
	}
	if maxUses < 0 {
		maxUses = 0
	}
	return &Coupon{
		ID:             id,
		Code:           code,
		Type:           typ,
		Value:          value,
		MinOrderAmount: minOrder,
		MaxUses:        maxUses,
		ExpiresAt:      expiresAt,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Normalize canonicalizes a user-supplied code for lookup and storage.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate runs the redemption checks in their fixed order, short-circuiting
// on the first failure.
func (c *Coupon) Validate(subtotal decimal.Decimal, now time.Time) error {
	if !c.Active {
		return ErrInvalidCode
	}
	if c.ExpiresAt.Before(now) {
		return ErrExpired
	}
	if c.MinOrderAmount.GreaterThan(subtotal) {
		return ErrBelowMinimum
	}
	if c.MaxUses > 0 && c.UsedCount >= c.MaxUses {
		return ErrUsageExhausted
	}
	return nil
}

// DiscountFor computes the discount amount for the given subtotal. Fixed
// discounts are clamped to the subtotal so the order total can never go
// negative.
func (c *Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case TypePercentage:
		d = subtotal.Mul(c.Value).Div(decimal.NewFromInt(100))
	case TypeFixed:
		d = c.Value
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	return d.Round(2)
}

func (c *Coupon) Clone() *Coupon {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
