package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("inventory: product not found")
	ErrConflict          = errors.New("inventory: product already exists")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInvalidPrice      = errors.New("inventory: price must be zero or greater")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Product is the catalog record carrying the live stock count. Orders snapshot
// name/price/image from here at assembly time.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	ImageURL  string
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewProduct(id int64, name string, price decimal.Decimal, imageURL string, stock int, now time.Time) (*Product, error) {
	if id <= 0 {
		return nil, errors.New("inventory: id must be positive")
	}
	if name == "" {
		return nil, errors.New("inventory: name is required")
	}
	if price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if stock < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Product{
		ID:        id,
		Name:      name,
		Price:     price,
		ImageURL:  imageURL,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Line pairs a product with a quantity for reservation and release.
type Line struct {
	ProductID int64
	Quantity  int
}

// ShortfallError reports which product blocked a reservation and how much
// stock was available at the time.
type ShortfallError struct {
	ProductID int64
	Available int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %d (available %d)", e.ProductID, e.Available)
}

func (e *ShortfallError) Unwrap() error { return ErrInsufficientStock }
