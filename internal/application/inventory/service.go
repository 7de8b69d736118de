package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/orderflow/internal/application/instrument"
	"github.com/freshmart/orderflow/internal/domain/auth"
	domain "github.com/freshmart/orderflow/internal/domain/inventory"
	"github.com/freshmart/orderflow/internal/domain/sequence"
	"github.com/freshmart/orderflow/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseCreateProduct = "catalog.create_product"
	useCaseRestock       = "catalog.restock"
)

// Service manages the catalog side of the inventory ledger. Stock
// reservation/release for orders goes through the repository directly from the
// order lifecycle manager so it stays inside that transaction.
type Service struct {
	repo  domain.Repository
	seq   sequence.Generator
	tel   observability.Telemetry
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
		clock: func() time.Time { return time.Now().UTC() },
	}
}

type CreateProductInput struct {
	Name     string
	Price    decimal.Decimal
	ImageURL string
	Stock    int
}

func (s *Service) CreateProduct(ctx context.Context, p auth.Principal, input CreateProductInput) (_ *domain.Product, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseCreateProduct,
		attribute.String("product.name", input.Name),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if !p.Admin {
		statusText = "NOT_ADMIN"
		return nil, auth.ErrUnauthorized
	}

	id, err := s.seq.Next(ctx, sequence.Products)
	if err != nil {
		statusText = "SEQUENCE_FAILED"
		return nil, fmt.Errorf("catalog: allocate id: %w", err)
	}

	product, err := domain.NewProduct(id, input.Name, input.Price, input.ImageURL, input.Stock, s.clock())
	if err != nil {
		statusText = "INVALID_INPUT"
		return nil, err
	}

	if err = s.repo.Create(ctx, product); err != nil {
		statusText = "REPO_CREATE_FAILED"
		return nil, fmt.Errorf("catalog: create: %w", err)
	}

	return product, nil
}

func (s *Service) Restock(ctx context.Context, p auth.Principal, productID int64, quantity int) (_ *domain.Product, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseRestock,
		attribute.Int64("product.id", productID),
		attribute.Int("restock.quantity", quantity),
	)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if !p.Admin {
		statusText = "NOT_ADMIN"
		return nil, auth.ErrUnauthorized
	}

	product, err := s.repo.Restock(ctx, productID, quantity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			statusText = "PRODUCT_NOT_FOUND"
		case errors.Is(err, domain.ErrInvalidQuantity):
			statusText = "QUANTITY_INVALID"
		default:
			statusText = "REPO_RESTOCK_FAILED"
		}
		return nil, err
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.repo.Get(ctx, productID)
}

func (s *Service) List(ctx context.Context) ([]*domain.Product, error) {
	return s.repo.List(ctx)
}
