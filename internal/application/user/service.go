package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/freshmart/orderflow/internal/application/instrument"
	"github.com/freshmart/orderflow/internal/domain/auth"
	"github.com/freshmart/orderflow/internal/domain/sequence"
	domain "github.com/freshmart/orderflow/internal/domain/user"
	"github.com/freshmart/orderflow/internal/observability"
)

const useCaseRegister = "user.register"

// Service covers account registration and reads. Credential handling lives
// upstream; this only stores the profile the order flow needs.
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

type AddressInput struct {
	Line1      string
	City       string
	PostalCode string
}

type RegisterInput struct {
	Name      string
	Email     string
	Addresses []AddressInput

	IsAdmin         bool
	IsDeliveryAgent bool
	AgentActive     bool
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (_ *domain.User, err error) {
	ctx, done := instrument.Start(ctx, s.tel, useCaseRegister)
	statusText := "OK"
	defer func() { done(err, statusText) }()

	if input.Name == "" || input.Email == "" {
		statusText = "INVALID_INPUT"
		return nil, errors.New("user: name and email are required")
	}

	id, err := s.seq.Next(ctx, sequence.Users)
	if err != nil {
		statusText = "SEQUENCE_FAILED"
		return nil, fmt.Errorf("user: allocate id: %w", err)
	}

	now := s.clock()
	u := &domain.User{
		ID:              id,
		Name:            input.Name,
		Email:           input.Email,
		IsAdmin:         input.IsAdmin,
		IsDeliveryAgent: input.IsDeliveryAgent,
		AgentActive:     input.AgentActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i, a := range input.Addresses {
		u.Addresses = append(u.Addresses, domain.Address{
			ID:         int64(i + 1),
			Line1:      a.Line1,
			City:       a.City,
			PostalCode: a.PostalCode,
		})
	}

	if err = s.repo.Create(ctx, u); err != nil {
		statusText = "REPO_CREATE_FAILED"
		return nil, fmt.Errorf("user: create: %w", err)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, userID int64) (*domain.User, error) {
	if !p.CanActFor(userID) {
		return nil, auth.ErrUnauthorized
	}
	return s.repo.Get(ctx, userID)
}
