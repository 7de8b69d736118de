package user

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("user: not found")
	ErrAddressNotFound = errors.New("user: address not found")
	ErrNotAgent        = errors.New("user: not a delivery agent")
	ErrAgentInactive   = errors.New("user: delivery agent is not active")
)

type Address struct {
	ID         int64
	Line1      string
	City       string
	PostalCode string
}

type User struct {
	ID        int64
	Name      string
	Email     string
	Addresses []Address

	OrderCount int
	TotalSpent decimal.Decimal

	IsAdmin         bool
	IsDeliveryAgent bool
	AgentActive     bool
	DeliveredCount  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddressByID resolves one of the user's saved addresses.
func (u *User) AddressByID(id int64) (Address, error) {
	for _, a := range u.Addresses {
		if a.ID == id {
			return a, nil
		}
	}
	return Address{}, ErrAddressNotFound
}

// AvailableAgent reports whether the user can be assigned deliveries.
func (u *User) AvailableAgent() error {
	if !u.IsDeliveryAgent {
		return ErrNotAgent
	}
	if !u.AgentActive {
		return ErrAgentInactive
	}
	return nil
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Addresses = append([]Address(nil), u.Addresses...)
	return &clone
}
