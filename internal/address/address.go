package address

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("address not found")
	ErrInvalidType = errors.New("invalid address type")
)

type Type string

const (
	TypeHome   Type = "home"
	TypeOffice Type = "office"
	TypeOther  Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeHome, TypeOffice, TypeOther:
		return true
	}
	return false
}

type Address struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Type       Type      `json:"type"`
	Street     string    `json:"street"`
	Apartment  string    `json:"apartment,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	IsShipping bool      `json:"is_shipping"`
	IsBilling  bool      `json:"is_billing"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Contact is the personal projection carried on checkout addresses; it is
// not part of the reusable book record.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (c Contact) FullName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CheckoutAddress is an address as it travels through a checkout attempt.
type CheckoutAddress struct {
	Address
	Contact Contact `json:"contact"`
}

type CreateInput struct {
	Type       Type   `json:"type"`
	Street     string `json:"street"`
	Apartment  string `json:"apartment,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"is_default"`
	IsShipping bool   `json:"is_shipping"`
	IsBilling  bool   `json:"is_billing"`
}

// Book stores a customer's reusable addresses. At most one address per
// customer carries IsDefault; Create and SetDefault flip the previous
// default atomically with the new one.
type Book interface {
	List(ctx context.Context, customerID string) ([]Address, error)
	Get(ctx context.Context, addressID string) (Address, error)
	Create(ctx context.Context, customerID string, in CreateInput) (Address, error)
	SetDefault(ctx context.Context, customerID, addressID string) error
	Delete(ctx context.Context, customerID, addressID string) error
}
