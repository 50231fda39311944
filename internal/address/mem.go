package address

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemBook struct {
	mu        sync.Mutex
	addresses map[string]Address // by id
}

func NewMemBook() *MemBook {
	return &MemBook{addresses: make(map[string]Address)}
}

func (b *MemBook) List(ctx context.Context, customerID string) ([]Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Address
	for _, a := range b.addresses {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (b *MemBook) Get(ctx context.Context, addressID string) (Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.addresses[addressID]
	if !ok {
		return Address{}, ErrNotFound
	}
	return a, nil
}

func (b *MemBook) Create(ctx context.Context, customerID string, in CreateInput) (Address, error) {
	if !in.Type.Valid() {
		return Address{}, ErrInvalidType
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if in.IsDefault {
		b.unsetDefaultLocked(customerID)
	}
	now := time.Now().UTC()
	a := Address{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Type:       in.Type,
		Street:     in.Street,
		Apartment:  in.Apartment,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		IsDefault:  in.IsDefault,
		IsShipping: in.IsShipping,
		IsBilling:  in.IsBilling,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.addresses[a.ID] = a
	return a, nil
}

func (b *MemBook) SetDefault(ctx context.Context, customerID, addressID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.addresses[addressID]
	if !ok || a.CustomerID != customerID {
		return ErrNotFound
	}
	b.unsetDefaultLocked(customerID)
	a.IsDefault = true
	a.UpdatedAt = time.Now().UTC()
	b.addresses[addressID] = a
	return nil
}

func (b *MemBook) Delete(ctx context.Context, customerID, addressID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.addresses[addressID]
	if !ok || a.CustomerID != customerID {
		return ErrNotFound
	}
	delete(b.addresses, addressID)
	return nil
}

func (b *MemBook) unsetDefaultLocked(customerID string) {
	for id, a := range b.addresses {
		if a.CustomerID == customerID && a.IsDefault {
			a.IsDefault = false
			b.addresses[id] = a
		}
	}
}
