package cart

import (
	"context"
	"sync"
	"time"

	"github.com/nazeru/storefront-core-go/internal/catalog"
)

// MemStore backs anonymous carts, scoped by browser session token.
type MemStore struct {
	mu     sync.Mutex
	carts  map[string][]LineItem
	merges map[[2]string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		carts:  make(map[string][]LineItem),
		merges: make(map[[2]string]bool),
	}
}

func (s *MemStore) Get(ctx context.Context, ownerKey string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[ownerKey]
	out := make([]LineItem, len(items))
	copy(out, items)
	return Cart{OwnerKey: ownerKey, Items: out}, nil
}

func (s *MemStore) Add(ctx context.Context, ownerKey string, product catalog.Product, qty int32) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(ownerKey, LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		SKU:       product.SKU,
		Price:     product.Price,
		Quantity:  qty,
	})
	return nil
}

func (s *MemStore) Update(ctx context.Context, ownerKey string, productID string, qty int32) error {
	if qty <= 0 {
		return s.Remove(ctx, ownerKey, productID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[ownerKey]
	for i, it := range items {
		if it.ProductID == productID {
			items[i].Quantity = qty
			return nil
		}
	}
	return nil
}

func (s *MemStore) Remove(ctx context.Context, ownerKey string, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.carts[ownerKey]
	for i, it := range items {
		if it.ProductID == productID {
			s.carts[ownerKey] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemStore) Clear(ctx context.Context, ownerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, ownerKey)
	return nil
}

// Merge folds items and marks the pair merged under one lock acquisition.
func (s *MemStore) Merge(ctx context.Context, customerID, anonToken string, items []LineItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{customerID, anonToken}
	if s.merges[key] {
		return false, nil
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return false, ErrInvalidQuantity
		}
	}
	for _, it := range items {
		s.addLocked(customerID, it)
	}
	s.merges[key] = true
	return true, nil
}

func (s *MemStore) addLocked(ownerKey string, line LineItem) {
	items := s.carts[ownerKey]
	for i, it := range items {
		if it.ProductID == line.ProductID {
			items[i].Quantity += line.Quantity
			return
		}
	}
	if line.AddedAt.IsZero() {
		line.AddedAt = time.Now().UTC()
	}
	s.carts[ownerKey] = append(items, line)
}
