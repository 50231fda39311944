package cart

import (
	"context"
	"errors"

	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/identity"
)

var ErrAuthenticatedOnly = errors.New("operation requires a signed-in customer")

// MergeStore is a durable cart store that can also absorb an anonymous cart.
type MergeStore interface {
	Store

	// Merge folds items into the customer's cart with add semantics and
	// claims the (customer, anon token) pair in the same unit of work.
	// claimed == false means the pair was already merged; nothing changes.
	Merge(ctx context.Context, customerID, anonToken string, items []LineItem) (claimed bool, err error)
}

// Service picks the persistence domain from the caller's identity at call
// time: anonymous shoppers act on the local store, customers on the durable one.
type Service struct {
	anon    Store
	durable MergeStore
}

func NewService(anon Store, durable MergeStore) *Service {
	return &Service{anon: anon, durable: durable}
}

func (s *Service) storeFor(id identity.Identity) Store {
	if id.Anonymous {
		return s.anon
	}
	return s.durable
}

func (s *Service) Get(ctx context.Context, id identity.Identity) (Cart, error) {
	return s.storeFor(id).Get(ctx, id.Key())
}

func (s *Service) Add(ctx context.Context, id identity.Identity, product catalog.Product, qty int32) error {
	return s.storeFor(id).Add(ctx, id.Key(), product, qty)
}

func (s *Service) Update(ctx context.Context, id identity.Identity, productID string, qty int32) error {
	return s.storeFor(id).Update(ctx, id.Key(), productID, qty)
}

func (s *Service) Remove(ctx context.Context, id identity.Identity, productID string) error {
	return s.storeFor(id).Remove(ctx, id.Key(), productID)
}

func (s *Service) Clear(ctx context.Context, id identity.Identity) error {
	return s.storeFor(id).Clear(ctx, id.Key())
}

// MergeOnLogin folds the anonymous cart into the customer's durable cart,
// then discards the anonymous cart. The claim travels with the fold, so a
// replayed sign-in is a no-op and a failed fold can be retried.
func (s *Service) MergeOnLogin(ctx context.Context, id identity.Identity, anonToken string) error {
	if id.Anonymous || id.CustomerID == "" {
		return ErrAuthenticatedOnly
	}
	if anonToken == "" {
		return nil
	}
	anonCart, err := s.anon.Get(ctx, anonToken)
	if err != nil {
		return err
	}
	claimed, err := s.durable.Merge(ctx, id.CustomerID, anonToken, anonCart.Items)
	if err != nil || !claimed {
		return err
	}
	return s.anon.Clear(ctx, anonToken)
}
