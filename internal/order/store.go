package order

import (
	"context"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/inventory"
	"github.com/nazeru/storefront-core-go/pkg/contracts"
)

// Tx is one unit of work: every sub-step of order creation runs against
// the same transaction and commits or rolls back as a whole.
type Tx interface {
	// OrderByIdempotencyKey returns the stored order with its items, or
	// (nil, nil) when the key is unseen.
	OrderByIdempotencyKey(ctx context.Context, key string) (*Order, error)

	// ResolveShippingAddress reuses an equivalent book entry (same
	// customer, street, city, postal code) or creates a new one.
	ResolveShippingAddress(ctx context.Context, a address.Address) (address.Address, error)

	OrderNumberExists(ctx context.Context, number string) (bool, error)
	InsertOrder(ctx context.Context, o *Order) error
	BindIdempotencyKey(ctx context.Context, key, orderID string) error

	GetProduct(ctx context.Context, productID string) (catalog.Product, error)

	// DecrementStock takes qty out of the product's ledger, recomputes
	// status, and appends an "out" movement with reason order_placed.
	// A decrement below zero fails with inventory.ErrInsufficientStock.
	DecrementStock(ctx context.Context, productID string, qty int32, orderNumber string) (inventory.Record, error)

	ClearCart(ctx context.Context, customerID string) error

	// StageEvent writes an outbox row inside the transaction.
	StageEvent(ctx context.Context, topic string, evt contracts.Event) error
}

type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// FindByIdempotencyKey reads outside any transaction; used to resolve
	// replay races after a unique-violation rollback.
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
}
