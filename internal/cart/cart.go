package cart

import (
	"context"
	"errors"
	"time"

	"github.com/nazeru/storefront-core-go/internal/catalog"
)

var ErrInvalidQuantity = errors.New("invalid quantity")

// LineItem holds the unit price captured when the product was added; the
// live catalog price is never consulted again for an existing line.
type LineItem struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku"`
	Price     int64     `json:"price"` // minor units, snapshot at add time
	Quantity  int32     `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart has at most one line per product id. A cart with zero lines is valid.
type Cart struct {
	OwnerKey string     `json:"owner_key"`
	Items    []LineItem `json:"items"`
}

func (c Cart) Subtotal() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.Price * int64(it.Quantity)
	}
	return sum
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

func (c Cart) Find(productID string) (LineItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// Store is one persistence domain for carts: local-only for anonymous
// shoppers, durable for signed-in customers. Both obey the same semantics.
type Store interface {
	Get(ctx context.Context, ownerKey string) (Cart, error)
	// Add sums quantities on an existing line, otherwise creates a line with
	// the price snapshotted from product.
	Add(ctx context.Context, ownerKey string, product catalog.Product, qty int32) error
	// Update with qty <= 0 removes the line.
	Update(ctx context.Context, ownerKey string, productID string, qty int32) error
	// Remove is a no-op for an absent line.
	Remove(ctx context.Context, ownerKey string, productID string) error
	Clear(ctx context.Context, ownerKey string) error
}
