package catalog

import (
	"context"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the slice of the catalog this core needs: enough to snapshot a
// line item. It is read at add-to-cart and at order creation, never to
// refresh an existing line.
type Product struct {
	ID    string
	Name  string
	SKU   string
	Price int64 // minor units
}

type Getter interface {
	GetProduct(ctx context.Context, id string) (Product, error)
}
