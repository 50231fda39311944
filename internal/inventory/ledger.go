package inventory

import "context"

// Ledger owns per-product stock. Every quantity change recomputes status and
// appends a movement, so initial + Σin − Σout always equals the current
// quantity.
type Ledger interface {
	Get(ctx context.Context, inventoryID string) (Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)

	// Create seeds a record; an initialStock > 0 writes one "in" movement
	// with reason initial_stock.
	Create(ctx context.Context, productID, variantID string, initialStock, reorderLevel int32) (Record, error)

	// Adjust applies a signed delta. A delta that would take quantity below
	// zero fails with ErrInsufficientStock and changes nothing.
	Adjust(ctx context.Context, inventoryID string, delta int32, reason, note string) (Record, error)

	// SetAbsolute is the manual admin correction: delta = quantity - current,
	// one movement sized |delta| (none when delta == 0).
	SetAbsolute(ctx context.Context, inventoryID string, quantity int32, reason string) (Record, error)

	Movements(ctx context.Context, inventoryID string) ([]Movement, error)
}
