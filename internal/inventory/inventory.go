package inventory

import (
	"errors"
	"time"
)

var (
	ErrRecordNotFound    = errors.New("inventory record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

type Status string

const (
	StatusInStock    Status = "in_stock"
	StatusLowStock   Status = "low_stock"
	StatusOutOfStock Status = "out_of_stock"
)

// DeriveStatus is the single source of truth for status. Quantity is the
// authoritative value; status is recomputed on every write and never set by
// a caller.
func DeriveStatus(quantity, reorderLevel int32) Status {
	switch {
	case quantity == 0:
		return StatusOutOfStock
	case quantity <= reorderLevel:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

type Record struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	VariantID    string    `json:"variant_id,omitempty"`
	Quantity     int32     `json:"quantity"`
	Reserved     int32     `json:"reserved"`
	ReorderLevel int32     `json:"reorder_level"`
	Status       Status    `json:"status"`
	Warehouse    string    `json:"warehouse,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

const (
	ReasonInitialStock     = "initial_stock"
	ReasonOrderPlaced      = "order_placed"
	ReasonManualAdjustment = "manual_adjustment"
	ReasonRestock          = "restock"
	ReasonDamage           = "damage"
)

// Movement rows are append-only; they are never updated or deleted.
type Movement struct {
	ID          string    `json:"id"`
	InventoryID string    `json:"inventory_id"`
	Direction   Direction `json:"direction"`
	Quantity    int32     `json:"quantity"` // magnitude, always > 0
	Reason      string    `json:"reason"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
