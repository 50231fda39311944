package contracts

import "time"

type Event struct {
	EventID    string         `json:"event_id"`
	OrderID    string         `json:"order_id,omitempty"`
	CustomerID string         `json:"customer_id,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload"`
}

const (
	EventOrderCreated      = "order.created"
	EventCartMerged        = "cart.merged"
	EventInventoryAdjusted = "inventory.adjusted"
	EventInventoryLowStock = "inventory.low_stock"
	EventInventoryDepleted = "inventory.out_of_stock"
)
