package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-core-go/internal/address"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOrderNotFound        = errors.New("order not found")
	ErrPaymentNotAuthorized = errors.New("payment not authorized")
	// ErrOrderCreationFailed wraps the underlying cause of a rolled-back
	// order transaction.
	ErrOrderCreationFailed = errors.New("order creation failed")

	errIdempotencyRace = errors.New("idempotency race")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Item is a purchase-time snapshot: name/sku/price are copied, never
// re-derived from the live catalog.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Price     int64  `json:"price"` // unit price, minor units
	Quantity  int32  `json:"quantity"`
}

type Order struct {
	ID                string          `json:"id"`
	Number            string          `json:"number"`
	CustomerID        string          `json:"customer_id"`
	ShippingAddressID string          `json:"shipping_address_id"`
	ShippingMethodID  string          `json:"shipping_method_id"`
	Contact           address.Contact `json:"contact"`
	Items             []Item          `json:"items"`
	Subtotal          int64           `json:"subtotal"`
	Tax               int64           `json:"tax"`
	Shipping          int64           `json:"shipping"`
	Discount          int64           `json:"discount"`
	Total             int64           `json:"total"`
	PaymentReference  string          `json:"payment_reference"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// newOrderNumber builds a human-readable number. The random tail keeps
// concurrent checkouts from colliding the way a bare timestamp would; the
// unique constraint on orders.order_number is the final arbiter.
func newOrderNumber(now time.Time) string {
	tail := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), tail)
}
