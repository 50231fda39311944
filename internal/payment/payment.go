package payment

import (
	"context"
	"errors"
)

var ErrChargeFailed = errors.New("charge failed")

// Request carries whatever the gateway needs; this core never inspects
// card data beyond passing it through.
type Request struct {
	Amount     int64          `json:"amount"` // minor units
	Currency   string         `json:"currency"`
	CustomerID string         `json:"customer_id"`
	Method     string         `json:"method"` // card | paypal | apple-pay | google-pay
	Details    map[string]any `json:"details,omitempty"`

	// IdempotencyKey travels as a header, not in the body; gateways that
	// honor it return the original result for a retried charge.
	IdempotencyKey string `json:"-"`
}

type Result struct {
	Authorized bool   `json:"authorized"`
	Reference  string `json:"reference"`
	Reason     string `json:"reason,omitempty"`
}

// Charger is the opaque payment capability: one request/response with a
// caller-visible timeout, any non-success is a hard failure.
type Charger interface {
	Charge(ctx context.Context, req Request) (Result, error)
}
