package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/inventory"
	"github.com/nazeru/storefront-core-go/internal/payment"
	"github.com/nazeru/storefront-core-go/internal/shipping"
	"github.com/nazeru/storefront-core-go/pkg/contracts"
	"github.com/nazeru/storefront-core-go/pkg/logging"
)

const EventsTopic = "storefront.events"

type PlaceOrderInput struct {
	CustomerID      string
	Cart            cart.Cart
	ShippingAddress address.CheckoutAddress
	ShippingMethod  shipping.Method
	Discount        int64
	Payment         payment.Result
	IdempotencyKey  string
}

// Coordinator executes the order-creation transaction: address resolve,
// order + item snapshot insert, inventory decrement with movements, cart
// clear, and the order.created outbox row — all against one unit of work.
type Coordinator struct {
	store Store
}

func NewCoordinator(store Store) *Coordinator {
	return &Coordinator{store: store}
}

func (c *Coordinator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, error) {
	if in.Cart.Empty() {
		return nil, ErrEmptyCart
	}
	if !in.Payment.Authorized {
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, ErrPaymentNotAuthorized)
	}

	start := time.Now()
	var placed *Order
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := tx.OrderByIdempotencyKey(ctx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				placed = existing
				return nil
			}
		}

		bookAddr := in.ShippingAddress.Address
		bookAddr.CustomerID = in.CustomerID
		resolved, err := tx.ResolveShippingAddress(ctx, bookAddr)
		if err != nil {
			return fmt.Errorf("resolve address: %w", err)
		}

		number, err := c.uniqueNumber(ctx, tx)
		if err != nil {
			return err
		}

		o := &Order{
			ID:                uuid.NewString(),
			Number:            number,
			CustomerID:        in.CustomerID,
			ShippingAddressID: resolved.ID,
			ShippingMethodID:  in.ShippingMethod.ID,
			Contact:           in.ShippingAddress.Contact,
			Subtotal:          in.Cart.Subtotal(),
			Shipping:          in.ShippingMethod.Price,
			Discount:          in.Discount,
			PaymentReference:  in.Payment.Reference,
			Status:            StatusPending,
		}
		o.Total = o.Subtotal + o.Tax + o.Shipping - o.Discount
		if o.Total < 0 {
			o.Total = 0
		}

		for _, line := range in.Cart.Items {
			p, err := tx.GetProduct(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("snapshot product %s: %w", line.ProductID, err)
			}
			o.Items = append(o.Items, Item{
				ProductID: line.ProductID,
				Name:      p.Name,
				SKU:       p.SKU,
				Price:     line.Price, // captured at add time, not the live price
				Quantity:  line.Quantity,
			})
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if in.IdempotencyKey != "" {
			if err := tx.BindIdempotencyKey(ctx, in.IdempotencyKey, o.ID); err != nil {
				return err
			}
		}

		for _, it := range o.Items {
			rec, err := tx.DecrementStock(ctx, it.ProductID, it.Quantity, o.Number)
			if err != nil {
				if errors.Is(err, inventory.ErrInsufficientStock) {
					return fmt.Errorf("product %s: %w", it.ProductID, ErrInsufficientStock)
				}
				return fmt.Errorf("adjust inventory for %s: %w", it.ProductID, err)
			}
			if rec.Status != inventory.StatusInStock {
				if err := tx.StageEvent(ctx, EventsTopic, lowStockEvent(rec)); err != nil {
					return err
				}
			}
		}

		if err := tx.ClearCart(ctx, in.CustomerID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		eventID := uuid.NewString()
		if err := tx.StageEvent(ctx, EventsTopic, contracts.Event{
			EventID:    eventID,
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			CreatedAt:  time.Now().UTC(),
			Type:       contracts.EventOrderCreated,
			Payload: map[string]any{
				"order_number": o.Number,
				"total":        o.Total,
				"items":        len(o.Items),
			},
		}); err != nil {
			return err
		}

		placed = o
		return nil
	})

	if err != nil {
		// a concurrent submission with the same key won the insert; hand
		// back its order instead of failing the retry
		if errors.Is(err, errIdempotencyRace) && in.IdempotencyKey != "" {
			if existing, qerr := c.store.FindByIdempotencyKey(ctx, in.IdempotencyKey); qerr == nil && existing != nil {
				return existing, nil
			}
		}
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrOrderCreationFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}

	logging.Log(logging.Fields{
		Service:    "order-coordinator",
		CustomerID: in.CustomerID,
		OrderID:    placed.ID,
		Step:       "place_order",
		Status:     string(placed.Status),
		DurationMS: time.Since(start).Milliseconds(),
	})
	return placed, nil
}

func (c *Coordinator) uniqueNumber(ctx context.Context, tx Tx) (string, error) {
	for i := 0; i < 5; i++ {
		number := newOrderNumber(time.Now())
		exists, err := tx.OrderNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", errors.New("could not generate a unique order number")
}

func lowStockEvent(rec inventory.Record) contracts.Event {
	eventType := contracts.EventInventoryLowStock
	if rec.Status == inventory.StatusOutOfStock {
		eventType = contracts.EventInventoryDepleted
	}
	return contracts.Event{
		EventID:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Type:      eventType,
		Payload: map[string]any{
			"inventory_id": rec.ID,
			"product_id":   rec.ProductID,
			"quantity":     rec.Quantity,
			"reorder":      rec.ReorderLevel,
		},
	}
}
