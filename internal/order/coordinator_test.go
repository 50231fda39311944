package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/inventory"
	"github.com/nazeru/storefront-core-go/internal/payment"
	"github.com/nazeru/storefront-core-go/internal/shipping"
	"github.com/nazeru/storefront-core-go/pkg/contracts"
)

// fakeStore gives the coordinator real all-or-nothing semantics: the tx
// runs against a deep copy of the state, which replaces the original only
// when the function returns nil.
type fakeState struct {
	addresses []address.Address
	orders    map[string]*Order
	byNumber  map[string]string
	idem      map[string]string
	products  map[string]catalog.Product
	inv       map[string]inventory.Record // by product id
	movements []inventory.Movement
	carts     map[string][]cart.LineItem
	events    []contracts.Event
}

func newFakeState() *fakeState {
	return &fakeState{
		orders:   make(map[string]*Order),
		byNumber: make(map[string]string),
		idem:     make(map[string]string),
		products: make(map[string]catalog.Product),
		inv:      make(map[string]inventory.Record),
		carts:    make(map[string][]cart.LineItem),
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	c.addresses = append([]address.Address(nil), s.addresses...)
	for k, v := range s.orders {
		cp := *v
		cp.Items = append([]Item(nil), v.Items...)
		c.orders[k] = &cp
	}
	for k, v := range s.byNumber {
		c.byNumber[k] = v
	}
	for k, v := range s.idem {
		c.idem[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.inv {
		c.inv[k] = v
	}
	c.movements = append([]inventory.Movement(nil), s.movements...)
	for k, v := range s.carts {
		c.carts[k] = append([]cart.LineItem(nil), v...)
	}
	c.events = append([]contracts.Event(nil), s.events...)
	return c
}

type fakeStore struct {
	state *fakeState
	// failStep forces the named sub-step to error, for rollback tests
	failStep string
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: newFakeState()}
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	staged := s.state.clone()
	if err := fn(&fakeTx{state: staged, failStep: s.failStep}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

func (s *fakeStore) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	if id, ok := s.state.idem[key]; ok {
		return s.state.orders[id], nil
	}
	return nil, nil
}

type fakeTx struct {
	state    *fakeState
	failStep string
}

func (t *fakeTx) fail(step string) error {
	if t.failStep == step {
		return fmt.Errorf("forced %s failure", step)
	}
	return nil
}

func (t *fakeTx) OrderByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	if id, ok := t.state.idem[key]; ok {
		return t.state.orders[id], nil
	}
	return nil, nil
}

func (t *fakeTx) ResolveShippingAddress(ctx context.Context, a address.Address) (address.Address, error) {
	if err := t.fail("resolve_address"); err != nil {
		return address.Address{}, err
	}
	for _, existing := range t.state.addresses {
		if existing.CustomerID == a.CustomerID && existing.Street == a.Street &&
			existing.City == a.City && existing.PostalCode == a.PostalCode {
			return existing, nil
		}
	}
	a.ID = uuid.NewString()
	t.state.addresses = append(t.state.addresses, a)
	return a, nil
}

func (t *fakeTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	_, ok := t.state.byNumber[number]
	return ok, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o *Order) error {
	if err := t.fail("insert_order"); err != nil {
		return err
	}
	if _, ok := t.state.byNumber[o.Number]; ok {
		return errors.New("duplicate order number")
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	t.state.orders[o.ID] = o
	t.state.byNumber[o.Number] = o.ID
	return nil
}

func (t *fakeTx) BindIdempotencyKey(ctx context.Context, key, orderID string) error {
	if _, ok := t.state.idem[key]; ok {
		return errIdempotencyRace
	}
	t.state.idem[key] = orderID
	return nil
}

func (t *fakeTx) GetProduct(ctx context.Context, productID string) (catalog.Product, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (t *fakeTx) DecrementStock(ctx context.Context, productID string, qty int32, orderNumber string) (inventory.Record, error) {
	rec, ok := t.state.inv[productID]
	if !ok {
		return inventory.Record{}, inventory.ErrRecordNotFound
	}
	next := rec.Quantity - qty
	if next < 0 {
		return inventory.Record{}, inventory.ErrInsufficientStock
	}
	rec.Quantity = next
	rec.Status = inventory.DeriveStatus(next, rec.ReorderLevel)
	t.state.inv[productID] = rec
	t.state.movements = append(t.state.movements, inventory.Movement{
		ID:          uuid.NewString(),
		InventoryID: rec.ID,
		Direction:   inventory.DirectionOut,
		Quantity:    qty,
		Reason:      inventory.ReasonOrderPlaced,
		Note:        "order " + orderNumber,
		CreatedAt:   time.Now().UTC(),
	})
	return rec, nil
}

func (t *fakeTx) ClearCart(ctx context.Context, customerID string) error {
	if err := t.fail("clear_cart"); err != nil {
		return err
	}
	delete(t.state.carts, customerID)
	return nil
}

func (t *fakeTx) StageEvent(ctx context.Context, topic string, evt contracts.Event) error {
	t.state.events = append(t.state.events, evt)
	return nil
}

// --- fixtures ---

var standardMethod = shipping.Method{ID: "standard", Name: "Standard Shipping", Price: 500, EstimatedDays: 7}

func seedScenario(store *fakeStore) PlaceOrderInput {
	store.state.products["P1"] = catalog.Product{ID: "P1", Name: "Widget", SKU: "W-1", Price: 1000}
	store.state.inv["P1"] = inventory.Record{
		ID: "inv-1", ProductID: "P1", Quantity: 3, ReorderLevel: 2,
		Status: inventory.StatusInStock,
	}
	lines := []cart.LineItem{{ProductID: "P1", Price: 1000, Quantity: 3}}
	store.state.carts["c1"] = lines

	return PlaceOrderInput{
		CustomerID: "c1",
		Cart:       cart.Cart{OwnerKey: "c1", Items: lines},
		ShippingAddress: address.CheckoutAddress{
			Address: address.Address{
				Type: address.TypeHome, Street: "1 Main St", City: "Springfield",
				State: "IL", PostalCode: "62701", Country: "US",
			},
			Contact: address.Contact{FirstName: "Jo", LastName: "Shopper", Email: "jo@example.com"},
		},
		ShippingMethod: standardMethod,
		Payment:        payment.Result{Authorized: true, Reference: "pay-123"},
		IdempotencyKey: "key-1",
	}
}

func TestPlaceOrderHappyPath(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)

	o, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.NoError(t, err)

	// totals: 3 x 10.00 + 5.00 shipping, no discount
	require.Equal(t, int64(3000), o.Subtotal)
	require.Equal(t, int64(500), o.Shipping)
	require.Equal(t, int64(3500), o.Total)
	require.Equal(t, StatusPending, o.Status)
	require.Len(t, o.Items, 1)
	require.Equal(t, "Widget", o.Items[0].Name)
	require.Equal(t, "W-1", o.Items[0].SKU)

	// inventory drained and derived out-of-stock
	rec := store.state.inv["P1"]
	require.Equal(t, int32(0), rec.Quantity)
	require.Equal(t, inventory.StatusOutOfStock, rec.Status)

	// exactly one "out" movement of magnitude 3
	require.Len(t, store.state.movements, 1)
	require.Equal(t, inventory.DirectionOut, store.state.movements[0].Direction)
	require.Equal(t, int32(3), store.state.movements[0].Quantity)
	require.Equal(t, inventory.ReasonOrderPlaced, store.state.movements[0].Reason)

	// cart cleared, address persisted, order.created staged
	require.Empty(t, store.state.carts["c1"])
	require.Len(t, store.state.addresses, 1)
	var sawCreated bool
	for _, evt := range store.state.events {
		if evt.Type == contracts.EventOrderCreated {
			sawCreated = true
		}
	}
	require.True(t, sawCreated)
}

func TestPlaceOrderRollsBackOnAddressFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)
	store.failStep = "resolve_address"

	_, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.ErrorIs(t, err, ErrOrderCreationFailed)

	// no partial state: inventory untouched, cart intact, nothing inserted
	require.Equal(t, int32(3), store.state.inv["P1"].Quantity)
	require.Len(t, store.state.carts["c1"], 1)
	require.Empty(t, store.state.orders)
	require.Empty(t, store.state.addresses)
	require.Empty(t, store.state.movements)
	require.Empty(t, store.state.events)
}

func TestPlaceOrderRollsBackOnCartClearFailure(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)
	store.failStep = "clear_cart"

	_, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.ErrorIs(t, err, ErrOrderCreationFailed)
	require.Equal(t, int32(3), store.state.inv["P1"].Quantity)
	require.Empty(t, store.state.orders)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)
	in.Cart.Items[0].Quantity = 4 // only 3 on hand

	_, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// the whole unit of work rolled back, including the order insert
	require.Equal(t, int32(3), store.state.inv["P1"].Quantity)
	require.Empty(t, store.state.orders)
	require.Len(t, store.state.carts["c1"], 1)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	store := newFakeStore()
	in := seedScenario(store)
	in.Cart.Items = nil

	_, err := NewCoordinator(store).PlaceOrder(context.Background(), in)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrderRejectsUnauthorizedPayment(t *testing.T) {
	store := newFakeStore()
	in := seedScenario(store)
	in.Payment = payment.Result{Authorized: false, Reason: "declined"}

	_, err := NewCoordinator(store).PlaceOrder(context.Background(), in)
	require.ErrorIs(t, err, ErrOrderCreationFailed)
	require.ErrorIs(t, err, ErrPaymentNotAuthorized)
	require.Equal(t, int32(3), store.state.inv["P1"].Quantity)
}

func TestPlaceOrderIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)
	coord := NewCoordinator(store)

	first, err := coord.PlaceOrder(ctx, in)
	require.NoError(t, err)

	// a retried submission with the same key must not run the transaction
	// again: same order back, inventory decremented exactly once
	second, err := coord.PlaceOrder(ctx, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Number, second.Number)

	// the replay hands back the full stored order, line items included
	require.Len(t, second.Items, 1)
	require.Equal(t, first.Items, second.Items)
	require.Equal(t, first.Total, second.Total)

	require.Equal(t, int32(0), store.state.inv["P1"].Quantity)
	require.Len(t, store.state.movements, 1)
	require.Len(t, store.state.orders, 1)
}

func TestPlaceOrderReusesEquivalentAddress(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)
	existing := in.ShippingAddress.Address
	existing.ID = "addr-1"
	existing.CustomerID = "c1"
	store.state.addresses = append(store.state.addresses, existing)

	o, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "addr-1", o.ShippingAddressID)
	require.Len(t, store.state.addresses, 1)
}

func TestPlaceOrderTotalClampedAtZero(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)
	in.Discount = 10_000 // larger than subtotal + shipping

	o, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.NoError(t, err)
	require.Equal(t, int64(0), o.Total)
}

func TestOrderNumberFormat(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	in := seedScenario(store)

	o, err := NewCoordinator(store).PlaceOrder(ctx, in)
	require.NoError(t, err)
	require.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, o.Number)
}
