package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/order"
	"github.com/nazeru/storefront-core-go/internal/payment"
	"github.com/nazeru/storefront-core-go/internal/shipping"
)

type fakeCharger struct {
	mu       sync.Mutex
	requests []payment.Request
	decline  bool
	err      error

	// when set, Charge parks on entered/release so tests can hold a
	// submission in flight
	entered chan struct{}
	release chan struct{}
}

func (f *fakeCharger) Charge(_ context.Context, req payment.Request) (payment.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return payment.Result{}, f.err
	}
	if f.decline {
		return payment.Result{Authorized: false, Reason: "card declined"}, nil
	}
	return payment.Result{Authorized: true, Reference: "ch_test_1"}, nil
}

type fakePlacer struct {
	mu     sync.Mutex
	inputs []order.PlaceOrderInput
	failN  int // fail this many calls before succeeding
}

func (f *fakePlacer) PlaceOrder(_ context.Context, in order.PlaceOrderInput) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	if f.failN > 0 {
		f.failN--
		return nil, order.ErrOrderCreationFailed
	}
	return &order.Order{ID: "o1", Number: "ORD-20260830-AB12CD34", CustomerID: in.CustomerID}, nil
}

func testAddress() address.CheckoutAddress {
	return address.CheckoutAddress{
		Address: address.Address{
			Street:     "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
			Type:       address.TypeHome,
		},
		Contact: address.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
	}
}

func testCart() cart.Cart {
	return cart.Cart{
		OwnerKey: "cust-1",
		Items: []cart.LineItem{
			{ProductID: "p1", Name: "Widget", SKU: "W-1", Price: 1000, Quantity: 2},
		},
	}
}

func standardMethod(t *testing.T) shipping.Method {
	t.Helper()
	m, err := shipping.Lookup("standard")
	require.NoError(t, err)
	return m
}

func readySession(t *testing.T) *Session {
	t.Helper()
	s := newSession("cust-1", true)
	require.NoError(t, s.SetShippingAddress(testAddress()))
	require.NoError(t, s.SelectShippingMethod(standardMethod(t)))
	require.Equal(t, StepPayment, s.State().Step)
	return s
}

func TestForwardGuards(t *testing.T) {
	s := newSession("cust-1", true)
	require.Equal(t, StepAddress, s.State().Step)

	err := s.SelectShippingMethod(standardMethod(t))
	require.ErrorIs(t, err, ErrAddressRequired)

	_, err = s.Submit(context.Background(), testCart(), Deps{}, "card", nil)
	require.ErrorIs(t, err, ErrAddressRequired)

	require.NoError(t, s.SetShippingAddress(testAddress()))
	require.Equal(t, StepShipping, s.State().Step)

	_, err = s.Submit(context.Background(), testCart(), Deps{}, "card", nil)
	require.ErrorIs(t, err, ErrShippingMethodRequired)

	require.NoError(t, s.SelectShippingMethod(standardMethod(t)))
	require.Equal(t, StepPayment, s.State().Step)
}

func TestNeedsAddressFormForNewCustomers(t *testing.T) {
	s := newSession("cust-1", false)
	assert.True(t, s.State().NeedsAddressForm)

	require.NoError(t, s.SetShippingAddress(testAddress()))
	assert.False(t, s.State().NeedsAddressForm)

	assert.False(t, newSession("cust-2", true).State().NeedsAddressForm)
}

func TestBackMovesFreely(t *testing.T) {
	s := readySession(t)
	key := s.idempotencyKey
	require.NotEmpty(t, key)

	s.Back()
	require.Equal(t, StepShipping, s.State().Step)
	s.Back()
	require.Equal(t, StepAddress, s.State().Step)
	s.Back()
	require.Equal(t, StepAddress, s.State().Step)

	// re-advancing keeps the minted key: the attempt is still the same
	require.NoError(t, s.SetShippingAddress(testAddress()))
	require.NoError(t, s.SelectShippingMethod(standardMethod(t)))
	assert.Equal(t, key, s.idempotencyKey)
}

func TestTotalClampsAtZero(t *testing.T) {
	s := readySession(t)
	s.SetDiscount("BIGSALE", 100_000)
	assert.Equal(t, int64(0), s.Total(testCart().Subtotal()))

	s.SetDiscount("SALE5", 500)
	assert.Equal(t, int64(2000+599-500), s.Total(testCart().Subtotal()))

	s.SetDiscount("NEG", -100)
	assert.Equal(t, int64(2000+599), s.Total(testCart().Subtotal()))
}

func TestSubmitChargesAndPlaces(t *testing.T) {
	s := readySession(t)
	s.SetDiscount("SALE5", 500)
	charger := &fakeCharger{}
	placer := &fakePlacer{}

	placed, err := s.Submit(context.Background(), testCart(), Deps{Charger: charger, Orders: placer},
		"card", map[string]any{"card_number": "4242424242424242"})
	require.NoError(t, err)
	require.NotNil(t, placed)

	st := s.State()
	assert.Equal(t, StepSubmitted, st.Step)
	assert.False(t, st.IsProcessing)
	assert.Equal(t, placed.Number, st.OrderNumber)

	require.Len(t, charger.requests, 1)
	assert.Equal(t, int64(2000+599-500), charger.requests[0].Amount)
	assert.Equal(t, "cust-1", charger.requests[0].CustomerID)
	assert.Equal(t, s.idempotencyKey, charger.requests[0].IdempotencyKey)

	require.Len(t, placer.inputs, 1)
	in := placer.inputs[0]
	assert.Equal(t, s.idempotencyKey, in.IdempotencyKey)
	assert.Equal(t, int64(500), in.Discount)
	assert.Equal(t, "ch_test_1", in.Payment.Reference)

	_, err = s.Submit(context.Background(), testCart(), Deps{Charger: charger, Orders: placer}, "card", nil)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Len(t, placer.inputs, 1)
}

func TestSubmitEmptyCart(t *testing.T) {
	s := readySession(t)
	_, err := s.Submit(context.Background(), cart.Cart{OwnerKey: "cust-1"}, Deps{}, "card", nil)
	require.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Equal(t, StepPayment, s.State().Step)
}

func TestDeclinedChargeKeepsSessionRetryable(t *testing.T) {
	s := readySession(t)
	charger := &fakeCharger{decline: true}
	placer := &fakePlacer{}
	deps := Deps{Charger: charger, Orders: placer}

	_, err := s.Submit(context.Background(), testCart(), deps, "card", nil)
	require.ErrorIs(t, err, payment.ErrChargeFailed)

	st := s.State()
	assert.Equal(t, StepPayment, st.Step)
	assert.False(t, st.IsProcessing)
	assert.Contains(t, st.Error, "card declined")
	assert.Empty(t, placer.inputs)

	charger.decline = false
	placed, err := s.Submit(context.Background(), testCart(), deps, "card", nil)
	require.NoError(t, err)
	assert.Equal(t, "o1", placed.ID)
}

func TestFailedPlacementReusesIdempotencyKey(t *testing.T) {
	s := readySession(t)
	charger := &fakeCharger{}
	placer := &fakePlacer{failN: 1}
	deps := Deps{Charger: charger, Orders: placer}

	_, err := s.Submit(context.Background(), testCart(), deps, "card", nil)
	require.ErrorIs(t, err, order.ErrOrderCreationFailed)
	assert.Equal(t, StepPayment, s.State().Step)

	_, err = s.Submit(context.Background(), testCart(), deps, "card", nil)
	require.NoError(t, err)

	require.Len(t, placer.inputs, 2)
	assert.Equal(t, placer.inputs[0].IdempotencyKey, placer.inputs[1].IdempotencyKey)
}

func TestDoubleSubmitIsDropped(t *testing.T) {
	s := readySession(t)
	charger := &fakeCharger{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	placer := &fakePlacer{}
	deps := Deps{Charger: charger, Orders: placer}

	type result struct {
		placed *order.Order
		err    error
	}
	first := make(chan result, 1)
	go func() {
		placed, err := s.Submit(context.Background(), testCart(), deps, "card", nil)
		first <- result{placed, err}
	}()

	select {
	case <-charger.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first submission never reached the charger")
	}

	_, err := s.Submit(context.Background(), testCart(), deps, "card", nil)
	require.ErrorIs(t, err, ErrAlreadyProcessing)

	close(charger.release)
	res := <-first
	require.NoError(t, res.err)
	require.NotNil(t, res.placed)

	require.Len(t, placer.inputs, 1)
	assert.Equal(t, StepSubmitted, s.State().Step)
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	require.Nil(t, m.Get("cust-1"))

	s := m.GetOrCreate("cust-1", true)
	require.Same(t, s, m.GetOrCreate("cust-1", true))
	require.Same(t, s, m.Get("cust-1"))

	require.NotSame(t, s, m.GetOrCreate("cust-2", false))

	m.Reset("cust-1")
	require.Nil(t, m.Get("cust-1"))
	require.NotSame(t, s, m.GetOrCreate("cust-1", true))
}
