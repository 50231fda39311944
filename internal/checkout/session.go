package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/order"
	"github.com/nazeru/storefront-core-go/internal/payment"
	"github.com/nazeru/storefront-core-go/internal/shipping"
)

var (
	ErrAddressRequired        = errors.New("shipping address required")
	ErrShippingMethodRequired = errors.New("shipping method required")
	ErrAlreadyProcessing      = errors.New("submission already processing")
	ErrAlreadySubmitted       = errors.New("checkout already submitted")
)

type Step string

const (
	StepAddress   Step = "address"
	StepShipping  Step = "shipping"
	StepPayment   Step = "payment"
	StepSubmitted Step = "submitted"
)

// OrderPlacer is the coordinator seam; the session never touches storage
// directly.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (*order.Order, error)
}

type Deps struct {
	Charger payment.Charger
	Orders  OrderPlacer
}

// Session is one checkout attempt; discarded on success or reset.
type Session struct {
	mu sync.Mutex

	customerID string
	step       Step

	shippingAddress *address.CheckoutAddress
	method          *shipping.Method
	couponCode      string
	discount        int64

	isProcessing bool
	lastError    string

	// minted once on entry to Payment
	idempotencyKey string

	placed *order.Order

	// true when the customer has no saved addresses
	needsAddressForm bool
}

func newSession(customerID string, hasSavedAddresses bool) *Session {
	return &Session{
		customerID:       customerID,
		step:             StepAddress,
		needsAddressForm: !hasSavedAddresses,
	}
}

type State struct {
	Step             Step                     `json:"step"`
	ShippingAddress  *address.CheckoutAddress `json:"shipping_address,omitempty"`
	ShippingMethod   *shipping.Method         `json:"shipping_method,omitempty"`
	CouponCode       string                   `json:"coupon_code,omitempty"`
	Discount         int64                    `json:"discount"`
	IsProcessing     bool                     `json:"is_processing"`
	Error            string                   `json:"error,omitempty"`
	NeedsAddressForm bool                     `json:"needs_address_form"`
	OrderID          string                   `json:"order_id,omitempty"`
	OrderNumber      string                   `json:"order_number,omitempty"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Step:             s.step,
		ShippingAddress:  s.shippingAddress,
		ShippingMethod:   s.method,
		CouponCode:       s.couponCode,
		Discount:         s.discount,
		IsProcessing:     s.isProcessing,
		Error:            s.lastError,
		NeedsAddressForm: s.needsAddressForm,
	}
	if s.placed != nil {
		st.OrderID = s.placed.ID
		st.OrderNumber = s.placed.Number
	}
	return st
}

func (s *Session) SetShippingAddress(a address.CheckoutAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == StepSubmitted {
		return ErrAlreadySubmitted
	}
	s.shippingAddress = &a
	s.needsAddressForm = false
	if s.step == StepAddress {
		s.step = StepShipping
	}
	return nil
}

// SelectShippingMethod is guarded: no address, no shipping selection.
func (s *Session) SelectShippingMethod(m shipping.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step == StepSubmitted {
		return ErrAlreadySubmitted
	}
	if s.shippingAddress == nil {
		return ErrAddressRequired
	}
	s.method = &m
	if s.step == StepAddress || s.step == StepShipping {
		s.step = StepPayment
	}
	if s.idempotencyKey == "" {
		s.idempotencyKey = uuid.NewString()
	}
	return nil
}

// AdoptIdempotencyKey lets an API client pin the submission key. Ignored
// once a submission is in flight or done.
func (s *Session) AdoptIdempotencyKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key == "" || s.isProcessing || s.step == StepSubmitted {
		return
	}
	s.idempotencyKey = key
}

func (s *Session) SetDiscount(code string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount < 0 {
		amount = 0
	}
	s.couponCode = code
	s.discount = amount
}

// Back steps backward freely; forward movement goes through the guards.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.step {
	case StepShipping:
		s.step = StepAddress
	case StepPayment:
		s.step = StepShipping
	}
}

// Total is subtotal + shipping - discount, never below zero.
func (s *Session) Total(subtotal int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalLocked(subtotal)
}

func (s *Session) totalLocked(subtotal int64) int64 {
	total := subtotal
	if s.method != nil {
		total += s.method.Price
	}
	total -= s.discount
	if total < 0 {
		total = 0
	}
	return total
}

// Submit charges, then delegates to the coordinator. A second call while
// one is in flight is dropped; on failure the session stays in Payment.
func (s *Session) Submit(ctx context.Context, c cart.Cart, deps Deps, method string, details map[string]any) (*order.Order, error) {
	s.mu.Lock()
	if s.step == StepSubmitted {
		s.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if s.shippingAddress == nil {
		s.mu.Unlock()
		return nil, ErrAddressRequired
	}
	if s.method == nil || s.step != StepPayment {
		s.mu.Unlock()
		return nil, ErrShippingMethodRequired
	}
	if s.isProcessing {
		s.mu.Unlock()
		return nil, ErrAlreadyProcessing
	}
	if c.Empty() {
		s.mu.Unlock()
		return nil, order.ErrEmptyCart
	}
	s.isProcessing = true
	s.lastError = ""
	shippingAddress := *s.shippingAddress
	shippingMethod := *s.method
	discount := s.discount
	idemKey := s.idempotencyKey
	total := s.totalLocked(c.Subtotal())
	s.mu.Unlock()

	result, err := deps.Charger.Charge(ctx, payment.Request{
		Amount:         total,
		Currency:       "USD",
		CustomerID:     s.customerID,
		Method:         method,
		Details:        details,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return nil, s.failSubmit(fmt.Errorf("%w: %w", payment.ErrChargeFailed, err))
	}
	if !result.Authorized {
		return nil, s.failSubmit(fmt.Errorf("%w: %s", payment.ErrChargeFailed, result.Reason))
	}

	placed, err := deps.Orders.PlaceOrder(ctx, order.PlaceOrderInput{
		CustomerID:      s.customerID,
		Cart:            c,
		ShippingAddress: shippingAddress,
		ShippingMethod:  shippingMethod,
		Discount:        discount,
		Payment:         result,
		IdempotencyKey:  idemKey,
	})
	if err != nil {
		return nil, s.failSubmit(err)
	}

	s.mu.Lock()
	s.step = StepSubmitted
	s.isProcessing = false
	s.placed = placed
	s.mu.Unlock()
	return placed, nil
}

func (s *Session) failSubmit(err error) error {
	s.mu.Lock()
	s.isProcessing = false
	s.lastError = err.Error()
	s.mu.Unlock()
	return err
}
