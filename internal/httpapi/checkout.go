package httpapi

import (
	"net/http"
	"time"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/checkout"
	"github.com/nazeru/storefront-core-go/internal/identity"
	"github.com/nazeru/storefront-core-go/internal/shipping"
	"github.com/nazeru/storefront-core-go/pkg/idempotency"
	"github.com/nazeru/storefront-core-go/pkg/logging"
)

// session returns the live checkout session, creating one when the customer
// has none. A customer with an empty address book starts on the entry form.
func (s *Server) session(r *http.Request, id identity.Identity) (*checkout.Session, error) {
	if sess := s.Checkout.Get(id.CustomerID); sess != nil {
		return sess, nil
	}
	addrs, err := s.Addresses.List(r.Context(), id.CustomerID)
	if err != nil {
		return nil, err
	}
	return s.Checkout.GetOrCreate(id.CustomerID, len(addrs) > 0), nil
}

func (s *Server) checkoutState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	sess, err := s.session(r, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	c, err := s.Carts.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session":  sess.State(),
		"subtotal": c.Subtotal(),
		"total":    sess.Total(c.Subtotal()),
	})
}

func (s *Server) shippingMethods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"methods": shipping.Methods()})
}

// checkoutAddress takes either a saved address id or a full form entry.
func (s *Server) checkoutAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	var req struct {
		AddressID string           `json:"address_id,omitempty"`
		Address   *address.Address `json:"address,omitempty"`
		Contact   address.Contact  `json:"contact"`
	}
	if !decode(w, r, &req) {
		return
	}

	var selected address.Address
	switch {
	case req.AddressID != "":
		a, err := s.Addresses.Get(r.Context(), req.AddressID)
		if err != nil {
			writeErr(w, err)
			return
		}
		if a.CustomerID != id.CustomerID {
			writeErr(w, address.ErrNotFound)
			return
		}
		selected = a
	case req.Address != nil:
		selected = *req.Address
		selected.CustomerID = id.CustomerID
		if selected.Type == "" {
			selected.Type = address.TypeHome
		}
		if !selected.Type.Valid() {
			writeErr(w, address.ErrInvalidType)
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "address_id or address is required"})
		return
	}

	sess, err := s.session(r, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := sess.SetShippingAddress(address.CheckoutAddress{Address: selected, Contact: req.Contact}); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess.State()})
}

func (s *Server) checkoutShippingMethod(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	var req struct {
		MethodID string `json:"method_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	m, err := shipping.Lookup(req.MethodID)
	if err != nil {
		writeErr(w, err)
		return
	}
	sess, err := s.session(r, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := sess.SelectShippingMethod(m); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": sess.State()})
}

func (s *Server) checkoutSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentMethod  string         `json:"payment_method"`
		PaymentDetails map[string]any `json:"payment_details,omitempty"`
		CouponCode     string         `json:"coupon_code,omitempty"`
		Discount       int64          `json:"discount,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}

	sess, err := s.session(r, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.CouponCode != "" || req.Discount > 0 {
		sess.SetDiscount(req.CouponCode, req.Discount)
	}
	if key := idempotency.Key(r); key != "" {
		sess.AdoptIdempotencyKey(key)
	}

	c, err := s.Carts.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	start := time.Now()
	placed, err := sess.Submit(r.Context(), c, checkout.Deps{Charger: s.Charger, Orders: s.Placer},
		req.PaymentMethod, req.PaymentDetails)
	if err != nil {
		logging.Log(logging.Fields{
			Service:    "storefront",
			CustomerID: id.CustomerID,
			Step:       "checkout_submit",
			Status:     "failed",
			DurationMS: time.Since(start).Milliseconds(),
			Message:    err.Error(),
		})
		writeErr(w, err)
		return
	}
	logging.Log(logging.Fields{
		Service:    "storefront",
		CustomerID: id.CustomerID,
		OrderID:    placed.ID,
		Step:       "checkout_submit",
		Status:     string(placed.Status),
		DurationMS: time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"order": placed})
}

func (s *Server) checkoutReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	s.Checkout.Reset(id.CustomerID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}
