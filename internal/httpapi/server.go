package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/checkout"
	"github.com/nazeru/storefront-core-go/internal/identity"
	"github.com/nazeru/storefront-core-go/internal/inventory"
	"github.com/nazeru/storefront-core-go/internal/order"
	"github.com/nazeru/storefront-core-go/internal/payment"
	"github.com/nazeru/storefront-core-go/internal/shipping"
	"github.com/nazeru/storefront-core-go/pkg/metrics"
)

// OrderReader is the read side of orders used by the HTTP surface.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	ListOrders(ctx context.Context, customerID string, limit int) ([]*order.Order, error)
}

type Server struct {
	Identity  *identity.Provider
	Carts     *cart.Service
	Catalog   catalog.Getter
	Addresses address.Book
	Inventory inventory.Ledger
	Checkout  *checkout.Manager
	Orders    OrderReader
	Placer    checkout.OrderPlacer
	Charger   payment.Charger
	Metrics   *metrics.ServerMetrics
}

func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler())

	s.handle(mux, "/cart", "cart", s.cartRoot)
	s.handle(mux, "/cart/add", "cart_add", s.cartAdd)
	s.handle(mux, "/cart/update", "cart_update", s.cartUpdate)
	s.handle(mux, "/cart/remove", "cart_remove", s.cartRemove)
	s.handle(mux, "/cart/clear", "cart_clear", s.cartClear)
	s.handle(mux, "/cart/merge", "cart_merge", s.cartMerge)

	s.handle(mux, "/checkout", "checkout", s.checkoutState)
	s.handle(mux, "/checkout/shipping-methods", "shipping_methods", s.shippingMethods)
	s.handle(mux, "/checkout/address", "checkout_address", s.checkoutAddress)
	s.handle(mux, "/checkout/shipping-method", "checkout_shipping", s.checkoutShippingMethod)
	s.handle(mux, "/checkout/submit", "checkout_submit", s.checkoutSubmit)
	s.handle(mux, "/checkout/reset", "checkout_reset", s.checkoutReset)

	s.handle(mux, "/addresses", "addresses", s.addressesRoot)
	s.handle(mux, "/addresses/default", "addresses_default", s.addressesDefault)

	s.handle(mux, "/orders", "orders", s.ordersList)
	s.handle(mux, "/orders/", "order_get", s.orderGet)

	s.handle(mux, "/admin/inventory", "admin_inventory", s.adminInventory)
	s.handle(mux, "/admin/inventory/adjust", "admin_inventory_adjust", s.adminInventoryAdjust)
	s.handle(mux, "/admin/inventory/movements", "admin_inventory_movements", s.adminInventoryMovements)

	return mux
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handle(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		if s.Metrics != nil {
			s.Metrics.Observe(name, strconv.Itoa(rec.status), float64(time.Since(start).Milliseconds()))
		}
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}

// statusFor maps the error taxonomy onto HTTP codes: validation 400, guard
// and stock conflicts 409, missing records 404, failed charges 402, a failed
// order transaction 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, address.ErrInvalidType),
		errors.Is(err, shipping.ErrUnknownMethod):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrAddressRequired),
		errors.Is(err, checkout.ErrShippingMethodRequired),
		errors.Is(err, checkout.ErrAlreadyProcessing),
		errors.Is(err, checkout.ErrAlreadySubmitted),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, address.ErrNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, inventory.ErrRecordNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, cart.ErrAuthenticatedOnly),
		errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, payment.ErrChargeFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, order.ErrOrderCreationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ident resolves the caller. Anonymous callers get their session token echoed
// back so the client can persist a freshly minted one.
func (s *Server) ident(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, err := s.Identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return identity.Identity{}, false
	}
	if id.Anonymous {
		w.Header().Set(identity.SessionHeader, id.SessionToken)
	}
	return id, true
}

// customer is ident plus a signed-in requirement.
func (s *Server) customer(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := s.ident(w, r)
	if !ok {
		return identity.Identity{}, false
	}
	if id.Anonymous {
		writeErr(w, cart.ErrAuthenticatedOnly)
		return identity.Identity{}, false
	}
	return id, true
}

// admin is customer plus the admin role.
func (s *Server) admin(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := s.customer(w, r)
	if !ok {
		return identity.Identity{}, false
	}
	if !id.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "admin role required"})
		return identity.Identity{}, false
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return false
	}
	return true
}
