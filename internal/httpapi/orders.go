package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nazeru/storefront-core-go/internal/order"
)

func (s *Server) ordersList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := s.Orders.ListOrders(r.Context(), id.CustomerID, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) orderGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimPrefix(r.URL.Path, "/orders/")
	if orderID == "" {
		writeErr(w, order.ErrOrderNotFound)
		return
	}
	o, err := s.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	// customers only see their own orders; admins see everything
	if o.CustomerID != id.CustomerID && !id.IsAdmin() {
		writeErr(w, order.ErrOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}
