package httpapi

import (
	"net/http"
	"strings"

	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/identity"
)

type cartResponse struct {
	Cart     cart.Cart `json:"cart"`
	Subtotal int64     `json:"subtotal"`
}

func (s *Server) writeCart(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	c, err := s.Carts.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{Cart: c, Subtotal: c.Subtotal()})
}

func (s *Server) cartRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := s.ident(w, r)
	if !ok {
		return
	}
	s.writeCart(w, r, id)
}

func (s *Server) cartAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.ident(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int32  `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "product_id is required"})
		return
	}
	product, err := s.Catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.Carts.Add(r.Context(), id, product, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	s.writeCart(w, r, id)
}

func (s *Server) cartUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	id, ok := s.ident(w, r)
	if !ok {
		return
	}
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int32  `json:"quantity"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Carts.Update(r.Context(), id, req.ProductID, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	s.writeCart(w, r, id)
}

func (s *Server) cartRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := s.ident(w, r)
	if !ok {
		return
	}
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "product_id is required"})
		return
	}
	if err := s.Carts.Remove(r.Context(), id, productID); err != nil {
		writeErr(w, err)
		return
	}
	s.writeCart(w, r, id)
}

func (s *Server) cartClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := s.ident(w, r)
	if !ok {
		return
	}
	if err := s.Carts.Clear(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	s.writeCart(w, r, id)
}

// cartMerge folds the caller's previous anonymous cart into their durable
// one; the client sends the token it browsed with before signing in.
func (s *Server) cartMerge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	var req struct {
		AnonToken string `json:"anon_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Carts.MergeOnLogin(r.Context(), id, req.AnonToken); err != nil {
		writeErr(w, err)
		return
	}
	s.writeCart(w, r, id)
}
