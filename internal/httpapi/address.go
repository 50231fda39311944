package httpapi

import (
	"net/http"

	"github.com/nazeru/storefront-core-go/internal/address"
)

func (s *Server) addressesRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.addressesList(w, r)
	case http.MethodPost:
		s.addressesCreate(w, r)
	case http.MethodDelete:
		s.addressesDelete(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) addressesList(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	addrs, err := s.Addresses.List(r.Context(), id.CustomerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}

func (s *Server) addressesCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	var req address.CreateInput
	if !decode(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = address.TypeHome
	}
	created, err := s.Addresses.Create(r.Context(), id.CustomerID, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"address": created})
}

func (s *Server) addressesDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	addressID := r.URL.Query().Get("id")
	if addressID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id is required"})
		return
	}
	if err := s.Addresses.Delete(r.Context(), id.CustomerID, addressID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (s *Server) addressesDefault(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	id, ok := s.customer(w, r)
	if !ok {
		return
	}
	var req struct {
		AddressID string `json:"address_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.Addresses.SetDefault(r.Context(), id.CustomerID, req.AddressID); err != nil {
		writeErr(w, err)
		return
	}
	addrs, err := s.Addresses.List(r.Context(), id.CustomerID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"addresses": addrs})
}
