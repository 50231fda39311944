package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nazeru/storefront-core-go/internal/inventory"
)

func (s *Server) adminInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.adminInventoryList(w, r)
	case http.MethodPost:
		s.adminInventoryCreate(w, r)
	case http.MethodPatch:
		s.adminInventorySetAbsolute(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) adminInventoryList(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.admin(w, r); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	records, err := s.Inventory.List(r.Context(), limit, offset)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) adminInventoryCreate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.admin(w, r); !ok {
		return
	}
	var req struct {
		ProductID    string `json:"product_id"`
		VariantID    string `json:"variant_id,omitempty"`
		InitialStock int32  `json:"initial_stock"`
		ReorderLevel int32  `json:"reorder_level"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "product_id is required"})
		return
	}
	rec, err := s.Inventory.Create(r.Context(), req.ProductID, req.VariantID, req.InitialStock, req.ReorderLevel)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"record": rec})
}

// adminInventorySetAbsolute is the manual stock correction: the record is
// set to the given quantity and the delta lands as one movement.
func (s *Server) adminInventorySetAbsolute(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.admin(w, r); !ok {
		return
	}
	var req struct {
		InventoryID string `json:"inventory_id"`
		Quantity    int32  `json:"quantity"`
		Reason      string `json:"reason,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = inventory.ReasonManualAdjustment
	}
	rec, err := s.Inventory.SetAbsolute(r.Context(), req.InventoryID, req.Quantity, req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (s *Server) adminInventoryAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.admin(w, r); !ok {
		return
	}
	var req struct {
		InventoryID string `json:"inventory_id"`
		Delta       int32  `json:"delta"`
		Reason      string `json:"reason,omitempty"`
		Note        string `json:"note,omitempty"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = inventory.ReasonManualAdjustment
	}
	rec, err := s.Inventory.Adjust(r.Context(), req.InventoryID, req.Delta, req.Reason, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record": rec})
}

func (s *Server) adminInventoryMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := s.admin(w, r); !ok {
		return
	}
	inventoryID := r.URL.Query().Get("id")
	if inventoryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "id is required"})
		return
	}
	movements, err := s.Inventory.Movements(r.Context(), inventoryID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"movements": movements})
}
