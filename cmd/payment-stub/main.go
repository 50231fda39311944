package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nazeru/storefront-core-go/pkg/idempotency"
	"github.com/nazeru/storefront-core-go/pkg/logging"
	"github.com/nazeru/storefront-core-go/pkg/metrics"
)

type ChargeRequest struct {
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	CustomerID string         `json:"customer_id"`
	Method     string         `json:"method"`
	Details    map[string]any `json:"details,omitempty"`
}

type ChargeResponse struct {
	Authorized bool   `json:"authorized"`
	Reference  string `json:"reference,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func main() {
	port := getenv("PORT", "8081")
	srvMetrics := metrics.NewServerMetrics("payment_stub")
	var seen sync.Map // idempotency key -> ChargeResponse

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.Handle("/metrics", metrics.Handler())

	mux.HandleFunc("/charge", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			srvMetrics.Observe("charge", "405", float64(time.Since(start).Milliseconds()))
			return
		}
		var req ChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
			srvMetrics.Observe("charge", "400", float64(time.Since(start).Milliseconds()))
			return
		}
		if req.Amount < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "amount must be >= 0"})
			srvMetrics.Observe("charge", "400", float64(time.Since(start).Milliseconds()))
			return
		}

		resp := authorize(req)
		// retried charges with the same key replay the original outcome
		if key := idempotency.Key(r); key != "" {
			if prev, loaded := seen.LoadOrStore(key, resp); loaded {
				resp = prev.(ChargeResponse)
			}
		}
		status := "authorized"
		if !resp.Authorized {
			status = "declined"
		}
		logging.Log(logging.Fields{
			Service:    "payment-stub",
			CustomerID: req.CustomerID,
			Step:       "charge",
			Status:     status,
			DurationMS: time.Since(start).Milliseconds(),
		})
		writeJSON(w, http.StatusOK, resp)
		srvMetrics.Observe("charge", "200", float64(time.Since(start).Milliseconds()))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("payment-stub listening on :%s", port)
	log.Fatal(srv.ListenAndServe())
}

// authorize is deterministic so failure paths can be exercised on demand:
// any card number ending in 0 is declined.
func authorize(req ChargeRequest) ChargeResponse {
	if card, ok := req.Details["card_number"].(string); ok && strings.HasSuffix(card, "0") {
		return ChargeResponse{Authorized: false, Reason: "card declined"}
	}
	return ChargeResponse{Authorized: true, Reference: "ch_" + uuid.NewString()}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
