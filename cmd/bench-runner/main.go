package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nazeru/storefront-core-go/internal/identity"
)

type benchResult struct {
	DurationSeconds float64        `json:"duration_seconds"`
	VUs             int            `json:"vus"`
	Checkouts       int            `json:"checkouts"`
	Errors          int            `json:"errors"`
	StatusCounts    map[string]int `json:"status_counts"`
	ThroughputPerS  float64        `json:"throughput_per_s"`
	P50LatencyMs    float64        `json:"p50_latency_ms"`
	P90LatencyMs    float64        `json:"p90_latency_ms"`
	P95LatencyMs    float64        `json:"p95_latency_ms"`
	P99LatencyMs    float64        `json:"p99_latency_ms"`
}

type metrics struct {
	mu          sync.Mutex
	latenciesMs []float64
	checkouts   int
	errors      int
	statuses    map[string]int
}

func newMetrics() *metrics {
	return &metrics{statuses: make(map[string]int)}
}

func (m *metrics) record(latency time.Duration, status int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.errors++
		m.statuses["transport_error"]++
		return
	}
	m.statuses[fmt.Sprintf("%d", status)]++
	if status == http.StatusCreated {
		m.checkouts++
		m.latenciesMs = append(m.latenciesMs, float64(latency.Milliseconds()))
	}
}

func main() {
	baseURL := flag.String("base-url", getenv("STOREFRONT_BASE_URL", "http://localhost:8080"), "storefront base URL")
	vus := flag.Int("vus", 5, "concurrent virtual shoppers")
	duration := flag.Duration("duration", 15*time.Second, "run duration")
	productID := flag.String("product", "p1", "product id to buy")
	quantity := flag.Int("quantity", 1, "quantity per checkout")
	outPath := flag.String("out", "", "write the JSON result to a file")
	flag.Parse()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		log.Fatal("JWT_SECRET is required to mint shopper tokens")
	}
	provider := identity.NewProvider(secret)

	m := newMetrics()
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < *vus; i++ {
		token, err := provider.Sign(fmt.Sprintf("bench-shopper-%d", i), "")
		if err != nil {
			log.Fatalf("token error: %v", err)
		}
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			shopper := newShopper(strings.TrimRight(*baseURL, "/"), token)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				latency, status, err := shopper.checkout(*productID, int32(*quantity))
				m.record(latency, status, err)
			}
		}(token)
	}
	wg.Wait()
	elapsed := time.Since(start)

	m.mu.Lock()
	sort.Float64s(m.latenciesMs)
	result := benchResult{
		DurationSeconds: elapsed.Seconds(),
		VUs:             *vus,
		Checkouts:       m.checkouts,
		Errors:          m.errors,
		StatusCounts:    m.statuses,
		ThroughputPerS:  float64(m.checkouts) / elapsed.Seconds(),
		P50LatencyMs:    percentile(m.latenciesMs, 0.50),
		P90LatencyMs:    percentile(m.latenciesMs, 0.90),
		P95LatencyMs:    percentile(m.latenciesMs, 0.95),
		P99LatencyMs:    percentile(m.latenciesMs, 0.99),
	}
	m.mu.Unlock()

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Fatalf("write result: %v", err)
		}
	}
}

type shopper struct {
	baseURL string
	token   string
	client  *http.Client
}

func newShopper(baseURL, token string) *shopper {
	return &shopper{baseURL: baseURL, token: token, client: &http.Client{Timeout: 10 * time.Second}}
}

// checkout drives one full flow: add to cart, set address, pick shipping,
// submit. Only the submit is timed; the earlier steps are setup.
func (s *shopper) checkout(productID string, qty int32) (time.Duration, int, error) {
	if _, err := s.post("/cart/add", map[string]any{"product_id": productID, "quantity": qty}); err != nil {
		return 0, 0, err
	}
	if _, err := s.post("/checkout/address", map[string]any{
		"address": map[string]any{
			"street": "1 Bench Way", "city": "Loadville", "postal_code": "00001", "country": "US",
		},
		"contact": map[string]any{"first_name": "Bench", "last_name": "Shopper", "email": "bench@example.com"},
	}); err != nil {
		return 0, 0, err
	}
	if _, err := s.post("/checkout/shipping-method", map[string]any{"method_id": "standard"}); err != nil {
		return 0, 0, err
	}

	start := time.Now()
	status, err := s.post("/checkout/submit", map[string]any{
		"payment_method":  "card",
		"payment_details": map[string]any{"card_number": "4242424242424242"},
	})
	latency := time.Since(start)
	if err != nil {
		return latency, 0, err
	}

	// the session is spent either way; start the next loop clean
	if _, err := s.post("/checkout/reset", nil); err != nil {
		return latency, status, err
	}
	return latency, status, nil
}

func (s *shopper) post(path string, payload any) (int, error) {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
