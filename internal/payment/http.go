package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nazeru/storefront-core-go/pkg/idempotency"
)

// HTTPCharger posts to a payment endpoint (e.g. cmd/payment-stub in dev,
// a real gateway adapter in production).
type HTTPCharger struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPCharger(baseURL string, timeout time.Duration) *HTTPCharger {
	return &HTTPCharger{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCharger) Charge(ctx context.Context, req Request) (Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/charge", bytes.NewReader(data))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	idempotency.Set(httpReq.Header, req.IdempotencyKey)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("payment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: status %d", ErrChargeFailed, resp.StatusCode)
	}
	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, err
	}
	return res, nil
}
