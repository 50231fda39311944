package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type record struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id,omitempty"`
	Quantity     int32  `json:"quantity"`
	ReorderLevel int32  `json:"reorder_level"`
	Status       string `json:"status"`
}

type client struct {
	baseURL string
	token   string
}

func newClient() client {
	return client{
		baseURL: strings.TrimRight(getenv("STOREFRONT_BASE_URL", "http://localhost:8080"), "/"),
		token:   strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
	}
}

func (c client) do(method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

func (c client) listInventory() ([]record, error) {
	data, err := c.do(http.MethodGet, "/admin/inventory", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Records []record `json:"records"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c client) adjust(inventoryID string, delta int32, reason string) error {
	_, err := c.do(http.MethodPost, "/admin/inventory/adjust", map[string]any{
		"inventory_id": inventoryID,
		"delta":        delta,
		"reason":       reason,
	})
	return err
}

type model struct {
	api     client
	records []record
	cursor  int
	pending int32
	status  string
	busy    bool
}

type refreshed struct {
	records []record
	err     error
}

type adjusted struct {
	err error
}

func initialModel(api client) model {
	return model{api: api, status: "Loading..."}
}

func (m model) Init() tea.Cmd {
	return refreshCmd(m.api)
}

func refreshCmd(api client) tea.Cmd {
	return func() tea.Msg {
		records, err := api.listInventory()
		return refreshed{records: records, err: err}
	}
}

func adjustCmd(api client, inventoryID string, delta int32) tea.Cmd {
	return func() tea.Msg {
		reason := "restock"
		if delta < 0 {
			reason = "manual_adjustment"
		}
		return adjusted{err: api.adjust(inventoryID, delta, reason)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.cursor > 0 {
				m.cursor--
				m.pending = 0
			}
		case "down":
			if m.cursor < len(m.records)-1 {
				m.cursor++
				m.pending = 0
			}
		case "+", "=":
			m.pending++
		case "-":
			m.pending--
		case "r":
			m.status = "Refreshing..."
			return m, refreshCmd(m.api)
		case "enter":
			if m.busy || m.pending == 0 || len(m.records) == 0 {
				return m, nil
			}
			m.busy = true
			m.status = "Applying..."
			return m, adjustCmd(m.api, m.records[m.cursor].ID, m.pending)
		}
	case refreshed:
		m.busy = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, nil
		}
		m.records = msg.records
		if m.cursor >= len(m.records) {
			m.cursor = 0
		}
		m.status = "Ready"
	case adjusted:
		m.busy = false
		m.pending = 0
		if msg.err != nil {
			m.status = fmt.Sprintf("Adjust failed: %v", msg.err)
			return m, nil
		}
		m.status = "Adjusted"
		return m, refreshCmd(m.api)
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintln(b, "storefront admin — inventory")
	fmt.Fprintln(b, "")
	if len(m.records) == 0 {
		fmt.Fprintln(b, " (no records)")
	}
	for i, rec := range m.records {
		marker := " "
		if i == m.cursor {
			marker = ">"
		}
		fmt.Fprintf(b, " %s %-36s qty=%-5d reorder=%-4d %s\n", marker, rec.ProductID, rec.Quantity, rec.ReorderLevel, rec.Status)
	}
	fmt.Fprintln(b, "")
	if m.pending != 0 {
		fmt.Fprintf(b, "Pending delta: %+d (enter to apply)\n", m.pending)
	}
	fmt.Fprintf(b, "Status: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: up/down select, +/- stage a delta, enter apply, r refresh, q quit")
	return b.String()
}

func main() {
	listOnly := flag.Bool("list", false, "print inventory records and exit")
	flag.Parse()

	api := newClient()
	if api.token == "" {
		fmt.Println("ADMIN_TOKEN is required")
		os.Exit(1)
	}

	if *listOnly {
		records, err := api.listInventory()
		if err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
		for _, rec := range records {
			fmt.Printf("%s product=%s qty=%d reorder=%d %s\n", rec.ID, rec.ProductID, rec.Quantity, rec.ReorderLevel, rec.Status)
		}
		return
	}

	p := tea.NewProgram(initialModel(api))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
