package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemLedger keeps the whole ledger in memory. Used for local runs and
// tests; the storefront service runs on PGLedger.
type MemLedger struct {
	mu        sync.Mutex
	records   map[string]Record
	movements map[string][]Movement
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		records:   make(map[string]Record),
		movements: make(map[string][]Movement),
	}
}

func (l *MemLedger) Get(ctx context.Context, inventoryID string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[inventoryID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (l *MemLedger) List(ctx context.Context, limit, offset int) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (l *MemLedger) Create(ctx context.Context, productID, variantID string, initialStock, reorderLevel int32) (Record, error) {
	if initialStock < 0 {
		return Record{}, ErrInvalidQuantity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.records {
		if rec.ProductID == productID && rec.VariantID == variantID {
			return Record{}, fmt.Errorf("inventory exists for product %s", productID)
		}
	}
	now := time.Now().UTC()
	rec := Record{
		ID:           uuid.NewString(),
		ProductID:    productID,
		VariantID:    variantID,
		Quantity:     initialStock,
		ReorderLevel: reorderLevel,
		Status:       DeriveStatus(initialStock, reorderLevel),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	l.records[rec.ID] = rec
	if initialStock > 0 {
		l.append(rec.ID, DirectionIn, initialStock, ReasonInitialStock, "")
	}
	return rec, nil
}

func (l *MemLedger) Adjust(ctx context.Context, inventoryID string, delta int32, reason, note string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adjustLocked(inventoryID, delta, reason, note)
}

func (l *MemLedger) adjustLocked(inventoryID string, delta int32, reason, note string) (Record, error) {
	rec, ok := l.records[inventoryID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	if delta == 0 {
		return rec, nil
	}
	next := rec.Quantity + delta
	if next < 0 {
		return Record{}, ErrInsufficientStock
	}
	rec.Quantity = next
	rec.Status = DeriveStatus(next, rec.ReorderLevel)
	rec.UpdatedAt = time.Now().UTC()
	l.records[inventoryID] = rec

	dir := DirectionIn
	magnitude := delta
	if delta < 0 {
		dir = DirectionOut
		magnitude = -delta
	}
	l.append(inventoryID, dir, magnitude, reason, note)
	return rec, nil
}

func (l *MemLedger) SetAbsolute(ctx context.Context, inventoryID string, quantity int32, reason string) (Record, error) {
	if quantity < 0 {
		return Record{}, ErrInvalidQuantity
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[inventoryID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	delta := quantity - rec.Quantity
	if delta == 0 {
		return rec, nil
	}
	note := fmt.Sprintf("Quantity updated from %d to %d", rec.Quantity, quantity)
	return l.adjustLocked(inventoryID, delta, reason, note)
}

func (l *MemLedger) Movements(ctx context.Context, inventoryID string) ([]Movement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mvs := l.movements[inventoryID]
	out := make([]Movement, len(mvs))
	copy(out, mvs)
	return out, nil
}

func (l *MemLedger) append(inventoryID string, dir Direction, magnitude int32, reason, note string) {
	l.movements[inventoryID] = append(l.movements[inventoryID], Movement{
		ID:          uuid.NewString(),
		InventoryID: inventoryID,
		Direction:   dir,
		Quantity:    magnitude,
		Reason:      reason,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
	})
}
