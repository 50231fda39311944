package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/storefront-core-go/pkg/contracts"
	"github.com/nazeru/storefront-core-go/pkg/outbox"
)

const EventsTopic = "storefront.events"

// PGLedger runs every quantity change and its movement row in one
// transaction, with the row locked FOR UPDATE.
type PGLedger struct {
	pool *pgxpool.Pool
}

func NewPGLedger(pool *pgxpool.Pool) *PGLedger {
	return &PGLedger{pool: pool}
}

const recordCols = `id, product_id, COALESCE(variant_id, ''), quantity, reserved, reorder, status, warehouse, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.VariantID, &rec.Quantity, &rec.Reserved,
		&rec.ReorderLevel, &rec.Status, &rec.Warehouse, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (l *PGLedger) Get(ctx context.Context, inventoryID string) (Record, error) {
	return scanRecord(l.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM inventory WHERE id=$1`, inventoryID))
}

func (l *PGLedger) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx,
		`SELECT `+recordCols+` FROM inventory ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PGLedger) Create(ctx context.Context, productID, variantID string, initialStock, reorderLevel int32) (Record, error) {
	if initialStock < 0 {
		return Record{}, ErrInvalidQuantity
	}
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec := Record{
		ID:           uuid.NewString(),
		ProductID:    productID,
		VariantID:    variantID,
		Quantity:     initialStock,
		ReorderLevel: reorderLevel,
		Status:       DeriveStatus(initialStock, reorderLevel),
	}
	var variant any
	if variantID != "" {
		variant = variantID
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO inventory(id, product_id, variant_id, quantity, reorder, status)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		rec.ID, productID, variant, initialStock, reorderLevel, rec.Status,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}

	if initialStock > 0 {
		if err := insertMovement(ctx, tx, rec.ID, DirectionIn, initialStock, ReasonInitialStock, ""); err != nil {
			return Record{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PGLedger) Adjust(ctx context.Context, inventoryID string, delta int32, reason, note string) (Record, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := adjustInTx(ctx, tx, inventoryID, delta, reason, note)
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PGLedger) SetAbsolute(ctx context.Context, inventoryID string, quantity int32, reason string) (Record, error) {
	if quantity < 0 {
		return Record{}, ErrInvalidQuantity
	}
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordCols+` FROM inventory WHERE id=$1 FOR UPDATE`, inventoryID))
	if err != nil {
		return Record{}, err
	}
	delta := quantity - current.Quantity
	if delta == 0 {
		return current, tx.Commit(ctx)
	}
	note := fmt.Sprintf("Quantity updated from %d to %d", current.Quantity, quantity)
	rec, err := adjustInTx(ctx, tx, inventoryID, delta, reason, note)
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (l *PGLedger) Movements(ctx context.Context, inventoryID string) ([]Movement, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, inventory_id, direction, quantity, reason, note, created_at
		 FROM inventory_movements WHERE inventory_id=$1 ORDER BY created_at, id`, inventoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Movement
	for rows.Next() {
		var mv Movement
		if err := rows.Scan(&mv.ID, &mv.InventoryID, &mv.Direction, &mv.Quantity, &mv.Reason, &mv.Note, &mv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

// FindByProductInTx resolves the ledger row for a product (no variant)
// inside an existing transaction.
func FindByProductInTx(ctx context.Context, tx pgx.Tx, productID string) (Record, error) {
	return scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordCols+` FROM inventory WHERE product_id=$1 AND variant_id IS NULL`, productID))
}

// AdjustInTx applies a delta inside an existing transaction, so an order's
// decrement commits or rolls back together with the order itself.
func AdjustInTx(ctx context.Context, tx pgx.Tx, inventoryID string, delta int32, reason, note string) (Record, error) {
	return adjustInTx(ctx, tx, inventoryID, delta, reason, note)
}

func adjustInTx(ctx context.Context, tx pgx.Tx, inventoryID string, delta int32, reason, note string) (Record, error) {
	rec, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordCols+` FROM inventory WHERE id=$1 FOR UPDATE`, inventoryID))
	if err != nil {
		return Record{}, err
	}
	// zero-delta adjustments leave no trace; movements record magnitude > 0
	if delta == 0 {
		return rec, nil
	}
	next := rec.Quantity + delta
	if next < 0 {
		return Record{}, ErrInsufficientStock
	}
	rec.Quantity = next
	rec.Status = DeriveStatus(next, rec.ReorderLevel)
	err = tx.QueryRow(ctx,
		`UPDATE inventory SET quantity=$2, status=$3, updated_at=now() WHERE id=$1 RETURNING updated_at`,
		inventoryID, next, rec.Status,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		return Record{}, err
	}

	dir := DirectionIn
	magnitude := delta
	if delta < 0 {
		dir = DirectionOut
		magnitude = -delta
	}
	if err := insertMovement(ctx, tx, inventoryID, dir, magnitude, reason, note); err != nil {
		return Record{}, err
	}

	eventID := uuid.NewString()
	if err := outbox.Insert(ctx, tx, eventID, EventsTopic, rec.ProductID, contracts.Event{
		EventID:   eventID,
		CreatedAt: time.Now().UTC(),
		Type:      contracts.EventInventoryAdjusted,
		Payload: map[string]any{
			"inventory_id": inventoryID,
			"product_id":   rec.ProductID,
			"delta":        delta,
			"quantity":     next,
			"status":       rec.Status,
			"reason":       reason,
		},
	}); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, inventoryID string, dir Direction, magnitude int32, reason, note string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO inventory_movements(id, inventory_id, direction, quantity, reason, note)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), inventoryID, dir, magnitude, reason, note)
	return err
}
