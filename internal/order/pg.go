package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/storefront-core-go/internal/address"
	"github.com/nazeru/storefront-core-go/internal/cart"
	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/inventory"
	"github.com/nazeru/storefront-core-go/internal/pgutil"
	"github.com/nazeru/storefront-core-go/pkg/contracts"
	"github.com/nazeru/storefront-core-go/pkg/outbox"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = pgtx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: pgtx}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

func (s *PGStore) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	var orderID string
	err := s.pool.QueryRow(ctx,
		`SELECT order_id FROM order_idempotency WHERE idempotency_key=$1`, key).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

const orderCols = `id, order_number, customer_id, shipping_address_id, shipping_method,
	contact_name, contact_email, contact_phone,
	subtotal, tax, shipping, discount, total, payment_reference, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var name string
	err := row.Scan(&o.ID, &o.Number, &o.CustomerID, &o.ShippingAddressID, &o.ShippingMethodID,
		&name, &o.Contact.Email, &o.Contact.Phone,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Discount, &o.Total, &o.PaymentReference,
		&o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Contact.FirstName = name
	return &o, nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx, so lookups work both
// standalone and inside the order transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getOrder(ctx context.Context, q querier, orderID string) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx,
		`SELECT product_id, name, sku, price, quantity FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.SKU, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func (s *PGStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return getOrder(ctx, s.pool, orderID)
}

func (s *PGStore) ListOrders(ctx context.Context, customerID string, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE customer_id=$1 ORDER BY created_at DESC LIMIT $2`,
		customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) OrderByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	var orderID string
	err := t.tx.QueryRow(ctx,
		`SELECT order_id FROM order_idempotency WHERE idempotency_key=$1`, key).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return getOrder(ctx, t.tx, orderID)
}

func (t *pgTx) ResolveShippingAddress(ctx context.Context, a address.Address) (address.Address, error) {
	existing, err := address.FindEquivalentInTx(ctx, t.tx, a.CustomerID, a.Street, a.City, a.PostalCode)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, address.ErrNotFound) {
		return address.Address{}, err
	}
	a.IsShipping = true
	return address.CreateInTx(ctx, t.tx, a)
}

func (t *pgTx) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number=$1)`, number).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO orders(id, order_number, customer_id, shipping_address_id, shipping_method,
			contact_name, contact_email, contact_phone,
			subtotal, tax, shipping, discount, total, payment_reference, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 RETURNING created_at, updated_at`,
		o.ID, o.Number, o.CustomerID, o.ShippingAddressID, o.ShippingMethodID,
		o.Contact.FullName(), o.Contact.Email, o.Contact.Phone,
		o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total, o.PaymentReference, o.Status,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO order_items(order_id, product_id, name, sku, price, quantity)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, it.ProductID, it.Name, it.SKU, it.Price, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) BindIdempotencyKey(ctx context.Context, key, orderID string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO order_idempotency(idempotency_key, order_id) VALUES ($1, $2)`, key, orderID)
	if err != nil && pgutil.IsUniqueViolation(err) {
		// another replica already bound this key; surface as a replay
		return errIdempotencyRace
	}
	return err
}

func (t *pgTx) GetProduct(ctx context.Context, productID string) (catalog.Product, error) {
	var out catalog.Product
	err := t.tx.QueryRow(ctx,
		`SELECT id, name, sku, price FROM products WHERE id=$1`, productID,
	).Scan(&out.ID, &out.Name, &out.SKU, &out.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return out, err
}

func (t *pgTx) DecrementStock(ctx context.Context, productID string, qty int32, orderNumber string) (inventory.Record, error) {
	rec, err := inventory.FindByProductInTx(ctx, t.tx, productID)
	if err != nil {
		return inventory.Record{}, err
	}
	note := fmt.Sprintf("order %s", orderNumber)
	return inventory.AdjustInTx(ctx, t.tx, rec.ID, -qty, inventory.ReasonOrderPlaced, note)
}

func (t *pgTx) ClearCart(ctx context.Context, customerID string) error {
	return cart.ClearInTx(ctx, t.tx, customerID)
}

func (t *pgTx) StageEvent(ctx context.Context, topic string, evt contracts.Event) error {
	key := evt.OrderID
	if key == "" {
		key = evt.EventID
	}
	return outbox.Insert(ctx, t.tx, evt.EventID, topic, key, evt)
}
