package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazeru/storefront-core-go/internal/catalog"
	"github.com/nazeru/storefront-core-go/internal/pgutil"
	"github.com/nazeru/storefront-core-go/pkg/contracts"
	"github.com/nazeru/storefront-core-go/pkg/outbox"
)

const EventsTopic = "storefront.events"

// PGStore is the durable cart domain, keyed by customer id.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PGStore) Get(ctx context.Context, customerID string) (Cart, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ci.product_id, COALESCE(p.name, ''), COALESCE(p.sku, ''), ci.price, ci.quantity, ci.created_at
		 FROM cart_items ci
		 JOIN carts c ON c.id = ci.cart_id
		 LEFT JOIN products p ON p.id = ci.product_id
		 WHERE c.customer_id = $1
		 ORDER BY ci.created_at`, customerID)
	if err != nil {
		return Cart{}, err
	}
	defer rows.Close()

	cart := Cart{OwnerKey: customerID}
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.SKU, &it.Price, &it.Quantity, &it.AddedAt); err != nil {
			return Cart{}, err
		}
		cart.Items = append(cart.Items, it)
	}
	return cart, rows.Err()
}

func (s *PGStore) Add(ctx context.Context, customerID string, product catalog.Product, qty int32) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	cartID, err := ensureCart(ctx, s.pool, customerID)
	if err != nil {
		return err
	}
	return upsertLine(ctx, s.pool, cartID, product.ID, qty, product.Price)
}

func (s *PGStore) Update(ctx context.Context, customerID string, productID string, qty int32) error {
	if qty <= 0 {
		return s.Remove(ctx, customerID, productID)
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE cart_items SET quantity=$3, updated_at=now()
		 WHERE product_id=$2 AND cart_id = (SELECT id FROM carts WHERE customer_id=$1)`,
		customerID, productID, qty)
	return err
}

func (s *PGStore) Remove(ctx context.Context, customerID string, productID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items
		 WHERE product_id=$2 AND cart_id = (SELECT id FROM carts WHERE customer_id=$1)`,
		customerID, productID)
	return err
}

func (s *PGStore) Clear(ctx context.Context, customerID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE customer_id=$1)`,
		customerID)
	return err
}

// Merge claims the (customer, anon token) pair and folds the lines in one
// transaction; a failed fold rolls the claim back.
func (s *PGStore) Merge(ctx context.Context, customerID, anonToken string, items []LineItem) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO cart_merges(customer_id, anon_token) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		customerID, anonToken)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	cartID, err := ensureCart(ctx, tx, customerID)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return false, ErrInvalidQuantity
		}
		if err := upsertLine(ctx, tx, cartID, it.ProductID, it.Quantity, it.Price); err != nil {
			return false, err
		}
	}
	if len(items) > 0 {
		eventID := uuid.NewString()
		err = outbox.Insert(ctx, tx, eventID, EventsTopic, customerID, contracts.Event{
			EventID:    eventID,
			CustomerID: customerID,
			CreatedAt:  time.Now().UTC(),
			Type:       contracts.EventCartMerged,
			Payload:    map[string]any{"lines": len(items)},
		})
		if err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}

func upsertLine(ctx context.Context, q querier, cartID, productID string, qty int32, price int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO cart_items(cart_id, product_id, quantity, price)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()`,
		cartID, productID, qty, price)
	return err
}

func ensureCart(ctx context.Context, q querier, customerID string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM carts WHERE customer_id=$1`, customerID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return "", err
	}
	id = uuid.NewString()
	_, err = q.Exec(ctx,
		`INSERT INTO carts(id, customer_id) VALUES ($1, $2) ON CONFLICT (customer_id) DO NOTHING`,
		id, customerID)
	if err != nil && !pgutil.IsUniqueViolation(err) {
		return "", err
	}
	// re-read in case a concurrent request won the insert
	err = q.QueryRow(ctx, `SELECT id FROM carts WHERE customer_id=$1`, customerID).Scan(&id)
	return id, err
}

// ClearInTx empties a customer's cart inside an order transaction.
func ClearInTx(ctx context.Context, tx pgx.Tx, customerID string) error {
	_, err := tx.Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE customer_id=$1)`,
		customerID)
	return err
}
