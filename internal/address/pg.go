package address

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGBook struct {
	pool *pgxpool.Pool
}

func NewPGBook(pool *pgxpool.Pool) *PGBook {
	return &PGBook{pool: pool}
}

const addressCols = `id, customer_id, type, street, apartment, city, state, postal_code, country,
	is_default, is_shipping, is_billing, created_at, updated_at`

func scanAddress(row pgx.Row) (Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.CustomerID, &a.Type, &a.Street, &a.Apartment, &a.City, &a.State,
		&a.PostalCode, &a.Country, &a.IsDefault, &a.IsShipping, &a.IsBilling, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, ErrNotFound
	}
	return a, err
}

func (b *PGBook) List(ctx context.Context, customerID string) ([]Address, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT `+addressCols+` FROM addresses WHERE customer_id=$1 ORDER BY created_at`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (b *PGBook) Get(ctx context.Context, addressID string) (Address, error) {
	return scanAddress(b.pool.QueryRow(ctx,
		`SELECT `+addressCols+` FROM addresses WHERE id=$1`, addressID))
}

// Create flips the previous default and inserts in one transaction, so
// there is no window with zero or two defaults.
func (b *PGBook) Create(ctx context.Context, customerID string, in CreateInput) (Address, error) {
	if !in.Type.Valid() {
		return Address{}, ErrInvalidType
	}
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return Address{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if in.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE addresses SET is_default=false, updated_at=now() WHERE customer_id=$1 AND is_default`, customerID); err != nil {
			return Address{}, err
		}
	}

	a := Address{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Type:       in.Type,
		Street:     in.Street,
		Apartment:  in.Apartment,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		IsDefault:  in.IsDefault,
		IsShipping: in.IsShipping,
		IsBilling:  in.IsBilling,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO addresses(id, customer_id, type, street, apartment, city, state, postal_code, country, is_default, is_shipping, is_billing)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		a.ID, a.CustomerID, a.Type, a.Street, a.Apartment, a.City, a.State, a.PostalCode, a.Country,
		a.IsDefault, a.IsShipping, a.IsBilling,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Address{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Address{}, err
	}
	return a, nil
}

func (b *PGBook) SetDefault(ctx context.Context, customerID, addressID string) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default=true, updated_at=now() WHERE id=$1 AND customer_id=$2`, addressID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default=false, updated_at=now() WHERE customer_id=$1 AND is_default AND id <> $2`,
		customerID, addressID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (b *PGBook) Delete(ctx context.Context, customerID, addressID string) error {
	tag, err := b.pool.Exec(ctx,
		`DELETE FROM addresses WHERE id=$1 AND customer_id=$2`, addressID, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindEquivalentInTx locates a reusable address for the order transaction:
// same customer, street, city, and postal code.
func FindEquivalentInTx(ctx context.Context, tx pgx.Tx, customerID, street, city, postalCode string) (Address, error) {
	return scanAddress(tx.QueryRow(ctx,
		`SELECT `+addressCols+` FROM addresses
		 WHERE customer_id=$1 AND street=$2 AND city=$3 AND postal_code=$4
		 ORDER BY created_at LIMIT 1`,
		customerID, street, city, postalCode))
}

// CreateInTx inserts a book entry inside the order transaction.
func CreateInTx(ctx context.Context, tx pgx.Tx, a Address) (Address, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO addresses(id, customer_id, type, street, apartment, city, state, postal_code, country, is_default, is_shipping, is_billing)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING created_at, updated_at`,
		a.ID, a.CustomerID, a.Type, a.Street, a.Apartment, a.City, a.State, a.PostalCode, a.Country,
		a.IsDefault, a.IsShipping, a.IsBilling,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Address{}, err
	}
	return a, nil
}
