package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGGetter struct {
	pool *pgxpool.Pool
}

func NewPGGetter(pool *pgxpool.Pool) *PGGetter {
	return &PGGetter{pool: pool}
}

func (g *PGGetter) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := g.pool.QueryRow(ctx,
		`SELECT id, name, sku, price FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
