// Package prices provides the PostgreSQL repository of per-shop prices.
package prices

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Set(ctx context.Context, productID, shop string, price decimal.Decimal) error {
	query := `
		INSERT INTO product_prices (product_id, shop_name, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id, shop_name)
		DO UPDATE SET price = EXCLUDED.price
	`
	if _, err := r.db.ExecContext(ctx, query, productID, shop, price); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Remove deletes the shop's price and reports whether one existed.
func (r *PostgresRepository) Remove(ctx context.Context, productID, shop string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM product_prices WHERE product_id = $1 AND shop_name = $2`, productID, shop)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

// ForProducts loads the prices of ids in one query, keyed by product id and
// then by shop name. Products without prices are absent from the result.
func (r *PostgresRepository) ForProducts(ctx context.Context, ids []string) (map[string]map[string]decimal.Decimal, error) {
	out := make(map[string]map[string]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, shop_name, price FROM product_prices WHERE product_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to select prices: %w", err)
	}

	type priceRow struct {
		productID, shop string
		price           decimal.Decimal
	}
	list, err := dbx.CollectRows(rows, func(rows *sql.Rows) (priceRow, error) {
		var p priceRow
		err := rows.Scan(&p.productID, &p.shop, &p.price)
		return p, err
	})
	if err != nil {
		return nil, err
	}

	for _, p := range list {
		m, ok := out[p.productID]
		if !ok {
			m = make(map[string]decimal.Decimal)
			out[p.productID] = m
		}
		m[p.shop] = p.price
	}
	return out, nil
}

// CopyShop lists every product priced in from in to at the same price. Prices
// already present in to are kept. It returns the ids that gained a price.
func (r *PostgresRepository) CopyShop(ctx context.Context, from, to string) ([]string, error) {
	query := `
		INSERT INTO product_prices (product_id, shop_name, price)
		SELECT product_id, $2, price FROM product_prices WHERE shop_name = $1
		ON CONFLICT (product_id, shop_name) DO NOTHING
		RETURNING product_id
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to copy prices: %w", err)
	}
	return dbx.CollectRows(rows, func(rows *sql.Rows) (string, error) {
		var id string
		err := rows.Scan(&id)
		return id, err
	})
}
