// Package products provides the PostgreSQL repository of catalog metadata.
//
// Every write moves last_updated forward: to the server clock, or one
// microsecond past the stored value when the clock has not passed it.
package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/lib/pq"
)

const nextLastUpdated = `GREATEST(clock_timestamp(), products.last_updated + interval '1 microsecond')`

const productColumns = `p.id, p.barcode, p.brand, p.category, p.flavor, p.last_updated`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert writes the metadata of id and returns the new last_updated.
func (r *PostgresRepository) Upsert(ctx context.Context, id string, f models.ProductFields) (time.Time, error) {
	query := `
		INSERT INTO products (id, barcode, brand, category, flavor, last_updated)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		ON CONFLICT (id)
		DO UPDATE SET
			barcode = EXCLUDED.barcode,
			brand = EXCLUDED.brand,
			category = EXCLUDED.category,
			flavor = EXCLUDED.flavor,
			last_updated = ` + nextLastUpdated + `
		RETURNING last_updated
	`
	var ts time.Time
	if err := r.db.QueryRowContext(ctx, query, id, f.Barcode, f.Brand, f.Category, f.Flavor).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return ts.UTC(), nil
}

// Touch advances last_updated of an existing product.
func (r *PostgresRepository) Touch(ctx context.Context, id string) (time.Time, error) {
	query := `
		UPDATE products SET last_updated = ` + nextLastUpdated + `
		WHERE id = $1
		RETURNING last_updated
	`
	var ts time.Time
	err := r.db.QueryRowContext(ctx, query, id).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, common.ErrNotFound
		}
		return time.Time{}, fmt.Errorf("db error: %w", err)
	}
	return ts.UTC(), nil
}

func (r *PostgresRepository) TouchMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `
		UPDATE products SET last_updated = ` + nextLastUpdated + `
		WHERE id = ANY($1)
	`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the product and, through the foreign key, its prices.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListSince returns products changed after since (all when nil), limited to
// products priced in shop when shop is not empty.
func (r *PostgresRepository) ListSince(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products p
		WHERE ($1::timestamptz IS NULL OR p.last_updated > $1)
		  AND ($2 = '' OR EXISTS (
			SELECT 1 FROM product_prices pp WHERE pp.product_id = p.id AND pp.shop_name = $2
		  ))
		ORDER BY p.id
	`
	var after sql.NullTime
	if since != nil {
		after = sql.NullTime{Time: since.UTC(), Valid: true}
	}
	rows, err := r.db.QueryContext(ctx, query, after, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	return dbx.CollectRows(rows, scanProduct)
}

func (r *PostgresRepository) ListKeys(ctx context.Context) ([]models.ProductKey, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, barcode FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select product keys: %w", err)
	}
	return dbx.CollectRows(rows, func(rows *sql.Rows) (models.ProductKey, error) {
		var k models.ProductKey
		err := rows.Scan(&k.ID, &k.Barcode)
		return k, err
	})
}

func (r *PostgresRepository) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.barcode = $1 ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, query, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	return dbx.CollectRows(rows, scanProduct)
}

func scanProduct(rows *sql.Rows) (models.Product, error) {
	var p models.Product
	if err := rows.Scan(&p.ID, &p.Barcode, &p.Brand, &p.Category, &p.Flavor, &p.LastUpdated); err != nil {
		return models.Product{}, err
	}
	p.LastUpdated = p.LastUpdated.UTC()
	return p, nil
}
