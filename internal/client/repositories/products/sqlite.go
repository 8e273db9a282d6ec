package products

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

const selectColumns = `SELECT product_id, barcode, brand, category, flavor, price, prices_map, sync_status, last_updated, revision FROM products`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.LocalProduct, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE product_id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &p, nil
}

// GetByBarcode and Search serve the till; undecodable rows are left out.
func (r *SQLiteRepository) GetByBarcode(ctx context.Context, barcode string) ([]models.LocalProduct, error) {
	out, _, err := r.list(ctx, selectColumns+` WHERE barcode = ? ORDER BY brand, flavor, product_id`, barcode)
	return out, err
}

func (r *SQLiteRepository) Search(ctx context.Context, pattern string, limit int) ([]models.LocalProduct, error) {
	if limit <= 0 {
		limit = -1
	}
	out, _, err := r.list(ctx, selectColumns+` WHERE search_key LIKE ? ESCAPE '\' ORDER BY brand, flavor, product_id LIMIT ?`, pattern, limit)
	return out, err
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]models.LocalProduct, []common.RecordError, error) {
	return r.list(ctx, selectColumns+` ORDER BY product_id`)
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, status models.SyncStatus) ([]models.LocalProduct, []common.RecordError, error) {
	return r.list(ctx, selectColumns+` WHERE sync_status = ? ORDER BY product_id`, string(status))
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.LocalProduct, searchKey string) error {
	pricesJSON, err := json.Marshal(p.Prices)
	if err != nil {
		return fmt.Errorf("failed to encode prices: %w", err)
	}
	if p.Prices == nil {
		pricesJSON = []byte("{}")
	}

	var price decimal.NullDecimal
	if p.Price != nil {
		price = decimal.NewNullDecimal(*p.Price)
	}

	query := `INSERT INTO products (product_id, barcode, brand, category, flavor, price, prices_map, sync_status, last_updated, revision, search_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET barcode = excluded.barcode,
			brand = excluded.brand,
			category = excluded.category,
			flavor = excluded.flavor,
			price = excluded.price,
			prices_map = excluded.prices_map,
			sync_status = excluded.sync_status,
			last_updated = excluded.last_updated,
			revision = excluded.revision,
			search_key = excluded.search_key`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.Barcode, p.Brand, p.Category, p.Flavor, price, string(pricesJSON),
		string(p.SyncStatus), toMicros(p.LastUpdated), p.Revision, searchKey)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, expectedRevision int64, newID string, lastUpdated time.Time) (bool, error) {
	query := `UPDATE products SET product_id = ?, sync_status = 'synced', last_updated = ?
		WHERE product_id = ? AND revision = ?`
	res, err := r.db.ExecContext(ctx, query, newID, toMicros(lastUpdated), id, expectedRevision)
	if err != nil {
		return false, fmt.Errorf("failed to mark product synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) UpdatePrice(ctx context.Context, id string, price *decimal.Decimal) error {
	var v decimal.NullDecimal
	if price != nil {
		v = decimal.NewNullDecimal(*price)
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE products SET price = ? WHERE product_id = ?`, v, id); err != nil {
		return fmt.Errorf("failed to update price: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.LocalProduct, []common.RecordError, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select products: %w", err)
	}
	out, bad, err := dbx.CollectValid(rows, func(rows *sql.Rows) (models.LocalProduct, error) {
		return scanProduct(rows)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return out, bad, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProduct reads price columns as text and decodes them afterwards, so a
// bad value surfaces as a common.RecordError for that row only.
func scanProduct(s scanner) (models.LocalProduct, error) {
	var (
		p          models.LocalProduct
		price      sql.NullString
		pricesJSON string
		status     string
		micros     int64
	)
	if err := s.Scan(&p.ID, &p.Barcode, &p.Brand, &p.Category, &p.Flavor, &price, &pricesJSON, &status, &micros, &p.Revision); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(pricesJSON), &p.Prices); err != nil {
		return p, common.Malformed(p.ID, "prices: %v", err)
	}
	if p.Prices == nil {
		p.Prices = map[string]decimal.Decimal{}
	}
	if price.Valid && price.String != "" {
		v, err := decimal.NewFromString(price.String)
		if err != nil {
			return p, common.Malformed(p.ID, "price %q", price.String)
		}
		p.Price = &v
	}
	p.SyncStatus = models.SyncStatus(status)
	p.LastUpdated = fromMicros(micros)
	return p, nil
}

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}
