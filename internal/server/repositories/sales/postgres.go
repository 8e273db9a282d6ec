// Package sales provides the PostgreSQL ledger repository. A sale is
// identified by (shop_name, ts); writing the same identity twice overwrites.
package sales

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type saleRow struct {
	Shop          string          `db:"shop_name"`
	Timestamp     time.Time       `db:"ts"`
	FinalPrice    decimal.Decimal `db:"final_price"`
	PaymentMethod string          `db:"payment_method"`
	LineItems     []byte          `db:"line_items"`
}

func (r saleRow) model() (models.Sale, error) {
	var items []models.LineItem
	if len(r.LineItems) > 0 {
		if err := json.Unmarshal(r.LineItems, &items); err != nil {
			return models.Sale{}, fmt.Errorf("%w: sale %s@%s line items: %v",
				common.ErrDataIntegrity, r.Shop, r.Timestamp.Format(common.TimestampLayout), err)
		}
	}
	return models.Sale{
		Shop:          r.Shop,
		Timestamp:     r.Timestamp.UTC(),
		FinalPrice:    r.FinalPrice,
		PaymentMethod: r.PaymentMethod,
		LineItems:     items,
	}, nil
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, sale models.Sale) error {
	items := sale.LineItems
	if items == nil {
		items = []models.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	query := `
		INSERT INTO sales (shop_name, ts, final_price, payment_method, line_items)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shop_name, ts)
		DO UPDATE SET
			final_price = EXCLUDED.final_price,
			payment_method = EXCLUDED.payment_method,
			line_items = EXCLUDED.line_items
	`
	_, err = r.db.ExecContext(ctx, query,
		sale.Shop, models.SaleTime(sale.Timestamp), sale.FinalPrice, sale.PaymentMethod, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Query returns the shop's sales ordered by time. A limit of zero or less
// returns every sale.
func (r *PostgresRepository) Query(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `
		SELECT shop_name, ts, final_price, payment_method, line_items FROM sales
		WHERE shop_name = $1
		ORDER BY ts ` + order + `
		LIMIT $2
	`
	var lim sql.NullInt64
	if limit > 0 {
		lim = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, shop, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to select sales: %w", err)
	}
	defer rows.Close()

	var list []saleRow
	if err := sqlx.StructScan(rows, &list); err != nil {
		return nil, fmt.Errorf("failed to scan sales: %w", err)
	}

	out := make([]models.Sale, 0, len(list))
	for _, row := range list {
		s, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
