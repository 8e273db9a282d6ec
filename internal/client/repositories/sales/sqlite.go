package sales

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/models"
)

const selectColumns = `SELECT id, shop_name, timestamp, final_price, payment_method, line_items, sync_status FROM sales`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// FormatTimestamp renders ts the way the sales table stores it. The layout
// has a fixed width, so textual order matches time order.
func FormatTimestamp(ts time.Time) string {
	return models.SaleTime(ts).Format(common.TimestampLayout)
}

func (r *SQLiteRepository) Insert(ctx context.Context, s *models.LocalSale) error {
	query := `INSERT INTO sales (shop_name, timestamp, final_price, payment_method, line_items, sync_status)
		VALUES (?, ?, ?, ?, ?, 'pending')
		ON CONFLICT(shop_name, timestamp) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, s.Shop, FormatTimestamp(s.Timestamp), s.FinalPrice, s.PaymentMethod, s.LineItems)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrAlreadyExists
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get sale id: %w", err)
	}
	s.ID = id
	s.SyncStatus = models.StatusPending
	return nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.LocalSale, []common.RecordError, error) {
	return r.list(ctx, selectColumns+` WHERE sync_status = 'pending' ORDER BY timestamp, id`)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, shop string, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sales SET sync_status = 'synced' WHERE shop_name = ? AND timestamp = ?`,
		shop, FormatTimestamp(ts))
	if err != nil {
		return fmt.Errorf("failed to mark sale synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) History(ctx context.Context, shop string, limit int) ([]models.LocalSale, error) {
	if limit <= 0 {
		limit = -1
	}
	out, _, err := r.list(ctx, selectColumns+` WHERE shop_name = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, shop, limit)
	return out, err
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.LocalSale, []common.RecordError, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select sales: %w", err)
	}
	out, bad, err := dbx.CollectValid(rows, scanSale)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan sales: %w", err)
	}
	return out, bad, nil
}

func scanSale(rows *sql.Rows) (models.LocalSale, error) {
	var (
		s      models.LocalSale
		ts     string
		status string
	)
	if err := rows.Scan(&s.ID, &s.Shop, &ts, &s.FinalPrice, &s.PaymentMethod, &s.LineItems, &status); err != nil {
		return s, err
	}
	t, err := time.Parse(common.TimestampLayout, ts)
	if err != nil {
		return s, common.Malformed(fmt.Sprintf("sale %d", s.ID), "timestamp %q", ts)
	}
	s.Timestamp = t.UTC()
	s.SyncStatus = models.SyncStatus(status)
	return s, nil
}
