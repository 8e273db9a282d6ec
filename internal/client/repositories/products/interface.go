package products

import (
	"context"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

// Repository describes the product table of the device cache.
type Repository interface {
	// Get returns the row by id or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.LocalProduct, error)
	GetByBarcode(ctx context.Context, barcode string) ([]models.LocalProduct, error)
	// Search matches pattern (a LIKE pattern with '\' escapes) against the
	// folded search key.
	Search(ctx context.Context, pattern string, limit int) ([]models.LocalProduct, error)
	// ListAll and ListByStatus return undecodable rows apart, in bad.
	ListAll(ctx context.Context) (rows []models.LocalProduct, bad []common.RecordError, err error)
	ListByStatus(ctx context.Context, status models.SyncStatus) (rows []models.LocalProduct, bad []common.RecordError, err error)

	// Save inserts or replaces the row. The caller sets Revision.
	Save(ctx context.Context, p *models.LocalProduct, searchKey string) error

	// MarkSynced flips a row to synced if its revision still equals
	// expectedRevision, renaming it to newID and recording lastUpdated.
	// It reports whether the row was updated.
	MarkSynced(ctx context.Context, id string, expectedRevision int64, newID string, lastUpdated time.Time) (bool, error)

	// UpdatePrice sets the resolved price column only. It does not bump the
	// revision, so it never races an upload of the same row.
	UpdatePrice(ctx context.Context, id string, price *decimal.Decimal) error

	Delete(ctx context.Context, id string) error
}
