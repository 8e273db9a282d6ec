package products

import (
	"context"
	"time"

	"github.com/dmitrijs2005/possync/internal/models"
)

// Repository stores product metadata. Prices live in the prices repository;
// products returned here carry no Prices.
type Repository interface {
	Upsert(ctx context.Context, id string, fields models.ProductFields) (time.Time, error)
	Touch(ctx context.Context, id string) (time.Time, error)
	TouchMany(ctx context.Context, ids []string) error
	Delete(ctx context.Context, id string) error
	ListSince(ctx context.Context, shop string, since *time.Time) ([]models.Product, error)
	ListKeys(ctx context.Context) ([]models.ProductKey, error)
	FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error)
}
