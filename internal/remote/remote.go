// Package remote defines the contract of the shared, multi-tenant catalog and
// ledger that POS devices replicate from.
//
// Implementations: the Postgres services on the server, DynamoDB (package
// dynamo), an in-process store (package memory) and the gRPC client used by
// devices (package grpcstore).
package remote

import (
	"context"
	"time"

	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
)

// Catalog holds product metadata and one independent price per shop.
type Catalog interface {
	// UpsertProduct writes fields and, when price is not nil, prices[shop].
	// An empty productID creates a new product with a generated id.
	// Every call advances the product's LastUpdated.
	UpsertProduct(ctx context.Context, productID, shop string, fields models.ProductFields, price *decimal.Decimal) (models.Revision, error)

	// RemovePrice drops the shop's price only; the product survives for
	// other shops.
	RemovePrice(ctx context.Context, productID, shop string) error

	// QueryDelta returns products with LastUpdated after since (all products
	// when since is nil), limited to the shop's assortment when shop is set.
	QueryDelta(ctx context.Context, shop string, since *time.Time) ([]models.Product, error)

	// ListAllIDs enumerates every product id for deletion detection.
	ListAllIDs(ctx context.Context) ([]models.ProductKey, error)

	// FindByBarcode returns every variant sharing the barcode.
	FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error)
}

// Ledger stores finalized sales partitioned by shop.
type Ledger interface {
	// AppendSale is idempotent on (shop, sale.Timestamp).
	AppendSale(ctx context.Context, shop string, sale models.Sale) error
	QuerySales(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error)
}

// Shops exposes the tenant directory to devices.
type Shops interface {
	// Ping fails with common.ErrConnectivity when the store is unreachable.
	Ping(ctx context.Context) error
	// CheckShop fails with common.ErrAuthorization when the shop is unknown
	// or the caller's credentials are not valid for it.
	CheckShop(ctx context.Context, name string) (*models.Shop, error)
	ListShops(ctx context.Context) ([]string, error)
}

// Store is everything a device needs.
type Store interface {
	Catalog
	Ledger
	Shops
}

// Admin adds the operations reserved to back-office tooling.
type Admin interface {
	Store
	DeleteProduct(ctx context.Context, productID string) error
	// CreateShop registers a shop. When copyFrom names an existing shop,
	// every product priced there is listed in the new shop at the same price.
	CreateShop(ctx context.Context, shop models.Shop, password, copyFrom string) error
	// VerifyShop checks a shop password, failing with common.ErrAuthorization.
	VerifyShop(ctx context.Context, name, password string) (*models.Shop, error)
}

// NextTimestamp returns the LastUpdated to store for a write happening at now
// on a record last written at prev: now, or just after prev when the clock
// has not moved past it.
func NextTimestamp(now, prev time.Time) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if !prev.IsZero() && !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}
