package prices

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository stores one price row per (product, shop). A product is listed
// in a shop exactly when such a row exists.
type Repository interface {
	Set(ctx context.Context, productID, shop string, price decimal.Decimal) error
	Remove(ctx context.Context, productID, shop string) (bool, error)
	ForProducts(ctx context.Context, ids []string) (map[string]map[string]decimal.Decimal, error)
	CopyShop(ctx context.Context, from, to string) ([]string, error)
}
