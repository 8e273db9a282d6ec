package store

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func remoteProduct(id, barcode string, updated time.Time, prices map[string]string) models.Product {
	p := models.Product{
		ID:            id,
		ProductFields: models.ProductFields{Barcode: barcode, Brand: "Marca", Category: "Bebidas", Flavor: "Uva"},
		Prices:        map[string]decimal.Decimal{},
		LastUpdated:   updated,
	}
	for shop, v := range prices {
		p.Prices[shop] = dec(v)
	}
	return p
}
