package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertProduct_WritesFieldsAndPriceInOneTx(t *testing.T) {
	b, repos, mock := newBackend(t)
	b.CatalogService.newID = func() string { return "generated" }

	mock.ExpectBegin()
	mock.ExpectCommit()

	price := dec("2.50")
	rev, err := b.UpsertProduct(context.Background(), "", "Main Street", models.ProductFields{Barcode: "123"}, &price)
	require.NoError(t, err)

	assert.Equal(t, "generated", rev.ProductID)
	assert.Equal(t, repos.products["generated"].LastUpdated, rev.LastUpdated)
	assert.True(t, repos.prices["generated"]["Main Street"].Equal(price))
}

func TestUpsertProduct_MetadataOnlyKeepsPrices(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.products["p1"] = models.Product{ID: "p1"}
	repos.prices["p1"] = map[string]decimal.Decimal{"A": dec("1")}

	mock.ExpectBegin()
	mock.ExpectCommit()

	rev, err := b.UpsertProduct(context.Background(), "p1", "A", models.ProductFields{Barcode: "9", Brand: "New"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "p1", rev.ProductID)
	assert.Equal(t, "New", repos.products["p1"].Brand)
	assert.True(t, repos.prices["p1"]["A"].Equal(dec("1")))
}

func TestUpsertProduct_RollsBackOnPriceError(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.setErr = errors.New("fk")

	mock.ExpectBegin()
	mock.ExpectRollback()

	price := dec("1")
	_, err := b.UpsertProduct(context.Background(), "p1", "A", models.ProductFields{}, &price)
	assert.ErrorContains(t, err, "error saving price")
}

func TestUpsertProduct_RejectsBadInput(t *testing.T) {
	b, _, _ := newBackend(t)

	price := dec("1")
	_, err := b.UpsertProduct(context.Background(), "p1", "", models.ProductFields{}, &price)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	neg := dec("-1")
	_, err = b.UpsertProduct(context.Background(), "p1", "A", models.ProductFields{}, &neg)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestRemovePrice_TouchesAndUnlists(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.products["p1"] = models.Product{ID: "p1", LastUpdated: repos.now}
	repos.prices["p1"] = map[string]decimal.Decimal{"A": dec("1"), "B": dec("2")}
	before := repos.now

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, b.RemovePrice(context.Background(), "p1", "A"))
	assert.NotContains(t, repos.prices["p1"], "A")
	assert.Contains(t, repos.prices["p1"], "B")
	assert.True(t, repos.products["p1"].LastUpdated.After(before))
}

func TestRemovePrice_UnknownProduct(t *testing.T) {
	b, _, mock := newBackend(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.ErrorIs(t, b.RemovePrice(context.Background(), "ghost", "A"), common.ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	b, repos, _ := newBackend(t)
	repos.products["p1"] = models.Product{ID: "p1"}

	require.NoError(t, b.DeleteProduct(context.Background(), "p1"))
	assert.NotContains(t, repos.products, "p1")
	assert.ErrorIs(t, b.DeleteProduct(context.Background(), "p1"), common.ErrNotFound)
}

func TestQueryDelta_AttachesPrices(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.products["p1"] = models.Product{ID: "p1", LastUpdated: repos.now}
	repos.products["p2"] = models.Product{ID: "p2", LastUpdated: repos.now}
	repos.prices["p1"] = map[string]decimal.Decimal{"A": dec("1")}

	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := b.QueryDelta(context.Background(), "", nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Prices["A"].Equal(dec("1")))
	assert.NotNil(t, got[1].Prices, "unlisted products carry an empty price map")
	assert.Empty(t, got[1].Prices)
}

func TestQueryDelta_PassesScopeAndCursor(t *testing.T) {
	b, repos, mock := newBackend(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	since := repos.now
	_, err := b.QueryDelta(context.Background(), "A", &since)
	require.NoError(t, err)
	assert.Equal(t, "A", repos.lastShop)
	assert.Equal(t, &since, repos.lastSince)
}

func TestFindByBarcode(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.products["p1"] = models.Product{ID: "p1", ProductFields: models.ProductFields{Barcode: "123"}}
	repos.products["p2"] = models.Product{ID: "p2", ProductFields: models.ProductFields{Barcode: "123"}}
	repos.products["p3"] = models.Product{ID: "p3", ProductFields: models.ProductFields{Barcode: "999"}}
	repos.prices["p2"] = map[string]decimal.Decimal{"B": dec("3")}

	mock.ExpectBegin()
	mock.ExpectCommit()

	got, err := b.FindByBarcode(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[1].ID)
	assert.True(t, got[1].Prices["B"].Equal(dec("3")))

	_, err = b.FindByBarcode(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestListAllIDs(t *testing.T) {
	b, repos, _ := newBackend(t)
	repos.products["p1"] = models.Product{ID: "p1", ProductFields: models.ProductFields{Barcode: "1"}}

	got, err := b.ListAllIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ProductKey{{ID: "p1", Barcode: "1"}}, got)
}
