package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendSale_StampsShopAndIsIdempotent(t *testing.T) {
	b, repos, _ := newBackend(t)
	at := time.Date(2024, 2, 1, 12, 0, 0, 999, time.FixedZone("X", 7200))

	sale := models.Sale{Shop: "ignored", Timestamp: at, FinalPrice: dec("5")}
	require.NoError(t, b.AppendSale(context.Background(), "A", sale))
	require.NoError(t, b.AppendSale(context.Background(), "A", sale))

	require.Len(t, repos.sales, 1)
	assert.Equal(t, "A", repos.sales[0].Shop)
	assert.Equal(t, models.SaleTime(at), repos.sales[0].Timestamp)
}

func TestAppendSale_RejectsBadInput(t *testing.T) {
	b, _, _ := newBackend(t)

	assert.ErrorIs(t, b.AppendSale(context.Background(), "", models.Sale{Timestamp: time.Now()}), common.ErrInvalidArgument)
	assert.ErrorIs(t, b.AppendSale(context.Background(), "A", models.Sale{}), common.ErrInvalidArgument)
}

func TestQuerySales_PassesArguments(t *testing.T) {
	b, repos, _ := newBackend(t)

	_, err := b.QuerySales(context.Background(), "A", 10, true)
	require.NoError(t, err)
	assert.Equal(t, "A", repos.salesQuery.shop)
	assert.Equal(t, 10, repos.salesQuery.limit)
	assert.True(t, repos.salesQuery.newestFirst)
}
