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

func TestPing(t *testing.T) {
	b, _, mock := newBackend(t)

	mock.ExpectPing()
	require.NoError(t, b.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.ErrorIs(t, b.Ping(context.Background()), common.ErrConnectivity)
}

func TestCreateShop_VerifyAndCheck(t *testing.T) {
	b, _, mock := newBackend(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	shop := models.Shop{Name: "Main Street", Config: map[string]string{"terminal": "T1"}}
	require.NoError(t, b.CreateShop(context.Background(), shop, "pw", ""))

	got, err := b.VerifyShop(context.Background(), "Main Street", "pw")
	require.NoError(t, err)
	assert.Equal(t, &shop, got)

	_, err = b.VerifyShop(context.Background(), "Main Street", "wrong")
	assert.ErrorIs(t, err, common.ErrAuthorization)

	_, err = b.VerifyShop(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, common.ErrAuthorization)

	got, err = b.CheckShop(context.Background(), "Main Street")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.Config["terminal"])

	_, err = b.CheckShop(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrAuthorization)

	names, err := b.ListShops(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Main Street"}, names)
}

func TestCreateShop_CopiesAssortment(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.shops["A"] = nil
	repos.products["p1"] = models.Product{ID: "p1"}
	repos.products["p2"] = models.Product{ID: "p2"}
	repos.prices["p1"] = map[string]decimal.Decimal{"A": dec("1.25")}
	repos.prices["p2"] = map[string]decimal.Decimal{"C": dec("9")}

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, b.CreateShop(context.Background(), models.Shop{Name: "B"}, "pw", "A"))

	assert.True(t, repos.prices["p1"]["B"].Equal(dec("1.25")))
	assert.NotContains(t, repos.prices["p2"], "B")
	assert.Equal(t, []string{"p1"}, repos.touched)
}

func TestCreateShop_UnknownSource(t *testing.T) {
	b, repos, mock := newBackend(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := b.CreateShop(context.Background(), models.Shop{Name: "B"}, "pw", "nowhere")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NotContains(t, repos.shops, "B")
}

func TestCreateShop_Duplicate(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.shops["A"] = nil

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.ErrorIs(t, b.CreateShop(context.Background(), models.Shop{Name: "A"}, "pw", ""), common.ErrAlreadyExists)
}

func TestCreateShop_CopyFailureRollsBack(t *testing.T) {
	b, repos, mock := newBackend(t)
	repos.shops["A"] = nil
	repos.copyErr = errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Error(t, b.CreateShop(context.Background(), models.Shop{Name: "B"}, "pw", "A"))
}

func TestCreateShop_EmptyName(t *testing.T) {
	b, _, _ := newBackend(t)
	assert.ErrorIs(t, b.CreateShop(context.Background(), models.Shop{}, "pw", ""), common.ErrInvalidArgument)
}
