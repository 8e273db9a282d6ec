package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote/grpcstore"
	"github.com/dmitrijs2005/possync/internal/remote/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// startServer serves a memory backend over bufconn and returns a device-side
// client connected to it.
func startServer(t *testing.T) (*grpcstore.Client, *memory.Store) {
	t.Helper()

	backend := memory.New()
	ctx := context.Background()
	require.NoError(t, backend.CreateShop(ctx, models.Shop{Name: "Main Street", Config: map[string]string{"terminal": "T1"}}, "pw", ""))
	require.NoError(t, backend.CreateShop(ctx, models.Shop{Name: "Harbour"}, "pw2", ""))

	s := NewGRPCServer("", logging.Nop(), backend, "secret", time.Hour)
	lis := bufconn.Listen(1 << 20)

	srvCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(srvCtx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	c, err := grpcstore.New("passthrough:///bufnet", 2*time.Second,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, backend
}

func TestEndToEnd_LoginAndPublicMethods(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	names, err := c.ListShops(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Harbour", "Main Street"}, names)

	_, err = c.Login(ctx, "Main Street", "wrong")
	assert.ErrorIs(t, err, common.ErrAuthorization)

	_, err = c.ListAllIDs(ctx)
	assert.ErrorIs(t, err, common.ErrAuthorization, "token required")

	tok, err := c.Login(ctx, "Main Street", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	shop, err := c.CheckShop(ctx, "Main Street")
	require.NoError(t, err)
	assert.Equal(t, "T1", shop.Config["terminal"])

	_, err = c.CheckShop(ctx, "Harbour")
	assert.ErrorIs(t, err, common.ErrAuthorization, "token of another shop")
}

func TestEndToEnd_CatalogAndLedger(t *testing.T) {
	c, backend := startServer(t)
	ctx := context.Background()

	_, err := c.Login(ctx, "Main Street", "pw")
	require.NoError(t, err)

	price := decimal.RequireFromString("2.50")
	rev, err := c.UpsertProduct(ctx, "", "Main Street", models.ProductFields{Barcode: "123", Brand: "Acme"}, &price)
	require.NoError(t, err)
	require.NotEmpty(t, rev.ProductID)

	stored, ok := backend.Product(rev.ProductID)
	require.True(t, ok)
	assert.True(t, stored.Prices["Main Street"].Equal(price))
	assert.True(t, stored.LastUpdated.Equal(rev.LastUpdated))

	_, err = c.UpsertProduct(ctx, rev.ProductID, "Harbour", models.ProductFields{Barcode: "123"}, &price)
	assert.ErrorIs(t, err, common.ErrAuthorization, "cannot price another shop")

	all, err := c.QueryDelta(ctx, "", nil)
	require.NoError(t, err)
	require.Len(t, all, 1)

	since := rev.LastUpdated
	none, err := c.QueryDelta(ctx, "", &since)
	require.NoError(t, err)
	assert.Empty(t, none)

	variants, err := c.FindByBarcode(ctx, "123")
	require.NoError(t, err)
	assert.Len(t, variants, 1)

	keys, err := c.ListAllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ProductKey{{ID: rev.ProductID, Barcode: "123"}}, keys)

	require.NoError(t, c.RemovePrice(ctx, rev.ProductID, "Main Street"))
	listed, err := c.QueryDelta(ctx, "Main Street", nil)
	require.NoError(t, err)
	assert.Empty(t, listed)

	assert.ErrorIs(t, c.RemovePrice(ctx, "ghost", "Main Street"), common.ErrNotFound)

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	sale := models.Sale{Timestamp: at, FinalPrice: price, PaymentMethod: "cash",
		LineItems: []models.LineItem{{ProductID: rev.ProductID, Barcode: "123", Quantity: 1, UnitPrice: price}}}
	require.NoError(t, c.AppendSale(ctx, "Main Street", sale))
	require.NoError(t, c.AppendSale(ctx, "Main Street", sale), "retry is idempotent")
	sale.Timestamp = at.Add(time.Minute)
	require.NoError(t, c.AppendSale(ctx, "Main Street", sale))

	sales, err := c.QuerySales(ctx, "Main Street", 10, true)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, at.Add(time.Minute), sales[0].Timestamp)
	assert.Equal(t, "Main Street", sales[0].Shop)

	assert.ErrorIs(t, c.AppendSale(ctx, "Harbour", sale), common.ErrAuthorization)
}

type failingStore struct {
	*memory.Store
	err error
}

func (f failingStore) Ping(context.Context) error { return f.err }

func TestToStatus(t *testing.T) {
	s := newTestServer("secret")
	ctx := context.Background()

	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("x: %w", common.ErrInvalidArgument), codes.InvalidArgument},
		{common.ErrNotFound, codes.NotFound},
		{common.ErrAlreadyExists, codes.AlreadyExists},
		{common.ErrAuthorization, codes.Unauthenticated},
		{common.ErrItemWrite, codes.Aborted},
		{common.ErrDataIntegrity, codes.DataLoss},
		{context.Canceled, codes.Canceled},
		{fmt.Errorf("db: %w", common.ErrConnectivity), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		got := s.toStatus(ctx, tt.err)
		assert.Equal(t, tt.want.String(), codesOf(got).String(), tt.err.Error())
	}
}

func TestPing_BackendDown(t *testing.T) {
	s := NewGRPCServer("", logging.Nop(), failingStore{Store: memory.New(), err: common.ErrConnectivity}, "k", time.Hour)

	_, err := s.Ping(context.Background(), nil)
	assert.Equal(t, codes.Unavailable, codesOf(err))
}

func codesOf(err error) codes.Code {
	return status.Code(err)
}
