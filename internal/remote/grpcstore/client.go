// Package grpcstore is the device-side remote.Store speaking
// possync.v1.SyncService over gRPC.
package grpcstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/possync/internal/api"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var _ remote.Store = (*Client)(nil)

// Client keeps the shop access token in memory only; persisting it is the
// caller's job.
type Client struct {
	conn    *grpc.ClientConn
	client  api.SyncServiceClient
	timeout time.Duration

	mu          sync.RWMutex
	accessToken string
}

// New dials endpoint lazily. timeout bounds every call that has no earlier
// deadline; zero leaves calls unbounded.
func New(endpoint string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{timeout: timeout}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewSyncServiceClient(conn)
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// mapError translates gRPC status codes into the common error taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("rpc error: %w", err)
	}
	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", common.ErrConnectivity, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %w: %s", common.ErrConnectivity, context.DeadlineExceeded, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrAuthorization, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrAlreadyExists, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

// Login exchanges the shop password for an access token and keeps it for
// subsequent calls.
func (c *Client) Login(ctx context.Context, shop, password string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Login(ctx, &api.LoginRequest{Shop: shop, Password: password})
	if err != nil {
		return "", mapError(err)
	}
	c.SetToken(resp.AccessToken)
	return resp.AccessToken, nil
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return mapError(err)
	}
	if resp.Status != api.PingStatusOK {
		return fmt.Errorf("%w: server status %q", common.ErrConnectivity, resp.Status)
	}
	return nil
}

func (c *Client) CheckShop(ctx context.Context, name string) (*models.Shop, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.CheckShop(ctx, &api.CheckShopRequest{Shop: name})
	if err != nil {
		return nil, mapError(err)
	}
	return &resp.Shop, nil
}

func (c *Client) ListShops(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.ListShops(ctx, &api.ListShopsRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Shops, nil
}

func (c *Client) UpsertProduct(ctx context.Context, productID, shop string, fields models.ProductFields, price *decimal.Decimal) (models.Revision, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.UpsertProduct(ctx, &api.UpsertProductRequest{ProductID: productID, Shop: shop, Fields: fields, Price: price})
	if err != nil {
		return models.Revision{}, mapError(err)
	}
	return resp.Revision, nil
}

func (c *Client) RemovePrice(ctx context.Context, productID, shop string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.client.RemovePrice(ctx, &api.RemovePriceRequest{ProductID: productID, Shop: shop})
	return mapError(err)
}

func (c *Client) QueryDelta(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.QueryDelta(ctx, &api.QueryDeltaRequest{Shop: shop, Since: since})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Products, nil
}

func (c *Client) ListAllIDs(ctx context.Context) ([]models.ProductKey, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.ListAllIDs(ctx, &api.ListAllIDsRequest{})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Keys, nil
}

func (c *Client) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.FindByBarcode(ctx, &api.FindByBarcodeRequest{Barcode: barcode})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Products, nil
}

func (c *Client) AppendSale(ctx context.Context, shop string, sale models.Sale) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.client.AppendSale(ctx, &api.AppendSaleRequest{Shop: shop, Sale: sale})
	return mapError(err)
}

func (c *Client) QuerySales(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.QuerySales(ctx, &api.QuerySalesRequest{Shop: shop, Limit: limit, NewestFirst: newestFirst})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Sales, nil
}
