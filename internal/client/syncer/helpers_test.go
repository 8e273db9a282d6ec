package syncer

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/store"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/dmitrijs2005/possync/internal/remote/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// clock advances by one millisecond on every reading, so the engine and the
// remote store observe a strictly increasing shared time.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type fixture struct {
	clock  *clock
	remote *memory.Store
	local  *store.Store
	db     *sql.DB
}

func newFixture(t *testing.T, shops ...string) *fixture {
	t.Helper()
	ctx := context.Background()

	clk := newClock()
	rs := memory.New()
	rs.SetClock(clk.Now)
	for _, name := range shops {
		require.NoError(t, rs.CreateShop(ctx, models.Shop{Name: name, Config: map[string]string{"pos_name": name + "-pos"}}, "pw", ""))
	}

	db, err := store.InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	ls := store.New(db)
	t.Cleanup(func() { _ = ls.Close() })

	return &fixture{clock: clk, remote: rs, local: ls, db: db}
}

func (f *fixture) engine(rs remote.Store, local LocalStore, opts Options) *Engine {
	if rs == nil {
		rs = f.remote
	}
	if local == nil {
		local = f.local
	}
	e := NewEngine(local, rs, opts, logging.Nop())
	e.now = f.clock.Now
	return e
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fields(barcode, flavor string) models.ProductFields {
	return models.ProductFields{Barcode: barcode, Brand: "Marca", Category: "Bebidas", Flavor: flavor}
}

func (f *fixture) remoteUpsert(t *testing.T, id, shop string, fl models.ProductFields, price *decimal.Decimal) {
	t.Helper()
	_, err := f.remote.UpsertProduct(context.Background(), id, shop, fl, price)
	require.NoError(t, err)
}

func (f *fixture) localEdit(t *testing.T, id, shop string, fl models.ProductFields, price string) {
	t.Helper()
	p := models.Product{ID: id, ProductFields: fl, Prices: map[string]decimal.Decimal{shop: *dec(price)}}
	_, err := f.local.UpsertLocal(context.Background(), p, shop, models.StatusModified)
	require.NoError(t, err)
}

// corrupt runs a raw statement against the cache, bypassing the store.
func (f *fixture) corrupt(t *testing.T, query string, args ...any) {
	t.Helper()
	_, err := f.db.Exec(query, args...)
	require.NoError(t, err)
}

func (f *fixture) localRow(t *testing.T, id string) *models.LocalProduct {
	t.Helper()
	p, err := f.local.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// faultyRemote overrides selected remote calls.
type faultyRemote struct {
	remote.Store

	pingErr       error
	appendErr     func(sale models.Sale) error
	upsertErr     func(id string) error
	queryDeltaErr error
	listIDsErr    error

	mu         sync.Mutex
	deltaCalls []deltaCall
	idCalls    int
}

type deltaCall struct {
	shop  string
	since *time.Time
}

func (r *faultyRemote) Ping(ctx context.Context) error {
	if r.pingErr != nil {
		return r.pingErr
	}
	return r.Store.Ping(ctx)
}

func (r *faultyRemote) AppendSale(ctx context.Context, shop string, sale models.Sale) error {
	if r.appendErr != nil {
		if err := r.appendErr(sale); err != nil {
			return err
		}
	}
	return r.Store.AppendSale(ctx, shop, sale)
}

func (r *faultyRemote) UpsertProduct(ctx context.Context, id, shop string, f models.ProductFields, price *decimal.Decimal) (models.Revision, error) {
	if r.upsertErr != nil {
		if err := r.upsertErr(id); err != nil {
			return models.Revision{}, err
		}
	}
	return r.Store.UpsertProduct(ctx, id, shop, f, price)
}

func (r *faultyRemote) QueryDelta(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	r.mu.Lock()
	r.deltaCalls = append(r.deltaCalls, deltaCall{shop: shop, since: since})
	r.mu.Unlock()
	if r.queryDeltaErr != nil {
		return nil, r.queryDeltaErr
	}
	return r.Store.QueryDelta(ctx, shop, since)
}

func (r *faultyRemote) ListAllIDs(ctx context.Context) ([]models.ProductKey, error) {
	r.mu.Lock()
	r.idCalls++
	r.mu.Unlock()
	if r.listIDsErr != nil {
		return nil, r.listIDsErr
	}
	return r.Store.ListAllIDs(ctx)
}
