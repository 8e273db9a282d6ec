package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/server/repositories/prices"
	"github.com/dmitrijs2005/possync/internal/server/repositories/products"
	"github.com/dmitrijs2005/possync/internal/server/repositories/sales"
	"github.com/dmitrijs2005/possync/internal/server/repositories/shops"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeRepos is an in-memory stand-in for every repository. Errors set on it
// are returned by the matching call.
type fakeRepos struct {
	now      time.Time
	products map[string]models.Product
	prices   map[string]map[string]decimal.Decimal
	shops    map[string]*shops.Record
	sales    []models.Sale

	upsertErr  error
	setErr     error
	copyErr    error
	touched    []string
	lastSince  *time.Time
	lastShop   string
	salesQuery struct {
		shop        string
		limit       int
		newestFirst bool
	}
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		products: map[string]models.Product{},
		prices:   map[string]map[string]decimal.Decimal{},
		shops:    map[string]*shops.Record{},
	}
}

func (f *fakeRepos) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepos) Shops(dbx.DBTX) shops.Repository             { return fakeShops{f} }
func (f *fakeRepos) Products(dbx.DBTX) products.Repository       { return fakeProducts{f} }
func (f *fakeRepos) Prices(dbx.DBTX) prices.Repository           { return fakePrices{f} }
func (f *fakeRepos) Sales(dbx.DBTX) sales.Repository             { return fakeSales{f} }

func (f *fakeRepos) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

type fakeProducts struct{ f *fakeRepos }

func (r fakeProducts) Upsert(ctx context.Context, id string, fields models.ProductFields) (time.Time, error) {
	if r.f.upsertErr != nil {
		return time.Time{}, r.f.upsertErr
	}
	p := r.f.products[id]
	p.ID = id
	p.ProductFields = fields
	p.LastUpdated = r.f.tick()
	r.f.products[id] = p
	return p.LastUpdated, nil
}

func (r fakeProducts) Touch(ctx context.Context, id string) (time.Time, error) {
	p, ok := r.f.products[id]
	if !ok {
		return time.Time{}, common.ErrNotFound
	}
	p.LastUpdated = r.f.tick()
	r.f.products[id] = p
	return p.LastUpdated, nil
}

func (r fakeProducts) TouchMany(ctx context.Context, ids []string) error {
	r.f.touched = append(r.f.touched, ids...)
	for _, id := range ids {
		if _, err := r.Touch(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r fakeProducts) Delete(ctx context.Context, id string) error {
	if _, ok := r.f.products[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.f.products, id)
	delete(r.f.prices, id)
	return nil
}

func (r fakeProducts) ListSince(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	r.f.lastShop, r.f.lastSince = shop, since
	var out []models.Product
	for id, p := range r.f.products {
		if since != nil && !p.LastUpdated.After(*since) {
			continue
		}
		if _, ok := r.f.prices[id][shop]; shop != "" && !ok {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeProducts) ListKeys(ctx context.Context) ([]models.ProductKey, error) {
	var out []models.ProductKey
	for _, p := range r.f.products {
		out = append(out, models.ProductKey{ID: p.ID, Barcode: p.Barcode})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeProducts) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	var out []models.Product
	for _, p := range r.f.products {
		if p.Barcode == barcode {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakePrices struct{ f *fakeRepos }

func (r fakePrices) Set(ctx context.Context, productID, shop string, price decimal.Decimal) error {
	if r.f.setErr != nil {
		return r.f.setErr
	}
	if r.f.prices[productID] == nil {
		r.f.prices[productID] = map[string]decimal.Decimal{}
	}
	r.f.prices[productID][shop] = price
	return nil
}

func (r fakePrices) Remove(ctx context.Context, productID, shop string) (bool, error) {
	_, ok := r.f.prices[productID][shop]
	delete(r.f.prices[productID], shop)
	return ok, nil
}

func (r fakePrices) ForProducts(ctx context.Context, ids []string) (map[string]map[string]decimal.Decimal, error) {
	out := map[string]map[string]decimal.Decimal{}
	for _, id := range ids {
		if m, ok := r.f.prices[id]; ok && len(m) > 0 {
			out[id] = m
		}
	}
	return out, nil
}

func (r fakePrices) CopyShop(ctx context.Context, from, to string) ([]string, error) {
	if r.f.copyErr != nil {
		return nil, r.f.copyErr
	}
	var ids []string
	for id, m := range r.f.prices {
		if p, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = p
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type fakeShops struct{ f *fakeRepos }

func (r fakeShops) Create(ctx context.Context, rec *shops.Record) error {
	if _, ok := r.f.shops[rec.Name]; ok {
		return common.ErrAlreadyExists
	}
	r.f.shops[rec.Name] = rec
	return nil
}

func (r fakeShops) Get(ctx context.Context, name string) (*shops.Record, error) {
	rec, ok := r.f.shops[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

func (r fakeShops) ListNames(ctx context.Context) ([]string, error) {
	var out []string
	for name := range r.f.shops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type fakeSales struct{ f *fakeRepos }

func (r fakeSales) Append(ctx context.Context, sale models.Sale) error {
	for i, s := range r.f.sales {
		if s.Shop == sale.Shop && s.Timestamp.Equal(sale.Timestamp) {
			r.f.sales[i] = sale
			return nil
		}
	}
	r.f.sales = append(r.f.sales, sale)
	return nil
}

func (r fakeSales) Query(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error) {
	r.f.salesQuery.shop, r.f.salesQuery.limit, r.f.salesQuery.newestFirst = shop, limit, newestFirst
	var out []models.Sale
	for _, s := range r.f.sales {
		if s.Shop == shop {
			out = append(out, s)
		}
	}
	return out, nil
}

// newBackend returns a Backend over the fake repositories and a sqlmock
// handle that only sees transaction control statements.
func newBackend(t *testing.T) (*Backend, *fakeRepos, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	repos := newFakeRepos()
	return NewBackend(db, repos, logging.Nop()), repos, mock
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
