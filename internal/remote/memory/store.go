// Package memory is an in-process remote store. The server can run on it for
// demos, and the sync engine tests use it as the shared catalog.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/cryptox"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ remote.Admin = (*Store)(nil)

type shopRecord struct {
	shop         models.Shop
	passwordHash string
}

type Store struct {
	mu       sync.RWMutex
	products map[string]models.Product
	sales    map[string]map[int64]models.Sale
	shops    map[string]shopRecord
	now      func() time.Time
}

func New() *Store {
	return &Store{
		products: make(map[string]models.Product),
		sales:    make(map[string]map[int64]models.Sale),
		shops:    make(map[string]shopRecord),
		now:      time.Now,
	}
}

// SetClock replaces the clock used for LastUpdated.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) UpsertProduct(ctx context.Context, productID, shop string, fields models.ProductFields, price *decimal.Decimal) (models.Revision, error) {
	if err := ctx.Err(); err != nil {
		return models.Revision{}, err
	}
	if price != nil && shop == "" {
		return models.Revision{}, fmt.Errorf("%w: price without shop", common.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if productID == "" {
		productID = uuid.NewString()
	}
	p, ok := s.products[productID]
	if !ok {
		p = models.Product{ID: productID, Prices: map[string]decimal.Decimal{}}
	}
	p.ProductFields = fields
	if price != nil {
		p.Prices[shop] = *price
	}
	p.LastUpdated = s.bump(p.LastUpdated)
	s.products[productID] = p

	return models.Revision{ProductID: productID, LastUpdated: p.LastUpdated}, nil
}

func (s *Store) RemovePrice(ctx context.Context, productID, shop string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return common.ErrNotFound
	}
	delete(p.Prices, shop)
	p.LastUpdated = s.bump(p.LastUpdated)
	s.products[productID] = p
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return common.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func (s *Store) QueryDelta(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if since != nil && !p.LastUpdated.After(*since) {
			continue
		}
		if shop != "" && !p.Listed(shop) {
			continue
		}
		out = append(out, p.Clone())
	}
	sortProducts(out)
	return out, nil
}

func (s *Store) ListAllIDs(ctx context.Context) ([]models.ProductKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProductKey, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, models.ProductKey{ID: p.ID, Barcode: p.Barcode})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if p.Barcode == barcode {
			out = append(out, p.Clone())
		}
	}
	sortProducts(out)
	return out, nil
}

// Product returns a copy of the stored product, for direct reads in tests
// and admin tooling.
func (s *Store) Product(id string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p.Clone(), ok
}

func (s *Store) AppendSale(ctx context.Context, shop string, sale models.Sale) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.sales[shop]
	if !ok {
		bucket = make(map[int64]models.Sale)
		s.sales[shop] = bucket
	}
	sale.Shop = shop
	sale.Timestamp = models.SaleTime(sale.Timestamp)
	bucket[sale.Timestamp.UnixMicro()] = sale
	return nil
}

func (s *Store) QuerySales(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Sale, 0, len(s.sales[shop]))
	for _, sale := range s.sales[shop] {
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CheckShop(ctx context.Context, name string) (*models.Shop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.shops[name]
	if !ok {
		return nil, common.ErrAuthorization
	}
	shop := rec.shop
	return &shop, nil
}

func (s *Store) VerifyShop(ctx context.Context, name, password string) (*models.Shop, error) {
	s.mu.RLock()
	rec, ok := s.shops[name]
	s.mu.RUnlock()
	if !ok {
		return nil, common.ErrAuthorization
	}
	if err := cryptox.CheckPassword(rec.passwordHash, password); err != nil {
		return nil, common.ErrAuthorization
	}
	shop := rec.shop
	return &shop, nil
}

func (s *Store) ListShops(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.shops))
	for name := range s.shops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) CreateShop(ctx context.Context, shop models.Shop, password, copyFrom string) error {
	if shop.Name == "" {
		return fmt.Errorf("%w: empty shop name", common.ErrInvalidArgument)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shops[shop.Name]; ok {
		return common.ErrAlreadyExists
	}
	if copyFrom != "" {
		if _, ok := s.shops[copyFrom]; !ok {
			return fmt.Errorf("source shop %q: %w", copyFrom, common.ErrNotFound)
		}
	}
	s.shops[shop.Name] = shopRecord{shop: shop, passwordHash: hash}

	if copyFrom == "" {
		return nil
	}
	for id, p := range s.products {
		price, ok := p.PriceFor(copyFrom)
		if !ok {
			continue
		}
		p.Prices[shop.Name] = price
		p.LastUpdated = s.bump(p.LastUpdated)
		s.products[id] = p
	}
	return nil
}

func (s *Store) bump(prev time.Time) time.Time {
	return remote.NextTimestamp(s.now(), prev)
}

func sortProducts(ps []models.Product) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
