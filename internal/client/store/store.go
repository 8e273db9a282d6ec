package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/possync/internal/client/repositories/products"
	"github.com/dmitrijs2005/possync/internal/client/repositories/sales"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/textx"
	"github.com/shopspring/decimal"
)

// Store is the Local Cache Store.
type Store struct {
	db    *sql.DB
	locks rowLocks

	products products.Repository
	sales    sales.Repository
	config   metadata.Repository
}

// New wraps an already migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		db:       db,
		products: products.NewSQLiteRepository(db),
		sales:    sales.NewSQLiteRepository(db),
		config:   metadata.NewSQLiteRepository(db),
	}
}

// Open opens and migrates the cache file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := InitDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn with repositories bound to one transaction.
func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context, repo products.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, products.NewSQLiteRepository(tx))
	})
}

func getOrNil(ctx context.Context, repo products.Repository, id string) (*models.LocalProduct, error) {
	p, err := repo.Get(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func searchKey(f models.ProductFields) string {
	return textx.SearchKey(f.Barcode, f.Brand, f.Category, f.Flavor)
}

func resolve(prices map[string]decimal.Decimal, shop string) *decimal.Decimal {
	if v, ok := prices[shop]; ok {
		return &v
	}
	return nil
}

// UpsertLocal writes p as a local row for the active shop.
//
// With StatusModified (editor writes) the incoming prices are merged into the
// stored map and the stored LastUpdated is kept, since only the remote store
// sets it. With StatusSynced (downloads) the remote record replaces the row.
func (s *Store) UpsertLocal(ctx context.Context, p models.Product, shop string, status models.SyncStatus) (*models.LocalProduct, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: empty product id", common.ErrInvalidArgument)
	}
	unlock := s.locks.lock(p.ID)
	defer unlock()

	var out *models.LocalProduct
	err := s.inTx(ctx, func(ctx context.Context, repo products.Repository) error {
		cur, err := getOrNil(ctx, repo, p.ID)
		if err != nil {
			return err
		}
		out = merge(cur, p, shop, status)
		return repo.Save(ctx, out, searchKey(out.ProductFields))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func merge(cur *models.LocalProduct, p models.Product, shop string, status models.SyncStatus) *models.LocalProduct {
	next := &models.LocalProduct{Product: p.Clone(), SyncStatus: status}
	if next.Prices == nil {
		next.Prices = map[string]decimal.Decimal{}
	}
	if cur != nil {
		next.Revision = cur.Revision
		if status == models.StatusModified {
			prices := cur.Clone().Prices
			for k, v := range next.Prices {
				prices[k] = v
			}
			next.Prices = prices
			next.LastUpdated = cur.LastUpdated
		}
	}
	next.Revision++
	next.Price = resolve(next.Prices, shop)
	return next
}

// ApplyRemote stores a downloaded product unless the local copy is modified
// or already at least as new. It reports whether the row was written.
func (s *Store) ApplyRemote(ctx context.Context, p models.Product, shop string) (bool, error) {
	unlock := s.locks.lock(p.ID)
	defer unlock()

	applied := false
	err := s.inTx(ctx, func(ctx context.Context, repo products.Repository) error {
		cur, err := getOrNil(ctx, repo, p.ID)
		if err != nil {
			return err
		}
		if cur != nil && (cur.SyncStatus == models.StatusModified || !cur.LastUpdated.Before(p.LastUpdated)) {
			return nil
		}
		next := merge(cur, p, shop, models.StatusSynced)
		if err := repo.Save(ctx, next, searchKey(next.ProductFields)); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// MarkProductSynced clears the dirty state of a row uploaded at
// expectedRevision. A row edited again since it was read is left modified for
// the next run. When the remote store assigned another id the row is rekeyed.
func (s *Store) MarkProductSynced(ctx context.Context, productID string, expectedRevision int64, remoteID string, lastUpdated time.Time) (bool, error) {
	if remoteID == "" {
		remoteID = productID
	}
	unlock := s.locks.lock(productID, remoteID)
	defer unlock()

	ok := false
	err := s.inTx(ctx, func(ctx context.Context, repo products.Repository) error {
		if remoteID != productID {
			clash, err := getOrNil(ctx, repo, remoteID)
			if err != nil {
				return err
			}
			if clash != nil {
				if clash.SyncStatus == models.StatusModified {
					return nil
				}
				if err := repo.Delete(ctx, remoteID); err != nil {
					return err
				}
			}
		}
		var err error
		ok, err = repo.MarkSynced(ctx, productID, expectedRevision, remoteID, lastUpdated)
		return err
	})
	return ok, err
}

// DeleteSynced purges rows that are still synced; modified rows are kept.
// It returns the number of rows removed.
func (s *Store) DeleteSynced(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		unlock := s.locks.lock(id)
		err := s.inTx(ctx, func(ctx context.Context, repo products.Repository) error {
			cur, err := getOrNil(ctx, repo, id)
			if err != nil || cur == nil || cur.SyncStatus != models.StatusSynced {
				return err
			}
			if err := repo.Delete(ctx, id); err != nil {
				return err
			}
			deleted++
			return nil
		})
		unlock()
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// ClearShopPrice removes shop from a synced row's assortment.
func (s *Store) ClearShopPrice(ctx context.Context, productID, shop string) (bool, error) {
	unlock := s.locks.lock(productID)
	defer unlock()

	cleared := false
	err := s.inTx(ctx, func(ctx context.Context, repo products.Repository) error {
		cur, err := getOrNil(ctx, repo, productID)
		if err != nil || cur == nil || cur.SyncStatus != models.StatusSynced {
			return err
		}
		if _, ok := cur.Prices[shop]; !ok {
			return nil
		}
		delete(cur.Prices, shop)
		cur.Price = nil
		cur.Revision++
		if err := repo.Save(ctx, cur, searchKey(cur.ProductFields)); err != nil {
			return err
		}
		cleared = true
		return nil
	})
	return cleared, err
}

// ResolvePrices recomputes the resolved price column of every row for shop.
func (s *Store) ResolvePrices(ctx context.Context, shop string) error {
	return s.inTx(ctx, func(ctx context.Context, repo products.Repository) error {
		all, _, err := repo.ListAll(ctx)
		if err != nil {
			return err
		}
		for _, p := range all {
			if err := repo.UpdatePrice(ctx, p.ID, resolve(p.Prices, shop)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.LocalProduct, error) {
	return s.products.Get(ctx, id)
}

func (s *Store) GetByBarcode(ctx context.Context, barcode string) ([]models.LocalProduct, error) {
	return s.products.GetByBarcode(ctx, barcode)
}

// Search matches term as a substring of barcode, brand, category or flavor,
// ignoring case and accents.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]models.LocalProduct, error) {
	return s.products.Search(ctx, textx.LikePattern(term), limit)
}

// ListAllLocal returns every product row. Rows that cannot be decoded come
// back in bad instead.
func (s *Store) ListAllLocal(ctx context.Context) ([]models.LocalProduct, []common.RecordError, error) {
	return s.products.ListAll(ctx)
}

func (s *Store) ListModified(ctx context.Context) ([]models.LocalProduct, []common.RecordError, error) {
	return s.products.ListByStatus(ctx, models.StatusModified)
}
