package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// snapshot makes a delta read see products and their prices as of one
// instant.
var snapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

type CatalogService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	newID       func() string
}

func NewCatalogService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *CatalogService {
	return &CatalogService{
		db:          db,
		repomanager: m,
		log:         l.With("module", "catalog_service"),
		newID:       uuid.NewString,
	}
}

func (s *CatalogService) UpsertProduct(ctx context.Context, productID, shop string, fields models.ProductFields, price *decimal.Decimal) (models.Revision, error) {
	if price != nil {
		if shop == "" {
			return models.Revision{}, fmt.Errorf("%w: price without shop", common.ErrInvalidArgument)
		}
		if price.IsNegative() {
			return models.Revision{}, fmt.Errorf("%w: negative price", common.ErrInvalidArgument)
		}
	}
	if productID == "" {
		productID = s.newID()
	}

	var rev models.Revision
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ts, err := s.repomanager.Products(tx).Upsert(ctx, productID, fields)
		if err != nil {
			return fmt.Errorf("error saving product: %w", err)
		}
		if price != nil {
			if err := s.repomanager.Prices(tx).Set(ctx, productID, shop, *price); err != nil {
				return fmt.Errorf("error saving price: %w", err)
			}
		}
		rev = models.Revision{ProductID: productID, LastUpdated: ts}
		return nil
	})
	if err != nil {
		return models.Revision{}, err
	}
	return rev, nil
}

// RemovePrice unlists the product from shop. The product's last_updated moves
// even when the shop had no price, so every device re-reads the record.
func (s *CatalogService) RemovePrice(ctx context.Context, productID, shop string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Products(tx).Touch(ctx, productID); err != nil {
			return err
		}
		removed, err := s.repomanager.Prices(tx).Remove(ctx, productID, shop)
		if err != nil {
			return fmt.Errorf("error removing price: %w", err)
		}
		if removed {
			s.log.Info(ctx, "price removed", "product_id", productID, "shop", shop)
		}
		return nil
	})
}

func (s *CatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if err := s.repomanager.Products(s.db).Delete(ctx, productID); err != nil {
		return err
	}
	s.log.Info(ctx, "product deleted", "product_id", productID)
	return nil
}

func (s *CatalogService) QueryDelta(ctx context.Context, shop string, since *time.Time) ([]models.Product, error) {
	var out []models.Product
	err := dbx.WithTx(ctx, s.db, snapshot, func(ctx context.Context, tx dbx.DBTX) error {
		list, err := s.repomanager.Products(tx).ListSince(ctx, shop, since)
		if err != nil {
			return err
		}
		out, err = s.withPrices(ctx, tx, list)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) ListAllIDs(ctx context.Context) ([]models.ProductKey, error) {
	return s.repomanager.Products(s.db).ListKeys(ctx)
}

func (s *CatalogService) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	if barcode == "" {
		return nil, fmt.Errorf("%w: empty barcode", common.ErrInvalidArgument)
	}
	var out []models.Product
	err := dbx.WithTx(ctx, s.db, snapshot, func(ctx context.Context, tx dbx.DBTX) error {
		list, err := s.repomanager.Products(tx).FindByBarcode(ctx, barcode)
		if err != nil {
			return err
		}
		out, err = s.withPrices(ctx, tx, list)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) withPrices(ctx context.Context, tx dbx.DBTX, list []models.Product) ([]models.Product, error) {
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	byProduct, err := s.repomanager.Prices(tx).ForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Prices = byProduct[list[i].ID]
		if list[i].Prices == nil {
			list[i].Prices = map[string]decimal.Decimal{}
		}
	}
	return list, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
