package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/cryptox"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/possync/internal/server/repositories/shops"
)

type ShopService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewShopService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *ShopService {
	return &ShopService{db: db, repomanager: m, log: l.With("module", "shop_service")}
}

func (s *ShopService) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConnectivity, err)
	}
	return nil
}

// CheckShop fails with common.ErrAuthorization for unknown shops.
func (s *ShopService) CheckShop(ctx context.Context, name string) (*models.Shop, error) {
	rec, err := s.repomanager.Shops(s.db).Get(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrAuthorization
		}
		return nil, err
	}
	return &models.Shop{Name: rec.Name, Config: rec.Config}, nil
}

func (s *ShopService) VerifyShop(ctx context.Context, name, password string) (*models.Shop, error) {
	rec, err := s.repomanager.Shops(s.db).Get(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrAuthorization
		}
		return nil, err
	}
	if err := cryptox.CheckPassword(rec.PasswordHash, password); err != nil {
		return nil, common.ErrAuthorization
	}
	return &models.Shop{Name: rec.Name, Config: rec.Config}, nil
}

func (s *ShopService) ListShops(ctx context.Context) ([]string, error) {
	return s.repomanager.Shops(s.db).ListNames(ctx)
}

// CreateShop registers shop. With copyFrom set, every product priced in
// copyFrom is listed in the new shop at the same price in the same
// transaction.
func (s *ShopService) CreateShop(ctx context.Context, shop models.Shop, password, copyFrom string) error {
	if shop.Name == "" {
		return fmt.Errorf("%w: empty shop name", common.ErrInvalidArgument)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	var copied int
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		shopsRepo := s.repomanager.Shops(tx)
		if copyFrom != "" {
			if _, err := shopsRepo.Get(ctx, copyFrom); err != nil {
				if isNotFound(err) {
					return fmt.Errorf("source shop %q: %w", copyFrom, common.ErrNotFound)
				}
				return err
			}
		}
		if err := shopsRepo.Create(ctx, &shops.Record{Name: shop.Name, PasswordHash: hash, Config: shop.Config}); err != nil {
			return err
		}
		if copyFrom == "" {
			return nil
		}
		ids, err := s.repomanager.Prices(tx).CopyShop(ctx, copyFrom, shop.Name)
		if err != nil {
			return err
		}
		copied = len(ids)
		return s.repomanager.Products(tx).TouchMany(ctx, ids)
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "shop created", "shop", shop.Name, "copied_from", copyFrom, "products", copied)
	return nil
}
