package services

import (
	"database/sql"

	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
)

var _ remote.Admin = (*Backend)(nil)

// Backend is the Postgres implementation of remote.Admin.
type Backend struct {
	*CatalogService
	*LedgerService
	*ShopService
}

func NewBackend(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *Backend {
	return &Backend{
		CatalogService: NewCatalogService(db, m, l),
		LedgerService:  NewLedgerService(db, m, l),
		ShopService:    NewShopService(db, m, l),
	}
}
