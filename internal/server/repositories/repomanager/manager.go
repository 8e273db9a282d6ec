package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/server/repositories/prices"
	"github.com/dmitrijs2005/possync/internal/server/repositories/products"
	"github.com/dmitrijs2005/possync/internal/server/repositories/sales"
	"github.com/dmitrijs2005/possync/internal/server/repositories/shops"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Shops(db dbx.DBTX) shops.Repository
	Products(db dbx.DBTX) products.Repository
	Prices(db dbx.DBTX) prices.Repository
	Sales(db dbx.DBTX) sales.Repository
}
