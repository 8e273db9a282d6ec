package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/server/repositories/repomanager"
)

type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *LedgerService {
	return &LedgerService{db: db, repomanager: m, log: l.With("module", "ledger_service")}
}

// AppendSale stores sale under shop. Re-sending a sale with the same
// timestamp overwrites it, which is what makes upload retries safe.
func (s *LedgerService) AppendSale(ctx context.Context, shop string, sale models.Sale) error {
	if shop == "" {
		return fmt.Errorf("%w: empty shop", common.ErrInvalidArgument)
	}
	if sale.Timestamp.IsZero() {
		return fmt.Errorf("%w: sale without timestamp", common.ErrInvalidArgument)
	}
	sale.Shop = shop
	sale.Timestamp = models.SaleTime(sale.Timestamp)

	if err := s.repomanager.Sales(s.db).Append(ctx, sale); err != nil {
		return fmt.Errorf("error saving sale: %w", err)
	}
	return nil
}

func (s *LedgerService) QuerySales(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error) {
	return s.repomanager.Sales(s.db).Query(ctx, shop, limit, newestFirst)
}
