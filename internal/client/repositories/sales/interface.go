package sales

import (
	"context"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
)

type Repository interface {
	// Insert queues a sale as pending. It returns common.ErrAlreadyExists
	// when a sale with the same shop and timestamp is already queued.
	Insert(ctx context.Context, s *models.LocalSale) error
	// ListPending returns rows whose timestamp cannot be read apart, in bad.
	ListPending(ctx context.Context) (rows []models.LocalSale, bad []common.RecordError, err error)
	MarkSynced(ctx context.Context, shop string, ts time.Time) error
	// History returns the newest sales of a shop first, both pending and synced.
	History(ctx context.Context, shop string, limit int) ([]models.LocalSale, error)
}
