package sales

import (
	"context"

	"github.com/dmitrijs2005/possync/internal/models"
)

type Repository interface {
	Append(ctx context.Context, sale models.Sale) error
	Query(ctx context.Context, shop string, limit int, newestFirst bool) ([]models.Sale, error)
}
