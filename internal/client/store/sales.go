package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
)

// maxSaleCollisions bounds the +1µs probing in EnqueueSale.
const maxSaleCollisions = 1000

// EnqueueSale queues sale as pending. Its timestamp is normalised to UTC
// microseconds; if another sale of the same shop already holds that instant
// the timestamp is moved forward by one microsecond until it is free.
// The stored sale is returned.
func (s *Store) EnqueueSale(ctx context.Context, sale models.Sale) (models.Sale, error) {
	if sale.Shop == "" {
		return models.Sale{}, common.ErrNoCurrentShop
	}
	items := sale.LineItems
	if items == nil {
		items = []models.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return models.Sale{}, fmt.Errorf("failed to encode line items: %w", err)
	}

	row := &models.LocalSale{
		Shop:          sale.Shop,
		Timestamp:     models.SaleTime(sale.Timestamp),
		FinalPrice:    sale.FinalPrice.String(),
		PaymentMethod: sale.PaymentMethod,
		LineItems:     string(raw),
	}
	for i := 0; i < maxSaleCollisions; i++ {
		err = s.sales.Insert(ctx, row)
		if !errors.Is(err, common.ErrAlreadyExists) {
			break
		}
		row.Timestamp = row.Timestamp.Add(time.Microsecond)
	}
	if err != nil {
		return models.Sale{}, err
	}

	sale.Timestamp = row.Timestamp
	sale.LineItems = items
	return sale, nil
}

func (s *Store) ListPendingSales(ctx context.Context) ([]models.LocalSale, []common.RecordError, error) {
	return s.sales.ListPending(ctx)
}

// MarkSaleSynced clears the pending state of the sale identified by
// (shop, timestamp).
func (s *Store) MarkSaleSynced(ctx context.Context, shop string, ts time.Time) error {
	return s.sales.MarkSynced(ctx, shop, ts)
}

// SalesHistory returns the shop's queued and uploaded sales, newest first.
func (s *Store) SalesHistory(ctx context.Context, shop string, limit int) ([]models.LocalSale, error) {
	return s.sales.History(ctx, shop, limit)
}
