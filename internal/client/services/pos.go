package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocalStore is the part of the local cache the editor uses.
type LocalStore interface {
	UpsertLocal(ctx context.Context, p models.Product, shop string, status models.SyncStatus) (*models.LocalProduct, error)
	GetByID(ctx context.Context, id string) (*models.LocalProduct, error)
	GetByBarcode(ctx context.Context, barcode string) ([]models.LocalProduct, error)
	Search(ctx context.Context, term string, limit int) ([]models.LocalProduct, error)
	EnqueueSale(ctx context.Context, sale models.Sale) (models.Sale, error)
	SalesHistory(ctx context.Context, shop string, limit int) ([]models.LocalSale, error)

	CurrentShop(ctx context.Context) (string, error)
	SetCurrentShop(ctx context.Context, shop string) error
	ResetCursor(ctx context.Context) error
	ResolvePrices(ctx context.Context, shop string) error
}

// Variants lists the products sharing a barcode. Remote holds variants known
// to the remote store but not cached locally; it is empty when offline.
type Variants struct {
	Local   []models.LocalProduct
	Remote  []models.Product
	Offline bool
}

// POSService is used by the editor and the checkout.
type POSService interface {
	AddProduct(ctx context.Context, info models.ProductInfo, shop string) (string, error)
	RecordSale(ctx context.Context, finalPrice decimal.Decimal, paymentMethod string, items []models.LineItem) (models.Sale, error)
	Variants(ctx context.Context, barcode string) (Variants, error)
	SeedFromVariant(ctx context.Context, barcode, variantID, shop string, price decimal.Decimal) (string, error)
	Search(ctx context.Context, term string, limit int) ([]models.LocalProduct, error)
	GetByID(ctx context.Context, id string) (*models.LocalProduct, error)
	History(ctx context.Context, limit int) ([]models.LocalSale, error)
	CurrentShop(ctx context.Context) (string, error)
	SetCurrentShop(ctx context.Context, shop string) error
}

type posService struct {
	local       LocalStore
	catalog     remote.Catalog
	callTimeout time.Duration
	validate    *validator.Validate
	log         logging.Logger
	now         func() time.Time
}

// NewPOSService builds the editor service. catalog may be nil, in which case
// variant lookups stay local.
func NewPOSService(local LocalStore, catalog remote.Catalog, callTimeout time.Duration, l logging.Logger) POSService {
	return &posService{
		local:       local,
		catalog:     catalog,
		callTimeout: callTimeout,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		log:         l.With("module", "pos_service"),
		now:         time.Now,
	}
}

func (s *posService) shopOrCurrent(ctx context.Context, shop string) (string, error) {
	if shop != "" {
		return shop, nil
	}
	shop, err := s.local.CurrentShop(ctx)
	if err != nil {
		return "", err
	}
	if shop == "" {
		return "", common.ErrNoCurrentShop
	}
	return shop, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
}

// AddProduct stores a new or edited product locally as modified. The product
// is uploaded by the next sync.
func (s *posService) AddProduct(ctx context.Context, info models.ProductInfo, shop string) (string, error) {
	if err := s.validate.Struct(info); err != nil {
		return "", invalid(err)
	}
	if info.Price.IsNegative() {
		return "", invalid(errors.New("price must not be negative"))
	}
	shop, err := s.shopOrCurrent(ctx, shop)
	if err != nil {
		return "", err
	}

	id := info.ProductID
	if id == "" {
		id = uuid.NewString()
	}
	p := models.Product{
		ID:            id,
		ProductFields: info.Fields(),
		Prices:        map[string]decimal.Decimal{shop: info.Price},
	}
	if _, err := s.local.UpsertLocal(ctx, p, shop, models.StatusModified); err != nil {
		return "", fmt.Errorf("failed to save product: %w", err)
	}
	s.log.Info(ctx, "product saved", "product_id", id, "shop", shop)
	return id, nil
}

// RecordSale queues a sale of the current shop. It never needs the network.
func (s *posService) RecordSale(ctx context.Context, finalPrice decimal.Decimal, paymentMethod string, items []models.LineItem) (models.Sale, error) {
	if finalPrice.IsNegative() {
		return models.Sale{}, invalid(errors.New("final price must not be negative"))
	}
	for i := range items {
		if err := s.validate.Struct(items[i]); err != nil {
			return models.Sale{}, invalid(err)
		}
	}
	shop, err := s.shopOrCurrent(ctx, "")
	if err != nil {
		return models.Sale{}, err
	}

	sale, err := s.local.EnqueueSale(ctx, models.Sale{
		Shop:          shop,
		Timestamp:     s.now(),
		FinalPrice:    finalPrice,
		PaymentMethod: paymentMethod,
		LineItems:     items,
	})
	if err != nil {
		return models.Sale{}, fmt.Errorf("failed to record sale: %w", err)
	}
	return sale, nil
}

func (s *posService) Variants(ctx context.Context, barcode string) (Variants, error) {
	local, err := s.local.GetByBarcode(ctx, barcode)
	if err != nil {
		return Variants{}, err
	}
	out := Variants{Local: local, Offline: s.catalog == nil}
	if s.catalog == nil {
		return out, nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	found, err := s.catalog.FindByBarcode(cctx, barcode)
	if err != nil {
		s.log.Warn(ctx, "remote variant lookup failed", "barcode", barcode, "err", err)
		out.Offline = true
		return out, nil
	}

	known := make(map[string]bool, len(local))
	for _, p := range local {
		known[p.ID] = true
	}
	for _, p := range found {
		if !known[p.ID] {
			out.Remote = append(out.Remote, p)
		}
	}
	return out, nil
}

// SeedFromVariant lists an existing variant in shop at price. Metadata comes
// from the variant; other shops' prices are not copied into the edit.
func (s *posService) SeedFromVariant(ctx context.Context, barcode, variantID, shop string, price decimal.Decimal) (string, error) {
	if price.IsNegative() {
		return "", invalid(errors.New("price must not be negative"))
	}
	shop, err := s.shopOrCurrent(ctx, shop)
	if err != nil {
		return "", err
	}

	var fields *models.ProductFields
	if p, err := s.local.GetByID(ctx, variantID); err == nil {
		fields = &p.ProductFields
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}
	if fields == nil {
		v, err := s.Variants(ctx, barcode)
		if err != nil {
			return "", err
		}
		for _, p := range v.Remote {
			if p.ID == variantID {
				fields = &p.ProductFields
				break
			}
		}
	}
	if fields == nil {
		return "", fmt.Errorf("variant %s: %w", variantID, common.ErrNotFound)
	}

	p := models.Product{ID: variantID, ProductFields: *fields, Prices: map[string]decimal.Decimal{shop: price}}
	if _, err := s.local.UpsertLocal(ctx, p, shop, models.StatusModified); err != nil {
		return "", fmt.Errorf("failed to save product: %w", err)
	}
	return variantID, nil
}

func (s *posService) Search(ctx context.Context, term string, limit int) ([]models.LocalProduct, error) {
	return s.local.Search(ctx, term, limit)
}

func (s *posService) GetByID(ctx context.Context, id string) (*models.LocalProduct, error) {
	return s.local.GetByID(ctx, id)
}

// History returns the current shop's sales, newest first.
func (s *posService) History(ctx context.Context, limit int) ([]models.LocalSale, error) {
	shop, err := s.shopOrCurrent(ctx, "")
	if err != nil {
		return nil, err
	}
	return s.local.SalesHistory(ctx, shop, limit)
}

func (s *posService) CurrentShop(ctx context.Context) (string, error) {
	return s.local.CurrentShop(ctx)
}

// SetCurrentShop switches the active shop. A switch drops the cursor, so the
// next sync runs in full mode, and re-resolves cached prices for the new shop.
func (s *posService) SetCurrentShop(ctx context.Context, shop string) error {
	if shop == "" {
		return invalid(errors.New("empty shop name"))
	}
	cur, err := s.local.CurrentShop(ctx)
	if err != nil {
		return err
	}
	if cur == shop {
		return nil
	}
	if err := s.local.SetCurrentShop(ctx, shop); err != nil {
		return err
	}
	if err := s.local.ResetCursor(ctx); err != nil {
		return err
	}
	if err := s.local.ResolvePrices(ctx, shop); err != nil {
		return err
	}
	s.log.Info(ctx, "current shop changed", "from", cur, "to", shop)
	return nil
}
