package store

import (
	"context"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/repositories/metadata"
)

// Config keys.
const (
	KeyCurrentShop = "current_shop"
	KeyCursor      = "last_sync_timestamp"
	KeyCachedShops = "cached_shops"
	KeyShopConfig  = "shop_config:"
	KeyAuthToken   = "auth_token"
)

type cursor struct {
	Shop      string    `json:"shop"`
	Timestamp time.Time `json:"timestamp"`
}

// CurrentShop returns the active shop, or "" when none is selected.
func (s *Store) CurrentShop(ctx context.Context) (string, error) {
	return metadata.String(ctx, s.config, KeyCurrentShop)
}

func (s *Store) SetCurrentShop(ctx context.Context, shop string) error {
	return metadata.SetString(ctx, s.config, KeyCurrentShop, shop)
}

// Cursor returns the last sync timestamp recorded for shop. A missing or
// unreadable cursor, or one recorded for another shop, yields nil, which
// makes the next run a full sync.
func (s *Store) Cursor(ctx context.Context, shop string) (*time.Time, error) {
	c, found, err := metadata.Load[cursor](ctx, s.config, KeyCursor)
	if !found {
		return nil, err
	}
	if err != nil || c.Shop != shop || c.Timestamp.IsZero() {
		return nil, nil
	}
	ts := c.Timestamp.UTC()
	return &ts, nil
}

func (s *Store) SetCursor(ctx context.Context, shop string, ts time.Time) error {
	return metadata.Save(ctx, s.config, KeyCursor, cursor{Shop: shop, Timestamp: ts.UTC()})
}

// ResetCursor forces the next sync into full mode.
func (s *Store) ResetCursor(ctx context.Context) error {
	return s.config.Delete(ctx, KeyCursor)
}

func (s *Store) CachedShops(ctx context.Context) ([]string, error) {
	shops, _, err := metadata.Load[[]string](ctx, s.config, KeyCachedShops)
	return shops, err
}

func (s *Store) SetCachedShops(ctx context.Context, shops []string) error {
	return metadata.Save(ctx, s.config, KeyCachedShops, shops)
}

// ShopConfig returns the device/credential attributes last fetched for shop.
func (s *Store) ShopConfig(ctx context.Context, shop string) (map[string]string, error) {
	cfg, _, err := metadata.Load[map[string]string](ctx, s.config, KeyShopConfig+shop)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = map[string]string{}
	}
	return cfg, nil
}

func (s *Store) SetShopConfig(ctx context.Context, shop string, cfg map[string]string) error {
	if cfg == nil {
		cfg = map[string]string{}
	}
	return metadata.Save(ctx, s.config, KeyShopConfig+shop, cfg)
}

// ForgetShopConfigs drops every cached shop config.
func (s *Store) ForgetShopConfigs(ctx context.Context) error {
	return s.config.DeletePrefix(ctx, KeyShopConfig)
}

func (s *Store) AuthToken(ctx context.Context) (string, error) {
	return metadata.String(ctx, s.config, KeyAuthToken)
}

func (s *Store) SetAuthToken(ctx context.Context, token string) error {
	return metadata.SetString(ctx, s.config, KeyAuthToken, token)
}
