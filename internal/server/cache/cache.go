// Package cache puts a Redis read-through cache in front of barcode lookups.
//
// Entries are keyed by a catalog generation number. Every catalog write bumps
// the generation, which orphans all older entries at once; they then expire
// through their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/logging"
	"github.com/dmitrijs2005/possync/internal/metrics"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/dmitrijs2005/possync/internal/remote"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const generationKey = "catalog:gen"

// RedisClient is the part of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

var _ remote.Admin = (*BarcodeCache)(nil)

// BarcodeCache decorates a remote.Admin. Redis failures never fail a request:
// lookups fall back to the backend and invalidation failures are logged.
type BarcodeCache struct {
	remote.Admin
	rdb RedisClient
	ttl time.Duration
	log logging.Logger
}

func NewBarcodeCache(next remote.Admin, rdb RedisClient, ttl time.Duration, l logging.Logger) *BarcodeCache {
	return &BarcodeCache{Admin: next, rdb: rdb, ttl: ttl, log: l.With("module", "barcode_cache")}
}

func (c *BarcodeCache) generation(ctx context.Context) (string, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

func barcodeKey(gen, barcode string) string {
	return fmt.Sprintf("catalog:gen:%s:barcode:%s", gen, barcode)
}

func (c *BarcodeCache) FindByBarcode(ctx context.Context, barcode string) ([]models.Product, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn(ctx, "cache generation read failed", "err", err)
		metrics.BarcodeCacheTotal.WithLabelValues("error").Inc()
		return c.Admin.FindByBarcode(ctx, barcode)
	}
	key := barcodeKey(gen, barcode)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []models.Product
		if err := json.Unmarshal(raw, &out); err == nil {
			metrics.BarcodeCacheTotal.WithLabelValues("hit").Inc()
			return out, nil
		}
		c.log.Warn(ctx, "dropping undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn(ctx, "cache read failed", "key", key, "err", err)
	}
	metrics.BarcodeCacheTotal.WithLabelValues("miss").Inc()

	out, err := c.Admin.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn(ctx, "cache write failed", "key", key, "err", err)
		}
	}
	return out, nil
}

func (c *BarcodeCache) invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Error(ctx, "cache invalidation failed", "err", err)
	}
}

func (c *BarcodeCache) UpsertProduct(ctx context.Context, productID, shop string, fields models.ProductFields, price *decimal.Decimal) (models.Revision, error) {
	rev, err := c.Admin.UpsertProduct(ctx, productID, shop, fields, price)
	if err == nil {
		c.invalidate(ctx)
	}
	return rev, err
}

func (c *BarcodeCache) RemovePrice(ctx context.Context, productID, shop string) error {
	err := c.Admin.RemovePrice(ctx, productID, shop)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *BarcodeCache) DeleteProduct(ctx context.Context, productID string) error {
	err := c.Admin.DeleteProduct(ctx, productID)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *BarcodeCache) CreateShop(ctx context.Context, shop models.Shop, password, copyFrom string) error {
	err := c.Admin.CreateShop(ctx, shop, password, copyFrom)
	if err == nil && copyFrom != "" {
		c.invalidate(ctx)
	}
	return err
}
