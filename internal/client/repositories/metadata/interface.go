// Package metadata persists device settings (current shop, sync cursor,
// token, cached shop list) in the sqlite config table.
package metadata

import "context"

// Repository reads and writes raw setting values. Get reports found=false
// for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
