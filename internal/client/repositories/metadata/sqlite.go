package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/dmitrijs2005/possync/internal/textx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	switch err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value); {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, key string, value []byte) error {
	const q = `INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := `DELETE FROM config WHERE key IN (?` + strings.Repeat(`, ?`, len(keys)-1) + `)`
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete settings %v: %w", keys, err)
	}
	return nil
}

func (r *SQLiteRepository) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM config WHERE key LIKE ? ESCAPE '\'`, textx.EscapeLike(prefix)+"%")
	if err != nil {
		return fmt.Errorf("delete settings %s*: %w", prefix, err)
	}
	return nil
}

// Keys lists setting names starting with prefix, sorted.
func (r *SQLiteRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key FROM config WHERE key LIKE ? ESCAPE '\' ORDER BY key`, textx.EscapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("list settings %s*: %w", prefix, err)
	}
	return dbx.CollectRows(rows, func(rows *sql.Rows) (string, error) {
		var k string
		return k, rows.Scan(&k)
	})
}

// String reads a text setting; a missing key reads as "".
func String(ctx context.Context, r Repository, key string) (string, error) {
	v, _, err := r.Get(ctx, key)
	return string(v), err
}

// SetString stores a text setting. The empty string removes the key.
func SetString(ctx context.Context, r Repository, key, value string) error {
	if value == "" {
		return r.Delete(ctx, key)
	}
	return r.Put(ctx, key, []byte(value))
}

// Load decodes a JSON setting into a T. found is false for a missing key.
func Load[T any](ctx context.Context, r Repository, key string) (v T, found bool, err error) {
	raw, found, err := r.Get(ctx, key)
	if err != nil || !found {
		return v, false, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, true, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return v, true, nil
}

// Save stores v as a JSON setting.
func Save(ctx context.Context, r Repository, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return r.Put(ctx, key, b)
}
