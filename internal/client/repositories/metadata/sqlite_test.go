package metadata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newRepo(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return NewSQLiteRepository(db), db
}

func TestPutGet(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	_, found, err := r.Get(ctx, "current_shop")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Put(ctx, "current_shop", []byte("Centro")))
	require.NoError(t, r.Put(ctx, "current_shop", []byte("Praia")))

	v, found, err := r.Get(ctx, "current_shop")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Praia", string(v))
}

func TestDelete_ManyKeys(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, r.Put(ctx, k, []byte(k)))
	}

	require.NoError(t, r.Delete(ctx, "a", "c", "absent"))
	require.NoError(t, r.Delete(ctx))

	keys, err := r.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)
}

func TestDeletePrefix_EscapesWildcards(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()
	for _, k := range []string{"shop_config:A", "shop_config:B", "shopXconfig:C", "auth_token"} {
		require.NoError(t, r.Put(ctx, k, []byte("{}")))
	}

	require.NoError(t, r.DeletePrefix(ctx, "shop_config:"))

	keys, err := r.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth_token", "shopXconfig:C"}, keys)
}

func TestStringHelpers(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	v, err := String(ctx, r, "auth_token")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, SetString(ctx, r, "auth_token", "tok"))
	v, err = String(ctx, r, "auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	require.NoError(t, SetString(ctx, r, "auth_token", ""))
	_, found, err := r.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.False(t, found, "empty string removes the key")
}

func TestJSONHelpers(t *testing.T) {
	r, _ := newRepo(t)
	ctx := context.Background()

	type cursor struct {
		Shop string    `json:"shop"`
		At   time.Time `json:"at"`
	}
	want := cursor{Shop: "A", At: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	require.NoError(t, Save(ctx, r, "cursor", want))

	got, found, err := Load[cursor](ctx, r, "cursor")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)

	_, found, err = Load[[]string](ctx, r, "cached_shops")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Put(ctx, "cached_shops", []byte("not json")))
	_, found, err = Load[[]string](ctx, r, "cached_shops")
	assert.True(t, found)
	assert.ErrorContains(t, err, "decode setting cached_shops")
}

func TestClosedDB_ErrorsNameTheKey(t *testing.T) {
	r, db := newRepo(t)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, _, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, "read setting k")
	assert.ErrorContains(t, r.Put(ctx, "k", []byte("v")), "write setting k")
	assert.ErrorContains(t, r.Delete(ctx, "k"), "delete settings [k]")
	assert.ErrorContains(t, r.DeletePrefix(ctx, "k"), "delete settings k*")
	_, err = r.Keys(ctx, "k")
	assert.ErrorContains(t, err, "list settings k*")
}
