package sales

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/client/migrations"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func sale(shop string, ts time.Time) *models.LocalSale {
	return &models.LocalSale{
		Shop:          shop,
		Timestamp:     ts,
		FinalPrice:    "9.90",
		PaymentMethod: "cash",
		LineItems:     `[{"barcode":"789","quantity":1,"unit_price":"9.9"}]`,
	}
}

func TestInsert_AssignsIDAndPending(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	s := sale("A", base)
	require.NoError(t, r.Insert(context.Background(), s))
	assert.NotZero(t, s.ID)
	assert.Equal(t, models.StatusPending, s.SyncStatus)

	pending, bad, err := r.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bad)
	require.Len(t, pending, 1)
	assert.Equal(t, base, pending[0].Timestamp)

	decoded, err := pending[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "789", decoded.LineItems[0].Barcode)
}

func TestInsert_DuplicateIdentity(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, sale("A", base)))

	err := r.Insert(ctx, sale("A", base.Add(300*time.Nanosecond)))
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	require.NoError(t, r.Insert(ctx, sale("B", base)))
	require.NoError(t, r.Insert(ctx, sale("A", base.Add(time.Microsecond))))
}

func TestMarkSynced_RemovesFromPending(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, sale("A", base)))
	require.NoError(t, r.Insert(ctx, sale("A", base.Add(time.Second))))

	require.NoError(t, r.MarkSynced(ctx, "A", base))

	pending, _, err := r.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, base.Add(time.Second), pending[0].Timestamp)
}

func TestHistory_NewestFirstPerShop(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Insert(ctx, sale("A", base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, r.Insert(ctx, sale("B", base.Add(time.Hour))))
	require.NoError(t, r.MarkSynced(ctx, "A", base))

	got, err := r.History(ctx, "A", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(2*time.Minute), got[0].Timestamp)
	assert.Equal(t, base.Add(time.Minute), got[1].Timestamp)

	all, err := r.History(ctx, "A", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.StatusSynced, all[2].SyncStatus)
}

func TestListPending_BadTimestampIsSetAside(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, r.Insert(ctx, sale("A", base)))
	_, err := db.Exec(`INSERT INTO sales (shop_name, timestamp, final_price, sync_status) VALUES ('A', 'yesterday', '1', 'pending')`)
	require.NoError(t, err)

	pending, bad, err := r.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, base, pending[0].Timestamp)
	require.Len(t, bad, 1)
	assert.ErrorIs(t, bad[0], common.ErrDataIntegrity)
	assert.Contains(t, bad[0].Key, "sale ")

	history, err := r.History(ctx, "A", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestFormatTimestamp_FixedWidthUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	ts := time.Date(2024, 3, 10, 9, 0, 0, 1500, loc)
	assert.Equal(t, "2024-03-10T12:00:00.000001Z", FormatTimestamp(ts))
}
