package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertLocal_ModifiedMergesPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyRemote(ctx, remoteProduct("p1", "789", t0, map[string]string{"B": "3.00"}), "A")
	require.NoError(t, err)

	edit := remoteProduct("p1", "789", time.Time{}, map[string]string{"A": "12.50"})
	got, err := s.UpsertLocal(ctx, edit, "A", models.StatusModified)
	require.NoError(t, err)

	assert.Equal(t, models.StatusModified, got.SyncStatus)
	assert.True(t, got.Prices["A"].Equal(dec("12.5")))
	assert.True(t, got.Prices["B"].Equal(dec("3")))
	assert.True(t, got.Price.Equal(dec("12.5")))
	assert.Equal(t, t0, got.LastUpdated)
	assert.Equal(t, int64(2), got.Revision)
}

func TestUpsertLocal_SyncedReplacesPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertLocal(ctx, remoteProduct("p1", "789", t0, map[string]string{"A": "1", "B": "2"}), "A", models.StatusSynced)
	require.NoError(t, err)
	got, err := s.UpsertLocal(ctx, remoteProduct("p1", "789", t0.Add(time.Second), map[string]string{"B": "2"}), "A", models.StatusSynced)
	require.NoError(t, err)

	assert.Nil(t, got.Price)
	assert.NotContains(t, got.Prices, "A")
}

func TestUpsertLocal_RequiresID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpsertLocal(context.Background(), models.Product{}, "A", models.StatusModified)
	require.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestApplyRemote_Rules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	applied, err := s.ApplyRemote(ctx, remoteProduct("p1", "789", t0, map[string]string{"A": "1"}), "A")
	require.NoError(t, err)
	assert.True(t, applied, "new row")

	applied, err = s.ApplyRemote(ctx, remoteProduct("p1", "789", t0, map[string]string{"A": "2"}), "A")
	require.NoError(t, err)
	assert.False(t, applied, "same last_updated")

	applied, err = s.ApplyRemote(ctx, remoteProduct("p1", "789", t0.Add(time.Second), map[string]string{"A": "2"}), "A")
	require.NoError(t, err)
	assert.True(t, applied, "newer remote over synced row")

	_, err = s.UpsertLocal(ctx, remoteProduct("p1", "789", time.Time{}, map[string]string{"A": "9"}), "A", models.StatusModified)
	require.NoError(t, err)

	applied, err = s.ApplyRemote(ctx, remoteProduct("p1", "789", t0.Add(time.Hour), map[string]string{"A": "3"}), "A")
	require.NoError(t, err)
	assert.False(t, applied, "modified row is protected")

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(dec("9")))
	assert.Equal(t, models.StatusModified, got.SyncStatus)
}

func TestMarkProductSynced_RevisionGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertLocal(ctx, remoteProduct("p1", "789", time.Time{}, map[string]string{"A": "1"}), "A", models.StatusModified)
	require.NoError(t, err)
	_, err = s.UpsertLocal(ctx, remoteProduct("p1", "789", time.Time{}, map[string]string{"A": "2"}), "A", models.StatusModified)
	require.NoError(t, err)

	ok, err := s.MarkProductSynced(ctx, "p1", first.Revision, "p1", t0)
	require.NoError(t, err)
	assert.False(t, ok, "edited after upload read")

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusModified, got.SyncStatus)

	ok, err = s.MarkProductSynced(ctx, "p1", got.Revision, "", t0)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
	assert.Equal(t, t0, got.LastUpdated)
}

func TestMarkProductSynced_Rekeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	local, err := s.UpsertLocal(ctx, remoteProduct("local-1", "789", time.Time{}, map[string]string{"A": "1"}), "A", models.StatusModified)
	require.NoError(t, err)
	_, err = s.ApplyRemote(ctx, remoteProduct("srv-1", "789", t0.Add(-time.Hour), nil), "A")
	require.NoError(t, err)

	ok, err := s.MarkProductSynced(ctx, "local-1", local.Revision, "srv-1", t0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.GetByID(ctx, "local-1")
	require.ErrorIs(t, err, common.ErrNotFound)
	got, err := s.GetByID(ctx, "srv-1")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(dec("1")))
}

func TestDeleteSynced_KeepsModified(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyRemote(ctx, remoteProduct("gone", "1", t0, nil), "A")
	require.NoError(t, err)
	_, err = s.UpsertLocal(ctx, remoteProduct("fresh", "2", time.Time{}, nil), "A", models.StatusModified)
	require.NoError(t, err)

	n, err := s.DeleteSynced(ctx, []string{"gone", "fresh", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, _, err := s.ListAllLocal(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fresh", all[0].ID)
}

func TestClearShopPrice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyRemote(ctx, remoteProduct("p1", "1", t0, map[string]string{"A": "1", "B": "2"}), "A")
	require.NoError(t, err)

	cleared, err := s.ClearShopPrice(ctx, "p1", "A")
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = s.ClearShopPrice(ctx, "p1", "A")
	require.NoError(t, err)
	assert.False(t, cleared)

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, got.Price)
	assert.Contains(t, got.Prices, "B")
}

func TestResolvePrices_SwitchShop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyRemote(ctx, remoteProduct("p1", "1", t0, map[string]string{"A": "1", "B": "2"}), "A")
	require.NoError(t, err)
	_, err = s.ApplyRemote(ctx, remoteProduct("p2", "2", t0, map[string]string{"A": "5"}), "A")
	require.NoError(t, err)

	require.NoError(t, s.ResolvePrices(ctx, "B"))

	p1, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p1.Price.Equal(dec("2")))
	p2, err := s.GetByID(ctx, "p2")
	require.NoError(t, err)
	assert.Nil(t, p2.Price)
}

func TestSearch_AccentInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := remoteProduct("p1", "789", t0, nil)
	p.Flavor = "Maçã Verde"
	_, err := s.ApplyRemote(ctx, p, "A")
	require.NoError(t, err)

	got, err := s.Search(ctx, "MACA", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.Search(ctx, "%", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpsertLocal_ConcurrentPriceEditsAreNotLost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.ApplyRemote(ctx, remoteProduct("p1", "1", t0, nil), "A")
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			shop := fmt.Sprintf("S%02d", i)
			p := remoteProduct("p1", "1", time.Time{}, map[string]string{shop: "1"})
			_, err := s.UpsertLocal(ctx, p, shop, models.StatusModified)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, got.Prices, n)
	assert.Equal(t, int64(n+1), got.Revision)
	for _, v := range got.Prices {
		assert.True(t, v.Equal(decimal.NewFromInt(1)))
	}
}
