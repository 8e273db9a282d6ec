package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, "UPDATE products SET sync_status = 'synced'")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackFailureIsJoined(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

	boom := errors.New("boom")
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "rollback: connection reset")
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error { return nil })
	assert.ErrorContains(t, err, "commit: serialization failure")
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "begin tx")
	assert.False(t, called)
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE sales (id INTEGER PRIMARY KEY, shop TEXT)`)
	require.NoError(t, err)

	require.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO sales(shop) VALUES ('A')`)
			require.NoError(t, err)
			panic("kaboom")
		})
	})

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sales`).Scan(&n))
	assert.Zero(t, n)
}

func TestCollectRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT shop_name").
		WillReturnRows(sqlmock.NewRows([]string{"shop_name"}).AddRow("A").AddRow("B"))
	mock.ExpectQuery("SELECT shop_name").
		WillReturnRows(sqlmock.NewRows([]string{"shop_name"}))

	scan := func(r *sql.Rows) (string, error) {
		var v string
		return v, r.Scan(&v)
	}

	rows, err := db.Query("SELECT shop_name FROM shops")
	require.NoError(t, err)
	got, err := CollectRows(rows, scan)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got)

	rows, err = db.Query("SELECT shop_name FROM shops WHERE 1 = 0")
	require.NoError(t, err)
	empty, err := CollectRows(rows, scan)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCollectRows_ScanError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("x"))

	rows, err := db.Query("SELECT v")
	require.NoError(t, err)
	_, err = CollectRows(rows, func(r *sql.Rows) (int, error) { return 0, errors.New("bad row") })
	assert.ErrorContains(t, err, "bad row")
}

func TestCollectValid_SkipsMalformedRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT price").
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("1.50").AddRow("abc").AddRow("2"))

	rows, err := db.Query("SELECT price FROM products")
	require.NoError(t, err)
	got, bad, err := CollectValid(rows, func(r *sql.Rows) (string, error) {
		var v string
		if err := r.Scan(&v); err != nil {
			return "", err
		}
		if v == "abc" {
			return "", common.Malformed("row-2", "price %q", v)
		}
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.50", "2"}, got)
	require.Len(t, bad, 1)
	assert.Equal(t, "row-2", bad[0].Key)
	assert.ErrorIs(t, bad[0], common.ErrDataIntegrity)
}

func TestCollectValid_OtherErrorsStop(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("x"))

	rows, err := db.Query("SELECT v")
	require.NoError(t, err)
	_, _, err = CollectValid(rows, func(r *sql.Rows) (int, error) { return 0, errors.New("conn reset") })
	assert.ErrorContains(t, err, "conn reset")
}
