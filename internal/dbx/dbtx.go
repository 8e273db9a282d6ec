// Package dbx holds the database/sql glue shared by the sqlite cache and the
// Postgres catalog.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/common"
)

// DBTX is what repositories need. *sql.DB, *sql.Tx and *sqlx.DB satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// WithTx runs fn inside one transaction. fn's error rolls back and is
// returned joined with any rollback failure; a panic rolls back and is
// re-raised.
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		finished = true
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	finished = true
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CollectRows scans every row and closes rows. No rows gives an empty,
// non-nil slice.
func CollectRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CollectValid is CollectRows for tables that may hold undecodable rows.
// A scan returning a common.RecordError drops that row into bad and moves
// on; any other error ends the walk.
func CollectValid[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) (out []T, bad []common.RecordError, err error) {
	defer rows.Close()

	out = make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		var rec common.RecordError
		switch {
		case errors.As(err, &rec):
			bad = append(bad, rec)
		case err != nil:
			return nil, nil, err
		default:
			out = append(out, v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, bad, nil
}
