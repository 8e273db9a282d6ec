// Package shops provides the PostgreSQL repository of the tenant directory.
package shops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/dmitrijs2005/possync/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a shop. A shop with the same name yields
// common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, rec *Record) error {
	cfg := rec.Config
	if cfg == nil {
		cfg = map[string]string{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	query :=
		`INSERT INTO shops (name, password_hash, config)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, rec.Name, rec.PasswordHash, raw); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*Record, error) {
	query :=
		`SELECT name, password_hash, config FROM shops
		 WHERE name = $1
		 `

	rec := &Record{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, name).Scan(&rec.Name, &rec.PasswordHash, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Config); err != nil {
			return nil, fmt.Errorf("%w: shop %q config: %v", common.ErrDataIntegrity, name, err)
		}
	}
	return rec, nil
}

func (r *PostgresRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM shops ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return dbx.CollectRows(rows, func(rows *sql.Rows) (string, error) {
		var name string
		err := rows.Scan(&name)
		return name, err
	})
}
