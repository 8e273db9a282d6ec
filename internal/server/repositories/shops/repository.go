package shops

import (
	"context"
)

// Record is a stored shop with its password hash.
type Record struct {
	Name         string
	PasswordHash string
	Config       map[string]string
}

type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, name string) (*Record, error)
	ListNames(ctx context.Context) ([]string, error)
}
