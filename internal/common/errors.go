// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
)

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrInternal        = errors.New("internal error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Sync taxonomy.
	ErrConnectivity   = errors.New("remote store unreachable")
	ErrAuthorization  = errors.New("shop unknown or credentials rejected")
	ErrDataIntegrity  = errors.New("malformed record")
	ErrItemWrite      = errors.New("item write failed")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrCancelled      = errors.New("sync cancelled")

	ErrNoCurrentShop = errors.New("no current shop selected")
)

// IsConnectivity reports whether err means the remote side could not be
// reached at all, as opposed to the remote side rejecting a single request.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectivity) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// RecordError is one stored record that could not be decoded. Err wraps
// ErrDataIntegrity.
type RecordError struct {
	Key string
	Err error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.Key, e.Err)
}

func (e RecordError) Unwrap() error {
	return e.Err
}

// Malformed builds a RecordError for key.
func Malformed(key, format string, args ...any) RecordError {
	return RecordError{Key: key, Err: fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))}
}
