package services

import (
	"context"
	"fmt"
)

// Authenticator is implemented by remote stores that issue shop tokens.
type Authenticator interface {
	Login(ctx context.Context, shop, password string) (string, error)
	SetToken(token string)
	Ping(ctx context.Context) error
}

// TokenStore persists the shop token between runs.
type TokenStore interface {
	AuthToken(ctx context.Context) (string, error)
	SetAuthToken(ctx context.Context, token string) error
}

// AuthService logs a device into a shop.
type AuthService interface {
	// Login verifies the shop password remotely, keeps the token and makes
	// shop the current shop.
	Login(ctx context.Context, shop, password string) error
	// Restore hands a token saved by an earlier run to the remote client.
	Restore(ctx context.Context) (bool, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

type authService struct {
	auth   Authenticator
	tokens TokenStore
	pos    POSService
}

func NewAuthService(auth Authenticator, tokens TokenStore, pos POSService) AuthService {
	return &authService{auth: auth, tokens: tokens, pos: pos}
}

func (a *authService) Login(ctx context.Context, shop, password string) error {
	token, err := a.auth.Login(ctx, shop, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	a.auth.SetToken(token)
	if err := a.tokens.SetAuthToken(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return a.pos.SetCurrentShop(ctx, shop)
}

func (a *authService) Restore(ctx context.Context) (bool, error) {
	token, err := a.tokens.AuthToken(ctx)
	if err != nil || token == "" {
		return false, err
	}
	a.auth.SetToken(token)
	return true, nil
}

func (a *authService) Logout(ctx context.Context) error {
	a.auth.SetToken("")
	return a.tokens.SetAuthToken(ctx, "")
}

func (a *authService) Ping(ctx context.Context) error {
	return a.auth.Ping(ctx)
}
