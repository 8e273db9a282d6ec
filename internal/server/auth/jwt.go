// Package auth issues and checks the shop access tokens handed to devices on
// login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/possync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the standard registered claims plus the shop the token was
// issued for.
type Claims struct {
	jwt.RegisteredClaims
	Shop string `json:"shop"`
}

// GenerateToken signs an HS256 token for shop valid for validity.
func GenerateToken(shop string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
			Subject:   shop,
		},
		Shop: shop,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// GetShopFromToken validates tokenString and returns the shop it was issued
// for. An expired token yields common.ErrTokenExpired, anything else that
// fails validation yields common.ErrInvalidToken.
func GetShopFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Shop == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Shop, nil
}
