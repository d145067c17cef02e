package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var parseJWT = func(tokenStr string, keyFunc jwt.Keyfunc) (*jwt.Token, error) {
	return jwt.Parse(tokenStr, keyFunc)
}

var (
	ErrMissingToken  = errors.New("missing token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// VerifyToken validates an HMAC-signed JWT and returns its claims.
func VerifyToken(tokenStr, secret string) (jwt.MapClaims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	token, err := parseJWT(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// GetUserIDFromClaims reads the user id from the "id" claim, falling back to "sub".
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	raw, ok := claims["id"]
	if !ok {
		raw, ok = claims["sub"]
	}
	if !ok {
		return "", fmt.Errorf("%w: missing id claim", ErrInvalidClaims)
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("%w: empty id claim", ErrInvalidClaims)
		}
		return v, nil
	case float64:
		// JWT numbers get decoded as float64
		return fmt.Sprintf("%d", int64(v)), nil
	default:
		return "", fmt.Errorf("%w: invalid id claim type", ErrInvalidClaims)
	}
}

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier struct {
	Secret string
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{Secret: secret}
}

func (v *TokenVerifier) Verify(token string) (string, error) {
	claims, err := VerifyToken(token, v.Secret)
	if err != nil {
		return "", err
	}
	return GetUserIDFromClaims(claims)
}
