// Package auth issues and verifies the signed session tokens returned by login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/bcards/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid token")

const issuer = "bcards"

// Claims is the token payload. The role flags are captured at login time.
type Claims struct {
	IsBusiness bool `json:"isBusiness"`
	IsAdmin    bool `json:"isAdmin"`
	jwt.RegisteredClaims
}

// TokenAuth signs tokens with HS256.
type TokenAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenAuth creates a TokenAuth. A zero ttl issues tokens without expiry.
func NewTokenAuth(secret string, ttl time.Duration) *TokenAuth {
	return &TokenAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for id.
func (a *TokenAuth) Issue(id models.Identity) (string, error) {
	now := a.now()
	claims := Claims{
		IsBusiness: id.IsBusiness,
		IsAdmin:    id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.ID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns the identity it carries.
func (a *TokenAuth) Parse(raw string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return models.Anonymous, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return models.Anonymous, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return models.Identity{ID: claims.Subject, IsBusiness: claims.IsBusiness, IsAdmin: claims.IsAdmin}, nil
}
