// Package token issues the bearer tokens handed out after a successful
// sign-in. Verification lives in the HTTP middleware, not here.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightpath/accounts-api/internal/core/domain"
)

// Issuer signs bounded-lifetime HS256 JWTs carrying account identity
// claims: sub (user id), username and email.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for user and returns it together with its
// lifetime in whole seconds.
func (i *Issuer) Issue(user *domain.User) (string, int64, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"email":    user.Email,
		"iat":      now.Unix(),
		"exp":      now.Add(i.ttl).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(i.ttl.Seconds()), nil
}
