// Package token issues and verifies signed time-limited bearer credentials.
package token

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	"github.com/agora-net/agora/internal/ident"
)

// Lifetime is a validity window of an issued credential.
const Lifetime = 12 * time.Hour

// ErrExpired returned when a credential is correctly signed but past its expiry.
var ErrExpired = errors.New("token expired")

// ErrInvalid returned when a credential is malformed or its signature does not match.
var ErrInvalid = errors.New("token invalid")

// Claims is an identity embedded into a credential.
type Claims struct {
	ID    ident.ID `json:"id"`
	Email string   `json:"email"`

	jwt.RegisteredClaims
}

// Issuer issues and verifies credentials with a server-held secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// New creates a new Issuer.
func New(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue produces a signed credential embedding the given identity.
func (i *Issuer) Issue(id ident.ID, email string) (string, error) {
	now := i.now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:    id,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(Lifetime)),
		},
	})

	s, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return s, nil
}

// Verify checks a credential and returns the embedded identity.
// There is no revocation list, a credential stays valid until natural expiry.
func (i *Issuer) Verify(s string) (*Claims, error) {
	var c Claims

	if _, err := jwt.ParseWithClaims(s, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return i.secret, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}

		return nil, ErrInvalid
	}

	return &c, nil
}
