// Package token signs and verifies the bearer tokens the gateway accepts.
// The codec is stateless: a pure function of the signing secret, the claims,
// and the clock. Tokens are minted only at login; the gateway never mutates
// or re-signs an existing token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Everything that is not an expiry is collapsed into
// ErrInvalid -- callers must not learn why a forged token failed.
var (
	// ErrExpired means the token's signature was parseable but its expiry
	// has passed.
	ErrExpired = errors.New("token has expired")

	// ErrInvalid means the signature did not verify or the payload is
	// malformed.
	ErrInvalid = errors.New("token is invalid")
)

// Claims is the payload carried by every gateway token. UserID is the
// authoritative subject; Email is informational.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256-signed tokens with a fixed TTL.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a codec with the given signing secret and token lifetime.
func NewCodec(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token for the given user. The expiry is issuedAt + TTL.
func (c *Codec) Issue(userID, email string) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a raw token string. It returns the decoded
// claims, ErrExpired if the token's expiry has passed, or ErrInvalid for any
// other failure (bad signature, wrong algorithm, garbage input).
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		// Pin the algorithm so an attacker cannot downgrade to "none" or
		// swap HMAC for an asymmetric scheme.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	if claims.UserID == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
