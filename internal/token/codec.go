// Package token issues and verifies the signed identity tokens exchanged with
// clients, either via the token cookie or an Authorization bearer header.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken covers bad signatures, expiry, and malformed payloads.
var ErrInvalidToken = errors.New("token: invalid or expired")

// Codec signs and verifies identity tokens with a process-wide HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewCodec constructs a Codec. An empty secret is refused so the process can
// never sign with a blank key.
func NewCodec(secret, issuer string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, issuer: issuer}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for the given subject carrying the role claim.
func (c *Codec) Issue(subjectID int64, role RoleClaim) (string, error) {
	return c.IssueWithTTL(subjectID, role, c.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime.
func (c *Codec) IssueWithTTL(subjectID int64, role RoleClaim, ttl time.Duration) (string, error) {
	if role.Name == "" {
		return "", ErrBadRoleClaim
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(subjectID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token and returns its claims.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Role.Name == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
