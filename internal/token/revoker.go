package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "sweepdesk:revoked:"

// Revoker tracks tokens invalidated before their natural expiry (logout).
// Entries live only until the token would have expired anyway.
type Revoker struct {
	client *redis.Client
}

// NewRevoker returns a redis-backed Revoker.
func NewRevoker(client *redis.Client) *Revoker {
	return &Revoker{client: client}
}

func revokedKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}

// Revoke marks the token revoked until the given instant.
func (r *Revoker) Revoke(ctx context.Context, raw string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKey(raw), "1", ttl).Err()
}

// IsRevoked reports whether the token has been revoked.
func (r *Revoker) IsRevoked(ctx context.Context, raw string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(raw)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
