package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultPrincipalTTL bounds how long a verified principal may be
// served from cache; revoked users fall off within this window.
const DefaultPrincipalTTL = 5 * time.Minute

// PrincipalCache stores verified principals in Redis keyed by a hash of
// the raw token, so repeated requests skip signature verification and
// the tenant lookup.
type PrincipalCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewPrincipalCache(client *redis.Client) *PrincipalCache {
	return &PrincipalCache{Client: client, TTL: DefaultPrincipalTTL}
}

func cacheKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return "principal:" + hex.EncodeToString(sum[:])
}

// Get returns the cached principal for a token, or nil on a miss.
func (c *PrincipalCache) Get(ctx context.Context, rawToken string) (*Principal, error) {
	if c == nil || c.Client == nil {
		return nil, nil
	}

	payload, err := c.Client.Get(ctx, cacheKey(rawToken)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get principal from Redis: %w", err)
	}

	var p Principal
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached principal: %w", err)
	}
	return &p, nil
}

// Set caches a verified principal. Cache hits skip signature
// verification, so an entry must never outlive the token it was
// verified from: the TTL is capped at the token's remaining lifetime,
// and an already-expired token is not cached at all.
func (c *PrincipalCache) Set(ctx context.Context, rawToken string, p Principal, expiresAt time.Time) error {
	if c == nil || c.Client == nil {
		return nil
	}

	ttl := c.entryTTL(expiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal principal: %w", err)
	}
	return c.Client.Set(ctx, cacheKey(rawToken), payload, ttl).Err()
}

func (c *PrincipalCache) entryTTL(expiresAt time.Time) time.Duration {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultPrincipalTTL
	}
	if !expiresAt.IsZero() {
		if remaining := time.Until(expiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}
