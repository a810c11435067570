// internal/pkg/auth/revocation.go
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore records revoked token IDs in Redis until their natural
// expiry. Entries survive process restarts, unlike an in-memory set.
type RevocationStore struct {
	redisClient *redis.Client
}

// NewRevocationStore creates a new revocation store
func NewRevocationStore(redisClient *redis.Client) *RevocationStore {
	return &RevocationStore{
		redisClient: redisClient,
	}
}

func revocationKey(tokenID string) string {
	return fmt.Sprintf("auth:revoked:%s", tokenID)
}

// Revoke marks a token ID as revoked for the given TTL. The TTL should be
// the token's remaining lifetime; after that the token is expired anyway.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.redisClient.Set(ctx, revocationKey(tokenID), "1", ttl).Err()
}

// IsRevoked reports whether a token ID has been revoked. On a Redis outage
// the token is treated as valid so authentication does not hard-fail.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) bool {
	count, err := s.redisClient.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		return false
	}
	return count > 0
}
