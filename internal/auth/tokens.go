package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps revoked token ids in redis keyed by jti.
type RedisTokenStore struct {
	client *redis.Client
}

// NewRedisTokenStore constructs RedisTokenStore.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func revocationKey(jti string) string {
	return "auth:revoked:" + jti
}

// Revoke marks the token id revoked until the token would expire anyway.
func (s *RedisTokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	return s.client.Set(ctx, revocationKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether the token id was revoked.
func (s *RedisTokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
