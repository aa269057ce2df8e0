package mem

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRevokedTokens shares the revocation list across instances. Keys expire
// with the token so the set never outgrows the live sessions.
type RedisRevokedTokens struct {
	client *redis.Client
	prefix string
}

func NewRedisRevokedTokens(client *redis.Client, prefix string) *RedisRevokedTokens {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevokedTokens{client: client, prefix: prefix}
}

func (r *RedisRevokedTokens) key(tokenID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, tokenID)
}

func (r *RedisRevokedTokens) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (r *RedisRevokedTokens) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis lookup: %w", err)
	}
	return n > 0, nil
}
