package mem

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevokedTokens_Memory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewRevokedTokens()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Minute))
	require.NoError(t, store.Revoke(ctx, "jti-expired", 0))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(time.Minute)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-2", time.Minute))
	assert.Len(t, store.data, 1, "expired entries are purged on write")
}

func TestRevokedTokens_Redis(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisRevokedTokens(client, "")

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Minute))
	assert.True(t, srv.Exists("revoked:jti-1"))
	assert.Equal(t, time.Minute, srv.TTL("revoked:jti-1"))

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "jti-other")
	require.NoError(t, err)
	assert.False(t, revoked)

	srv.FastForward(time.Minute)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokedTokens_RedisDown(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	srv.Close()

	_, err := NewRedisRevokedTokens(client, "zubari").IsRevoked(context.Background(), "jti")
	assert.Error(t, err)
}
