package memcache_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/infra"
	mem "zubari/pkg/memcache"
)

var Module = fx.Provide(provideRevokedTokenStore)

func provideRevokedTokenStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (mem.RevokedTokenStore, error) {
	if cfg.RedisURL == "" {
		log.Info("revoked tokens kept in process memory")
		return mem.NewRevokedTokens(), nil
	}

	client, err := infra.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info("revoked tokens kept in redis")
	return mem.NewRedisRevokedTokens(client, "zubari:revoked"), nil
}
