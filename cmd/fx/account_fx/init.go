package account_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/repositories"
	"zubari/internal/services"
	mem "zubari/pkg/memcache"
	"zubari/pkg/utils"
)

var Module = fx.Provide(
	provideTokenManager, provideAccountService)

func provideTokenManager(cfg *config.Config) (*utils.TokenManager, error) {
	return utils.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
}

func provideAccountService(
	cfg *config.Config,
	accountRepo repositories.AccountRepository,
	tokens *utils.TokenManager,
	revoked mem.RevokedTokenStore,
	log *zap.Logger,
) services.AccountServiceInterface {
	return services.NewAccountService(accountRepo, tokens, revoked, log, cfg.StoreTimeout, cfg.AdminEmails)
}
