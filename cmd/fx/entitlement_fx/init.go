package entitlement_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/repositories"
	"zubari/internal/services"
	"zubari/pkg/metrics"
)

var Module = fx.Provide(provideEntitlementService)

func provideEntitlementService(
	cfg *config.Config,
	accounts repositories.AccountRepository,
	m *metrics.Metrics,
	log *zap.Logger,
) services.EntitlementService {
	return services.NewEntitlementService(accounts, cfg.FreeQuota,
		services.WithStoreTimeout(cfg.StoreTimeout),
		services.WithMetrics(m),
		services.WithLogger(log.Named("entitlement")),
	)
}
