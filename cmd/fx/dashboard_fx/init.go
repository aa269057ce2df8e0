package dashboard_fx

import (
	"go.uber.org/fx"
	"zubari/internal/config"
	"zubari/internal/repositories"
	"zubari/internal/services"
)

var Module = fx.Provide(
	provideDashboardService,
)

func provideDashboardService(cfg *config.Config, dashboardRepo repositories.DashboardRepository) services.DashboardService {
	return services.NewDashboardService(dashboardRepo, cfg.Payment.Currency, cfg.StoreTimeout)
}
