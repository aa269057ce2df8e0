package payment_service_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/repositories"
	"zubari/internal/services"
	"zubari/pkg/metrics"
)

var Module = fx.Provide(
	providePaymentProvider, providePaymentService, providePlanService)

func providePlanService(cfg *config.Config) services.PlanServiceInterface {
	return services.NewPlanService(cfg.Payment)
}

func providePaymentProvider(cfg *config.Config, log *zap.Logger) (services.PaymentProvider, error) {
	return services.NewPaymentProvider(cfg.Payment, log)
}

type paymentParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Payments  repositories.PaymentRepository
	Accounts  repositories.AccountRepository
	Gate      services.EntitlementService
	Provider  services.PaymentProvider
	Mailer    services.IMailService
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func providePaymentService(p paymentParams) services.PaymentService {
	svc := services.NewPaymentService(p.Config.Payment, services.PaymentDeps{
		Payments: p.Payments,
		Accounts: p.Accounts,
		Gate:     p.Gate,
		Provider: p.Provider,
		Mailer:   p.Mailer,
		Metrics:  p.Metrics,
		Log:      p.Log.Named("payments"),
		Timeout:  p.Config.StoreTimeout,
	})

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return svc.Close(ctx)
		},
	})
	return svc
}
