package capability_fx

import (
	"context"
	"io"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/services"
)

var Module = fx.Provide(provideCapabilityProvider)

func provideCapabilityProvider(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (services.CapabilityProvider, error) {
	provider, err := services.NewCapabilityProvider(context.Background(), cfg.Capability)
	if err != nil {
		return nil, err
	}
	if closer, ok := provider.(io.Closer); ok {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})
	}

	log.Info("capability provider ready", zap.String("provider", cfg.Capability.Provider))
	return provider, nil
}
