package logger_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/infra"
)

var Module = fx.Options(
	fx.Provide(provideLogger),
)

func provideLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := infra.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	undo := zap.ReplaceGlobals(log)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			undo()
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}
