package db_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/infra"
	"zubari/internal/repositories"
)

var Module = fx.Provide(provideStores)

type Stores struct {
	fx.Out

	Accounts  repositories.AccountRepository
	Payments  repositories.PaymentRepository
	Dashboard repositories.DashboardRepository
}

func provideStores(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (Stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("STORE_DRIVER=memory: accounts and payments are lost on restart")
		accounts := repositories.NewMemoryAccountRepository()
		payments := repositories.NewMemoryPaymentRepository()
		dashboard, err := repositories.NewMemoryDashboardRepository(accounts, payments)
		if err != nil {
			return Stores{}, err
		}
		return Stores{
			Accounts:  accounts,
			Payments:  payments,
			Dashboard: dashboard,
		}, nil
	}

	db, err := infra.OpenDatabase(cfg, log)
	if err != nil {
		return Stores{}, err
	}
	if err := infra.Migrate(db); err != nil {
		infra.CloseDatabase(db, log)
		return Stores{}, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			infra.CloseDatabase(db, log)
			return nil
		},
	})

	return Stores{
		Accounts:  repositories.NewAccountRepository(db),
		Payments:  repositories.NewPaymentRepository(db),
		Dashboard: repositories.NewDashboardRepository(db),
	}, nil
}
