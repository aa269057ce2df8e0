package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"zubari/cmd/fx/account_fx"
	"zubari/cmd/fx/capability_fx"
	"zubari/cmd/fx/config_fx"
	"zubari/cmd/fx/controllers_fx"
	"zubari/cmd/fx/dashboard_fx"
	"zubari/cmd/fx/db_fx"
	"zubari/cmd/fx/entitlement_fx"
	"zubari/cmd/fx/logger_fx"
	"zubari/cmd/fx/mail_fx"
	"zubari/cmd/fx/memcache_fx"
	"zubari/cmd/fx/metrics_fx"
	"zubari/cmd/fx/payment_service_fx"
	"zubari/internal/api"
	"zubari/internal/api/controllers"
	"zubari/internal/config"
	"zubari/pkg/metrics"
	mem "zubari/pkg/memcache"
	"zubari/pkg/utils"
)

func runServer() error {
	app := fx.New(
		config_fx.Module,
		logger_fx.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		db_fx.Module,
		memcache_fx.Module,
		metrics_fx.Module,
		entitlement_fx.Module,
		account_fx.Module,
		mail_fx.Module,
		payment_service_fx.Module,
		capability_fx.Module,
		dashboard_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

type routerParams struct {
	fx.In

	Config    *config.Config
	Log       *zap.Logger
	Metrics   *metrics.Metrics
	Tokens    *utils.TokenManager
	Revoked   mem.RevokedTokenStore
	Accounts  *controllers.AccountController
	Tools     *controllers.ToolsController
	Payments  *controllers.PaymentController
	Plans     *controllers.PlansController
	Dashboard *controllers.DashboardController
}

func ProvideRouter(p routerParams) *gin.Engine {
	if p.Config.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	return api.NewRouter(api.RouterDeps{
		Log:         p.Log,
		Metrics:     p.Metrics,
		Tokens:      p.Tokens,
		Revoked:     p.Revoked,
		StaticDir:   p.Config.StaticDir,
		CORSOrigins: p.Config.CORSOrigins,
		Accounts:    p.Accounts,
		Tools:       p.Tools,
		Payments:    p.Payments,
		Plans:       p.Plans,
		Dashboard:   p.Dashboard,
	})
}

func StartServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("starting HTTP server", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", zap.Error(err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
