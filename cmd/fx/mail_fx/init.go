package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"zubari/internal/config"
	"zubari/internal/services"
)

var Module = fx.Provide(provideMailService)

func provideMailService(cfg *config.Config, log *zap.Logger) services.IMailService {
	if cfg.SMTP.Host == "" {
		log.Info("SMTP_HOST not set: activation mails disabled")
	}
	return services.NewMailService(cfg.SMTP)
}
