package infra

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"zubari/internal/config"
)

// NewLogger builds the process logger: JSON for LOG_FORMAT=json, a console
// encoder otherwise.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.LogFormat == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("service", "zubari")), nil
}
