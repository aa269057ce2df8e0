package config_fx

import (
	"go.uber.org/fx"
	"zubari/internal/config"
)

var Module = fx.Provide(config.Load)
