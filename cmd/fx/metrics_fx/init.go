package metrics_fx

import (
	"go.uber.org/fx"
	"zubari/pkg/metrics"
)

var Module = fx.Provide(metrics.New)
