package controllers_fx

import (
	"go.uber.org/fx"
	"zubari/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(controllers.NewToolsController),
	fx.Provide(controllers.NewPaymentController),
	fx.Provide(controllers.NewPlansController),
	fx.Provide(controllers.NewDashboardController))
