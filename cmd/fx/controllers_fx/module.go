// cmd/fx/controllers_fx/module.go
package controllers_fx

import (
	"tripforge/internal/api/controllers"

	"go.uber.org/fx"
)

var Module = fx.Provide(
	controllers.NewPlanController,
)
