// cmd/fx/planner_fx/module.go
package planner_fx

import (
	"tripforge/internal/services"

	"go.uber.org/fx"
)

var Module = fx.Provide(
	services.NewPlannerService,
)
