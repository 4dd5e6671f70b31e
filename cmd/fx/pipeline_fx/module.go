// cmd/fx/pipeline_fx/module.go
package pipeline_fx

import (
	"tripforge/internal/services"

	"go.uber.org/fx"
)

var Module = fx.Provide(
	services.NewSanitizerService,
	services.NewValidatorService,
	services.NewDedupeService,
	services.NewScorerService,
	services.NewTierService,
	services.NewAllocatorService,
)
