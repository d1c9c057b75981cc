package liveness

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/pkg/interfaces"
)

// ============================================================================
//                              Module input/output
// ============================================================================

// ModuleInput lists the module's fx dependencies.
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ModuleOutput lists the module's fx-provided services.
type ModuleOutput struct {
	fx.Out

	Liveness interfaces.Liveness
}

// ProvideService constructs the Liveness service from config.
func ProvideService(input ModuleInput) ModuleOutput {
	return ModuleOutput{
		Liveness: NewService(input.Config.Liveness),
	}
}

// Module returns the fx module providing a node-local Liveness service.
func Module() fx.Option {
	return fx.Module("liveness",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC       fx.Lifecycle
	Liveness interfaces.Liveness
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Liveness.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return input.Liveness.Stop(ctx)
		},
	})
}

// Module metadata.
const (
	Version     = "1.0.0"
	Name        = "liveness"
	Description = "tracks liveness of locally-hosted pids and delivers DOWN notifications to their monitors"
)
