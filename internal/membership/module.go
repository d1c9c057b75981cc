package membership

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-registry/pkg/interfaces"
)

// ============================================================================
//                              Module input/output
// ============================================================================

// ModuleInput lists the module's fx dependencies.
type ModuleInput struct {
	fx.In

	Transport interfaces.Transport
	EventBus  interfaces.EventBus
}

// ModuleOutput lists the module's fx-provided services.
type ModuleOutput struct {
	fx.Out

	Membership *Service
}

// ProvideService constructs the Service from the transport and event bus.
func ProvideService(input ModuleInput) (ModuleOutput, error) {
	svc, err := NewService(input.Transport, input.EventBus)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Membership: svc}, nil
}

// Module returns the fx module bridging transport membership events onto
// the event bus.
func Module() fx.Option {
	return fx.Module("membership",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	Membership *Service
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Membership.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return input.Membership.Stop(ctx)
		},
	})
}

// Module metadata.
const (
	Version     = "1.0.0"
	Name        = "membership"
	Description = "republishes transport node-up/node-down events onto the event bus"
)
