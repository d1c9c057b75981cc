// Package eventbus - fx wiring.
package eventbus

import (
	"context"

	pkgif "github.com/dep2p/go-registry/pkg/interfaces"
	"go.uber.org/fx"
)

// Result is the fx module's output.
type Result struct {
	fx.Out

	EventBus pkgif.EventBus
}

// Module returns the fx module providing a process-wide NodeEvent bus.
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideEventBus constructs the Bus instance.
func ProvideEventBus() Result {
	return Result{
		EventBus: NewBus(),
	}
}

type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	EventBus pkgif.EventBus
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return nil
		},
		OnStop: func(_ context.Context) error {
			return nil
		},
	})
}

// Module metadata.
const (
	Version     = "1.0.0"
	Name        = "eventbus"
	Description = "in-process fan-out of cluster membership NodeEvents"
)
