// Package transport - fx wiring.
package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/types"
)

// ModuleInput lists the module's fx dependencies. Network is shared across
// every simulated node in a process (see cmd/registryd), so it is supplied
// once with fx.Supply rather than constructed by this module.
type ModuleInput struct {
	fx.In

	Network *Network
	NodeID  types.NodeID
}

// ModuleOutput lists the module's fx-provided services.
type ModuleOutput struct {
	fx.Out

	Transport interfaces.Transport
}

// ProvideTransport joins NodeID onto Network and returns the resulting
// Memory transport.
func ProvideTransport(input ModuleInput) ModuleOutput {
	return ModuleOutput{Transport: input.Network.NewNode(input.NodeID)}
}

// Module returns the fx module providing this node's Transport.
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Transport interfaces.Transport
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Transport.Close()
		},
	})
}

// Module metadata.
const (
	Version     = "1.0.0"
	Name        = "transport"
	Description = "in-memory, location-transparent transport joining one node onto a shared Network"
)
