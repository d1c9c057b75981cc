// Package hashring - fx wiring.
package hashring

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-registry/config"
)

// ModuleInput lists the module's fx dependencies.
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ModuleOutput lists the module's fx-provided services.
type ModuleOutput struct {
	fx.Out

	Ring *Ring
}

// ProvideRing constructs the advisory key→node hint ring.
func ProvideRing(input ModuleInput) ModuleOutput {
	return ModuleOutput{Ring: New(input.Config.Hashring)}
}

// Module returns the fx module providing the optional hashring hint.
func Module() fx.Option {
	return fx.Module("hashring", fx.Provide(ProvideRing))
}

// Module metadata.
const (
	Version     = "1.0.0"
	Name        = "hashring"
	Description = "best-effort consistent-hashing key-to-node placement hint"
)
