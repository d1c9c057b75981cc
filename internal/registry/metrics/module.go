// Package metrics - fx wiring.
package metrics

import (
	"go.uber.org/fx"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-registry/config"
)

// ModuleInput lists the module's fx dependencies.
type ModuleInput struct {
	fx.In

	Config     *config.Config
	Registerer prometheus.Registerer `optional:"true"`
}

// ModuleOutput lists the module's fx-provided services.
type ModuleOutput struct {
	fx.Out

	Reporter *Reporter
}

// ProvideReporter constructs a Reporter, registering its collectors with
// Registerer if one was supplied. Absent an explicit Registerer (the
// common case: one process can host several simulated Managers, each of
// which would otherwise collide registering identically-named collectors
// against the global default registry), it falls back to a fresh,
// private prometheus.Registry rather than prometheus.DefaultRegisterer.
func ProvideReporter(input ModuleInput) ModuleOutput {
	registerer := input.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	return ModuleOutput{Reporter: New(input.Config.Metrics, registerer)}
}

// Module returns the fx module providing the scope families' shared
// Prometheus Reporter.
func Module() fx.Option {
	return fx.Module("metrics", fx.Provide(ProvideReporter))
}

// Module metadata.
const (
	Version     = "1.0.0"
	Name        = "metrics"
	Description = "Prometheus counters and gauges for registry/group table size, conflicts and purges"
)
