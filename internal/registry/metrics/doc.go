// Package metrics is the optional Prometheus instrumentation for a scope
// actor. It is wired through config.MetricsConfig and has no effect on
// registry semantics: a Reporter with metrics disabled is a valid,
// inert value, and nothing in the registry or groups state machines
// branches on whether metrics are enabled beyond calling into it.
package metrics
