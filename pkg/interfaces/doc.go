// Package interfaces defines the registry's public component contracts:
// the collaborators the core (internal/registry) depends on but does not
// implement, plus the callbacks a caller may implement to observe and
// influence it.
//
//   - transport.go - inter-node messaging (internal/transport implements it)
//   - liveness.go   - per-node process liveness (internal/core/liveness implements it)
//   - callbacks.go  - EventHandler, the three user-visible lifecycle hooks
//   - eventbus.go   - NodeEvent pub/sub (internal/core/eventbus implements it)
//
// # Design principles
//
// This package holds interfaces only; concrete value types live in
// pkg/types, wire messages live in pkg/types/wire.go. Dependency flows one
// way: internal/* depends on pkg/interfaces and pkg/types, never the
// reverse.
package interfaces
