// Package interfaces - EventHandler defines the three user-implementable
// lifecycle callbacks the core invokes but never implements.
package interfaces

import "github.com/dep2p/go-registry/pkg/types"

// EventHandler groups the callbacks a caller may supply per scope. The
// handler as a whole is optional: with a nil EventHandler the lifecycle
// callbacks are skipped and conflicts go to DefaultResolver. A non-nil
// handler implements all three methods (see dispatcher in
// internal/registry/scope for the safe-invocation wrapper).
type EventHandler interface {
	// OnProcessRegistered fires after a successful register (owner-side
	// or sync-applied). prev is the zero Registration when there was no
	// prior entry under name.
	OnProcessRegistered(scope types.Scope, name types.Name, prev, next types.Registration)

	// OnProcessUnregistered fires after an entry is removed, for any
	// reason (owner unregister, DOWN, SYNC_UNREGISTER, peer purge,
	// conflict eviction).
	OnProcessUnregistered(scope types.Scope, name types.Name, pid types.Pid, meta types.Meta)

	// ResolveRegistryConflict is invoked when two nodes hold different
	// pids under the same (scope, name). incoming is the row from the
	// SYNC_REGISTER that triggered the conflict; current is this node's
	// own row. The return value must be incoming.Pid, current.Pid, or
	// the zero Pid to mean "neither" (see internal/registry/scope's
	// conflict resolution procedure for the exact handling of each
	// case). Absence of a user-supplied resolver is handled by
	// DefaultResolver, not by a nil check here.
	ResolveRegistryConflict(scope types.Scope, name types.Name, incoming, current ConflictSide) types.Pid
}

// ConflictSide is one side of a registry conflict, as handed to
// ResolveRegistryConflict.
type ConflictSide struct {
	Pid  types.Pid
	Meta types.Meta
	Time int64
}

// DefaultResolver is used when a scope is created without an EventHandler
// (resolver absence). It keeps the local pid unconditionally. A supplied
// resolver that panics or returns an invalid pid (resolver failure) is a
// distinct case that does *not* fall back to DefaultResolver — see
// dispatcher.safeResolverOf in internal/registry/scope, which substitutes
// the zero Pid ("none") instead, routing to the conflict procedure's
// evict-both branch rather than this function's keep-local one.
//
// This makes the two-node case deterministic per-node but not
// cluster-wide: each side keeps its own pid, evicts the other's, and
// rebroadcasts; the peer's mirrored resolution does the same, so unless
// one side's rebroadcast happens to win outright on a later SYNC_REGISTER
// timestamp comparison, both pids end up evicted and the name resolves to
// nothing. This is documented, observable behavior, not a bug — override
// the resolver for stronger guarantees.
func DefaultResolver(_ types.Scope, _ types.Name, _, current ConflictSide) types.Pid {
	return current.Pid
}
