// Package interfaces - Liveness defines the per-node process liveness
// service the registry's state machines depend on.
package interfaces

import (
	"context"

	"github.com/dep2p/go-registry/pkg/types"
)

// Liveness tracks the life/death of processes and remote actor handles
// hosted or observed by the local node, and delivers a DownEvent to every
// monitor exactly once per death. A language with native cluster-wide pid
// identity and remote monitoring does not need this collaborator; this
// module introduces it because Go does not have one built in (see
// spec design note on process identity).
//
// Only the owning node of a Pid can observe its liveness: Monitor on a
// non-local Pid is expected to be backed by the transport instead (see
// Transport.MonitorActor for the scope-actor case), and a Liveness
// implementation may legitimately return ErrProcessNotFound for a pid it
// never saw created locally.
type Liveness interface {
	// IsAlive reports whether pid is currently alive. Must be answerable
	// without blocking: the registry state machine calls it inline.
	IsAlive(pid types.Pid) bool

	// Monitor installs a monitor for pid and returns an opaque ref together
	// with the channel pid's DownEvent will be delivered on. Each call
	// gets its own channel and its own ref, so independent callers (e.g.
	// a registry and a groups actor both watching the same pid) never
	// compete for each other's notification — monitor coalescing
	// (invariant I3) is the caller's responsibility: a caller that wants
	// one shared monitor per (pid, scope, state-machine kind) calls
	// Monitor once and fans the resulting channel out itself.
	Monitor(pid types.Pid) (ref any, down <-chan types.DownEvent, err error)

	// Demonitor releases ref. When flush is set, any DOWN notification
	// already queued on ref's channel is discarded so a caller that is
	// about to forget about the pid never observes a stale DOWN.
	Demonitor(ref any, flush bool) error

	// Kill marks pid as dead, synthesizing a DownEvent with the given
	// reason for every current monitor of it. Used by conflict
	// resolution to evict a losing local pid.
	Kill(pid types.Pid, reason types.DownReason, resolveRef *types.ResolveKillInfo)

	// Register tells the Liveness implementation that pid now exists and
	// is alive on this node. Scope actors never register pids themselves
	// (that is the caller's responsibility, e.g. a worker announcing
	// itself) but simulated/test harnesses need a way to spawn one.
	Register(pid types.Pid)

	// Start begins delivering DOWN notifications.
	Start(ctx context.Context) error

	// Stop releases all monitors and stops delivering notifications.
	Stop(ctx context.Context) error
}
