package scope

import (
	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/types"
)

// dispatcher wraps a caller-supplied interfaces.EventHandler so the actor
// loop can invoke it inline without risking a panic or a bogus resolver
// result corrupting actor state. Per spec.md §4.2 a nil handler means no
// lifecycle side effects and DefaultResolver for conflicts.
type dispatcher struct {
	handler  interfaces.EventHandler
	resolver func(scope types.Scope, name types.Name, incoming, current interfaces.ConflictSide) types.Pid
}

func newDispatcher(handler interfaces.EventHandler, requireCustomResolver bool) *dispatcher {
	resolver := interfaces.DefaultResolver
	if handler != nil {
		resolver = safeResolverOf(handler)
	} else if requireCustomResolver {
		panic("scope: ConflictConfig.RequireCustomResolver is set but no EventHandler was provided")
	}
	return &dispatcher{handler: handler, resolver: resolver}
}

func safeResolverOf(handler interfaces.EventHandler) func(types.Scope, types.Name, interfaces.ConflictSide, interfaces.ConflictSide) types.Pid {
	return func(scope types.Scope, name types.Name, incoming, current interfaces.ConflictSide) (result types.Pid) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("resolver panicked, substituting none", "scope", scope, "name", name, "panic", r)
				result = types.ZeroPid
			}
		}()

		pid := handler.ResolveRegistryConflict(scope, name, incoming, current)
		if pid.Equal(incoming.Pid) || pid.Equal(current.Pid) || pid.IsZero() {
			return pid
		}
		// Anything other than incoming, current, or "neither" is an
		// invalid result; treat it the same as ZeroPid.
		return types.ZeroPid
	}
}

// onRegistered safely invokes OnProcessRegistered, if set.
func (d *dispatcher) onRegistered(scope types.Scope, name types.Name, prev, next types.Registration) {
	if d.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("OnProcessRegistered callback panicked", "scope", scope, "name", name, "panic", r)
		}
	}()
	d.handler.OnProcessRegistered(scope, name, prev, next)
}

// onUnregistered safely invokes OnProcessUnregistered, if set.
func (d *dispatcher) onUnregistered(scope types.Scope, name types.Name, pid types.Pid, meta types.Meta) {
	if d.handler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("OnProcessUnregistered callback panicked", "scope", scope, "name", name, "panic", r)
		}
	}()
	d.handler.OnProcessUnregistered(scope, name, pid, meta)
}

// resolve safely invokes the conflict resolver. Resolver absence (no
// EventHandler was supplied) and resolver failure (a panic, or a return
// value that is neither side's pid) are deliberately different outcomes:
// absence falls back to DefaultResolver, which keeps current.Pid; failure
// substitutes types.ZeroPid ("none"), which resolveConflict's default
// branch treats as evict-both rather than keep-local.
func (d *dispatcher) resolve(scope types.Scope, name types.Name, incoming, current interfaces.ConflictSide) types.Pid {
	return d.resolver(scope, name, incoming, current)
}
