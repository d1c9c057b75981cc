// Package registry is the public API of the cluster-wide Process Registry
// and Process Group manager: a Manager hosts one or more named scopes,
// each an independent Registry Scope Actor + Groups Scope Actor pair, and
// exposes the register/unregister/lookup/count/join/get_members operations
// against them.
//
// Manager follows dep2p-go-dep2p's Node/New/Start/Stop/Close shape: a
// facade struct wrapping an *fx.App, built from functional options, with
// every injectable collaborator (transport, event bus, liveness, metrics,
// hashring) wired through fx modules rather than constructed ad hoc.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/internal/membership"
	"github.com/dep2p/go-registry/internal/registry/hashring"
	"github.com/dep2p/go-registry/internal/registry/metrics"
	"github.com/dep2p/go-registry/internal/registry/scope"
	"github.com/dep2p/go-registry/internal/transport"
	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/lib/log"
	"github.com/dep2p/go-registry/pkg/types"
)

var logger = log.Logger("registry")

// managerState tracks where a Manager is in its Start/Stop lifecycle,
// mirroring the teacher's NodeState machine, trimmed to the states this
// module actually reaches (no ready-level machinery: that is specific to
// dep2p's network-address readiness, not applicable here).
type managerState int

const (
	stateNew managerState = iota
	stateStarted
	stateStopped
	stateClosed
)

// scopePair bundles one scope's Registry and Groups actors: they are
// always created, started, and stopped together.
type scopePair struct {
	registry *scope.RegistryScope
	groups   *scope.GroupsScope
}

// Manager is the top-level handle on one node's participation in the
// registry/groups mesh. Create one with New, bring it up with Start, then
// create whichever scopes this node needs with NewScope.
type Manager struct {
	mc  *managerConfig
	app *fx.App

	// Injected by fx via injectManagerComponents when New builds the app.
	transport  interfaces.Transport
	bus        interfaces.EventBus
	liveness   interfaces.Liveness
	membership *membership.Service
	reporter   *metrics.Reporter
	ring       *hashring.Ring

	mu     sync.RWMutex
	state  managerState
	scopes map[types.Scope]*scopePair
}

// New builds a Manager and its dependency graph but does not start it;
// call Start before using any scope operation.
func New(opts ...Option) (*Manager, error) {
	mc := defaultManagerConfig()
	for _, opt := range opts {
		opt(mc)
	}
	if mc.network == nil {
		mc.network = transport.NewNetwork()
	}
	if err := mc.config.Validate(); err != nil {
		return nil, fmt.Errorf("registry: invalid config: %w", err)
	}

	mgr := &Manager{
		mc:     mc,
		scopes: make(map[types.Scope]*scopePair),
	}
	mgr.app = buildFxApp(mc, mgr)

	return mgr, nil
}

// Start brings up every injected component (transport, liveness, event
// bus, membership bridge) and then creates DefaultScope plus every scope
// named in ScopeConfig.Scopes.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateNew {
		m.mu.Unlock()
		return fmt.Errorf("registry: Start called in state %d, want new", m.state)
	}
	m.mu.Unlock()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := m.app.Start(startCtx); err != nil {
		return fmt.Errorf("registry: fx start failed: %w", err)
	}

	m.mu.Lock()
	m.state = stateStarted
	m.mu.Unlock()

	if err := m.newScopeLocked(types.DefaultScope); err != nil {
		return err
	}
	for _, name := range m.mc.config.Scope.Scopes {
		if err := m.newScopeLocked(types.Scope(name)); err != nil {
			return err
		}
	}

	logger.Info("registry manager started", "node", m.transport.LocalNode().ShortString(), "scopes", len(m.scopes))
	return nil
}

// Stop stops every scope actor and tears down the fx graph. The Manager
// may not be restarted after Stop; use Close for the final, best-effort
// teardown a deferred caller would run regardless of Start's outcome.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.state != stateStarted {
		m.mu.Unlock()
		return nil
	}
	m.state = stateStopped
	pairs := make([]*scopePair, 0, len(m.scopes))
	for _, p := range m.scopes {
		pairs = append(pairs, p)
	}
	m.mu.Unlock()

	for _, p := range pairs {
		if err := p.registry.Stop(ctx); err != nil {
			logger.Warn("registry scope stop failed", "error", err)
		}
		if err := p.groups.Stop(ctx); err != nil {
			logger.Warn("groups scope stop failed", "error", err)
		}
	}

	return m.app.Stop(ctx)
}

// Close performs a final, idempotent teardown. Safe to defer unconditionally
// after New succeeds, even if Start was never called or already failed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.state == stateClosed {
		m.mu.Unlock()
		return nil
	}
	wasStarted := m.state == stateStarted
	m.state = stateClosed
	m.mu.Unlock()

	if wasStarted {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return m.Stop(ctx)
	}
	return nil
}

// LocalNode returns the NodeID this Manager identifies itself as on the
// transport/mesh.
func (m *Manager) LocalNode() types.NodeID {
	return m.transport.LocalNode()
}

// ============================================================================
//                              Scope lifecycle
// ============================================================================

// NewScope creates and starts a new, empty scope. It returns
// types.ErrScopeExists if name was already created.
func (m *Manager) NewScope(name types.Scope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newScopeLocked(name)
}

func (m *Manager) newScopeLocked(name types.Scope) error {
	if _, exists := m.scopes[name]; exists {
		return types.ErrScopeExists
	}

	rs := scope.NewRegistryScope(name, m.transport, m.bus, m.liveness, m.mc.handler, m.reporter,
		m.mc.config.Discovery, m.mc.config.Peers, m.mc.config.Conflict)
	gs := scope.NewGroupsScope(name, m.transport, m.bus, m.liveness, m.reporter,
		m.mc.config.Discovery, m.mc.config.Peers, m.mc.config.Groups)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rs.Start(ctx); err != nil {
		return fmt.Errorf("registry: starting registry scope %q: %w", name, err)
	}
	if err := gs.Start(ctx); err != nil {
		_ = rs.Stop(ctx)
		return fmt.Errorf("registry: starting groups scope %q: %w", name, err)
	}

	if m.ring != nil {
		m.ring.AddNode(m.transport.LocalNode())
	}
	m.scopes[name] = &scopePair{registry: rs, groups: gs}
	return nil
}

// Scopes returns every scope name currently created on this Manager.
func (m *Manager) Scopes() []types.Scope {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Scope, 0, len(m.scopes))
	for s := range m.scopes {
		out = append(out, s)
	}
	return out
}

// scopeOrPanic resolves name to its scope pair, panicking with
// types.ErrInvalidScope if it was never created with NewScope, per
// spec.md §6's "invalid_scope is a fatal/programming error" rule.
func (m *Manager) scopeOrPanic(name types.Scope) *scopePair {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.scopes[name]
	if !ok {
		panic(fmt.Sprintf("%v: %q", types.ErrInvalidScope, name))
	}
	return p
}

// ============================================================================
//                              Registry operations
// ============================================================================

// Register registers pid under name in scope, per spec.md §4.3/§6.
func (m *Manager) Register(ctx context.Context, scopeName types.Scope, name types.Name, pid types.Pid, meta types.Meta) (types.Registration, int64, error) {
	return m.scopeOrPanic(scopeName).registry.Register(ctx, name, pid, meta)
}

// RegisterDefault is the default-scope convenience overload of Register.
func (m *Manager) RegisterDefault(ctx context.Context, name types.Name, pid types.Pid, meta types.Meta) (types.Registration, int64, error) {
	return m.Register(ctx, types.DefaultScope, name, pid, meta)
}

// Unregister removes name from scope, per spec.md §4.3/§6: the pid to
// route the removal to is resolved by a local lookup first, not supplied
// by the caller. It returns types.ErrUndefined if nothing is currently
// registered under name, and types.ErrRaceCondition if a different pid
// claims the name by the time the removal reaches its owner.
func (m *Manager) Unregister(ctx context.Context, scopeName types.Scope, name types.Name) error {
	rs := m.scopeOrPanic(scopeName).registry
	reg, ok := rs.Lookup(name)
	if !ok {
		return types.ErrUndefined
	}
	return rs.Unregister(ctx, name, reg.Pid)
}

// UnregisterDefault is the default-scope convenience overload of Unregister.
func (m *Manager) UnregisterDefault(ctx context.Context, name types.Name) error {
	return m.Unregister(ctx, types.DefaultScope, name)
}

// Lookup resolves name in scope, reading directly against the local table
// without going through the scope actor's mailbox (spec.md §5).
func (m *Manager) Lookup(scopeName types.Scope, name types.Name) (types.Registration, bool) {
	return m.scopeOrPanic(scopeName).registry.Lookup(name)
}

// LookupDefault is the default-scope convenience overload of Lookup.
func (m *Manager) LookupDefault(name types.Name) (types.Registration, bool) {
	return m.Lookup(types.DefaultScope, name)
}

// Count returns the number of registered names in scope, optionally
// restricted to names owned by node.
func (m *Manager) Count(scopeName types.Scope, node *types.NodeID) int {
	return m.scopeOrPanic(scopeName).registry.Count(node)
}

// ============================================================================
//                              Groups operations
// ============================================================================

// Join adds pid to groupName in scope, per spec.md §4.4/§6.
func (m *Manager) Join(ctx context.Context, scopeName types.Scope, groupName types.GroupName, pid types.Pid, meta types.Meta) (int64, error) {
	return m.scopeOrPanic(scopeName).groups.Join(ctx, groupName, pid, meta)
}

// JoinDefault is the default-scope convenience overload of Join.
func (m *Manager) JoinDefault(ctx context.Context, groupName types.GroupName, pid types.Pid, meta types.Meta) (int64, error) {
	return m.Join(ctx, types.DefaultScope, groupName, pid, meta)
}

// GetMembers returns groupName's current membership in scope.
func (m *Manager) GetMembers(scopeName types.Scope, groupName types.GroupName) []types.Member {
	return m.scopeOrPanic(scopeName).groups.GetMembers(groupName)
}

// GetMembersDefault is the default-scope convenience overload of GetMembers.
func (m *Manager) GetMembersDefault(groupName types.GroupName) []types.Member {
	return m.GetMembers(types.DefaultScope, groupName)
}

// GroupCount returns the number of distinct group names in scope,
// optionally restricted to groups owned by node.
func (m *Manager) GroupCount(scopeName types.Scope, node *types.NodeID) int {
	return m.scopeOrPanic(scopeName).groups.Count(node)
}

// ============================================================================
//                              Diagnostics (SPEC_FULL.md §12)
// ============================================================================

// Dump returns a read-only snapshot of every registry entry in scope.
func (m *Manager) Dump(scopeName types.Scope) []types.RegistryEntry {
	return m.scopeOrPanic(scopeName).registry.Dump()
}

// DumpGroups returns a read-only snapshot of every group entry in scope.
func (m *Manager) DumpGroups(scopeName types.Scope) []types.GroupEntry {
	return m.scopeOrPanic(scopeName).groups.Dump()
}

// Monitors reports how many local registry rows in scope currently share
// pid's monitor, surfacing invariant I3 for tests/operators.
func (m *Manager) Monitors(scopeName types.Scope, pid types.Pid) int {
	return m.scopeOrPanic(scopeName).registry.Monitors(pid)
}

// GroupMonitors reports how many local group rows in scope currently share
// pid's monitor.
func (m *Manager) GroupMonitors(scopeName types.Scope, pid types.Pid) int {
	return m.scopeOrPanic(scopeName).groups.Monitors(pid)
}

// Hint returns the node the optional hashring thinks is likely to own
// (scope, name). It never gates correctness — Lookup/Register's owner
// resolution is authoritative regardless of what Hint returns.
func (m *Manager) Hint(scopeName types.Scope, name types.Name) (types.NodeID, error) {
	return m.ring.Hint(scopeName, name)
}

// ============================================================================
//                              Process identity helpers
// ============================================================================

// Spawn registers a fresh local Pid with the Liveness service and returns
// it, for callers simulating a worker process rather than bridging a real
// one (see internal/core/liveness.Service.Register).
func (m *Manager) Spawn() types.Pid {
	pid := types.NewPid(m.transport.LocalNode())
	m.liveness.Register(pid)
	return pid
}

// Kill marks pid dead, notifying every monitor with DownNormal. Used by
// callers simulating a worker process exiting.
func (m *Manager) Kill(pid types.Pid) {
	m.liveness.Kill(pid, types.DownNormal, nil)
}

// Config returns the configuration tree this Manager was built with.
func (m *Manager) Config() *config.Config {
	return m.mc.config
}
