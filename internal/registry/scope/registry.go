package scope

import (
	"context"
	"fmt"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/internal/registry/metrics"
	"github.com/dep2p/go-registry/internal/registry/table"
	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/types"
)

// RegistryScope is the Registry Scope Actor (RSA) for one scope: the
// name→pid state machine described in spec.md §4.3, built on top of the
// shared discovery/peer/broadcast actor (mesh.go).
type RegistryScope struct {
	a *actor
	m *registryMachine
}

// NewRegistryScope creates a RegistryScope. Call Start before it accepts
// traffic.
func NewRegistryScope(
	scopeName types.Scope,
	transport interfaces.Transport,
	bus interfaces.EventBus,
	liveness interfaces.Liveness,
	handler interfaces.EventHandler,
	reporter *metrics.Reporter,
	discoveryCfg config.DiscoveryConfig,
	peersCfg config.PeersConfig,
	conflictCfg config.ConflictConfig,
) *RegistryScope {
	a := newActor(scopeName, kindRegistry, transport, bus, liveness, peersCfg.SnapshotCacheSize, discoveryCfg.ReannounceInterval.Duration())

	m := &registryMachine{
		scope:      scopeName,
		table:      table.NewRegistryTable(),
		liveness:   liveness,
		dispatcher: newDispatcher(handler, conflictCfg.RequireCustomResolver),
		metrics:    reporter,
		actor:      a,
	}
	a.machine = m

	return &RegistryScope{a: a, m: m}
}

// Start brings up discovery and begins processing messages.
func (s *RegistryScope) Start(ctx context.Context) error { return s.a.start(ctx) }

// Stop halts the scope actor.
func (s *RegistryScope) Stop(ctx context.Context) error { return s.a.stop(ctx) }

// Scope returns the scope name this actor serves.
func (s *RegistryScope) Scope() types.Scope { return s.m.scope }

// Register implements the register operation of spec.md §4.3. If pid is
// owned by this node, the registration happens inline on this actor's
// mailbox; otherwise the call is forwarded to pid's owner and, on
// success, mirrored into this node's local table without monitoring.
func (s *RegistryScope) Register(ctx context.Context, name types.Name, pid types.Pid, meta types.Meta) (types.Registration, int64, error) {
	local := s.a.transport.LocalNode()

	if pid.Node.Equal(local) {
		v, err := s.a.submit(func() (any, error) {
			prev, hadPrev, now, err := s.m.ownerRegister(name, pid, meta, local)
			if err != nil {
				return nil, err
			}
			reg := types.Registration{}
			if hadPrev {
				reg = types.Registration{Pid: prev.Pid, Meta: prev.Meta}
			}
			return registerResult{prev: reg, time: now}, nil
		})
		if err != nil {
			return types.Registration{}, 0, err
		}
		res := v.(registerResult)
		return res.prev, res.time, nil
	}

	handle := types.ActorHandle{Node: pid.Node, ProcessName: s.a.processName}
	req := types.RegisterRequest{Version: types.ProtocolVersion, Scope: s.m.scope, Name: name, Pid: pid, Meta: meta, RequesterNode: local}
	raw, callErr := s.a.transport.Call(ctx, handle, req)
	if callErr != nil {
		return types.Registration{}, 0, callErr
	}
	reply, ok := raw.(types.RegisterReply)
	if !ok {
		return types.Registration{}, 0, types.ErrUndefined
	}
	if reply.Err != nil {
		return types.Registration{}, 0, reply.Err
	}

	_, err := s.a.submit(func() (any, error) {
		s.m.applyRemoteRegister(name, pid, meta, reply.Time)
		return nil, nil
	})
	if err != nil {
		return types.Registration{}, 0, err
	}

	prev := types.Registration{}
	if !reply.PrevPid.IsZero() {
		prev = types.Registration{Pid: reply.PrevPid, Meta: reply.PrevMeta}
	}
	return prev, reply.Time, nil
}

// Unregister implements the unregister operation of spec.md §4.3, routing
// to name's owner node. expectedPid is the pid a prior local lookup found
// (the public API layer's responsibility, not this method's — see
// Manager.Unregister); if a different pid claims name by the time the
// owner applies the removal, it returns types.ErrRaceCondition.
func (s *RegistryScope) Unregister(ctx context.Context, name types.Name, expectedPid types.Pid) error {
	local := s.a.transport.LocalNode()

	if expectedPid.Node.Equal(local) {
		_, err := s.a.submit(func() (any, error) {
			_, _, err := s.m.ownerUnregister(name, expectedPid, local)
			return nil, err
		})
		return err
	}

	handle := types.ActorHandle{Node: expectedPid.Node, ProcessName: s.a.processName}
	req := types.UnregisterRequest{Version: types.ProtocolVersion, Scope: s.m.scope, Name: name, ExpectedPid: expectedPid, RequesterNode: local}
	raw, callErr := s.a.transport.Call(ctx, handle, req)
	if callErr != nil {
		return callErr
	}
	reply, ok := raw.(types.UnregisterReply)
	if !ok {
		return types.ErrUndefined
	}
	if reply.Err != nil {
		return reply.Err
	}

	_, err := s.a.submit(func() (any, error) {
		s.m.applyRemoteUnregister(name, reply.Pid)
		return nil, nil
	})
	return err
}

// Lookup serves a read directly against the table, bypassing the actor's
// mailbox, per spec.md §5.
func (s *RegistryScope) Lookup(name types.Name) (types.Registration, bool) {
	entry, ok := s.m.table.Get(name)
	if !ok {
		return types.Registration{}, false
	}
	return types.Registration{Pid: entry.Pid, Meta: entry.Meta}, true
}

// Count returns the number of registered names, optionally restricted to
// entries owned by node.
func (s *RegistryScope) Count(node *types.NodeID) int {
	if node == nil {
		return s.m.table.Count()
	}
	return s.m.table.CountForNode(*node)
}

// Dump returns a read-only snapshot of every entry in the scope, for
// diagnostics (supplemented feature, see SPEC_FULL.md §12).
func (s *RegistryScope) Dump() []types.RegistryEntry {
	return s.m.table.Snapshot()
}

// Monitors reports how many local rows currently share pid's monitor,
// surfacing invariant I3 for tests/operators (SPEC_FULL.md §12).
func (s *RegistryScope) Monitors(pid types.Pid) int {
	return len(s.m.table.EntriesForPid(pid))
}

type registerResult struct {
	prev types.Registration
	time int64
}

// ============================================================================
//                              registryMachine
// ============================================================================

// registryMachine implements machine for the registry state machine
// (spec.md §4.3, §4.3.1).
type registryMachine struct {
	scope      types.Scope
	table      *table.RegistryTable
	liveness   interfaces.Liveness
	dispatcher *dispatcher
	metrics    *metrics.Reporter
	actor      *actor
}

func (m *registryMachine) localNode() types.NodeID {
	return m.actor.transport.LocalNode()
}

// ownerRegister executes register() on the node that owns pid. requester
// is the node the original API call arrived from (equal to localNode() for
// a purely local call), and is excluded from the broadcast for the
// "fresh name" case, per spec.md §4.3.
func (m *registryMachine) ownerRegister(name types.Name, pid types.Pid, meta types.Meta, requester types.NodeID) (prev types.RegistryEntry, hadPrev bool, now int64, err error) {
	if !m.liveness.IsAlive(pid) {
		return types.RegistryEntry{}, false, 0, types.ErrNotAlive
	}

	existing, found := m.table.Get(name)
	now = types.Now()

	if found && !existing.Pid.Equal(pid) {
		return types.RegistryEntry{}, false, 0, types.ErrTaken
	}

	if found {
		// Same pid re-registers: update in place, reuse the monitor,
		// broadcast to every peer including the requester (spec.md
		// §4.3 calls this a "consistency update").
		entry := existing
		entry.Meta = meta
		entry.Time = now
		m.table.Put(entry)

		m.dispatcher.onRegistered(m.scope, name,
			types.Registration{Pid: existing.Pid, Meta: existing.Meta},
			types.Registration{Pid: pid, Meta: meta})
		m.actor.broadcast(types.SyncRegisterMsg{
			Version: types.ProtocolVersion, Scope: m.scope, Name: name, Pid: pid, Meta: meta, Time: now,
		}, types.EmptyNodeID)

		return existing, true, now, nil
	}

	ref := m.monitorFor(pid)
	entry := types.RegistryEntry{Name: name, Pid: pid, Meta: meta, Time: now, MonitorRef: ref, Node: pid.Node}
	m.table.Put(entry)

	m.dispatcher.onRegistered(m.scope, name, types.Registration{}, types.Registration{Pid: pid, Meta: meta})
	m.actor.broadcast(types.SyncRegisterMsg{
		Version: types.ProtocolVersion, Scope: m.scope, Name: name, Pid: pid, Meta: meta, Time: now,
	}, requester)
	m.metrics.SetRegistryEntries(m.scope, m.table.Count())

	return types.RegistryEntry{}, false, now, nil
}

// ownerUnregister executes unregister() on the node that owns the pid
// currently holding name.
func (m *registryMachine) ownerUnregister(name types.Name, expectedPid types.Pid, requester types.NodeID) (types.Pid, types.Meta, error) {
	existing, found := m.table.Get(name)
	if !found {
		return types.Pid{}, nil, types.ErrUndefined
	}
	if !existing.Pid.Equal(expectedPid) {
		return types.Pid{}, nil, types.ErrRaceCondition
	}

	m.table.Delete(name)
	m.demonitorIfLast(existing.Pid, existing.MonitorRef)
	m.dispatcher.onUnregistered(m.scope, name, existing.Pid, existing.Meta)
	m.actor.broadcast(types.SyncUnregisterMsg{
		Version: types.ProtocolVersion, Scope: m.scope, Name: name, Pid: existing.Pid, Meta: existing.Meta,
	}, requester)
	m.metrics.SetRegistryEntries(m.scope, m.table.Count())

	return existing.Pid, existing.Meta, nil
}

// applyRemoteRegister mirrors a successful remote register into the local
// table without monitoring, per spec.md §4.3's read-your-writes path.
func (m *registryMachine) applyRemoteRegister(name types.Name, pid types.Pid, meta types.Meta, now int64) {
	m.table.Put(types.RegistryEntry{Name: name, Pid: pid, Meta: meta, Time: now, Node: pid.Node})
}

// applyRemoteUnregister mirrors a successful remote unregister locally.
func (m *registryMachine) applyRemoteUnregister(name types.Name, pid types.Pid) {
	if entry, ok := m.table.Get(name); ok && entry.Pid.Equal(pid) {
		m.table.Delete(name)
	}
}

// monitorFor ensures a shared monitor exists for a locally-owned pid,
// reusing the ref already stored under any of pid's other names
// (invariant I3). Returns nil for a non-local pid or on monitor failure.
func (m *registryMachine) monitorFor(pid types.Pid) any {
	if !pid.Node.Equal(m.localNode()) {
		return nil
	}
	if rows := m.table.EntriesForPid(pid); len(rows) > 0 {
		return rows[0].MonitorRef
	}
	ref, ch, err := m.liveness.Monitor(pid)
	if err != nil {
		logger.Warn("failed to monitor pid", "pid", pid.String(), "error", err)
		return nil
	}
	go m.actor.watchPid(ch)
	return ref
}

// demonitorIfLast releases ref once the last local row for pid is gone.
func (m *registryMachine) demonitorIfLast(pid types.Pid, ref any) {
	if ref == nil {
		return
	}
	if len(m.table.EntriesForPid(pid)) == 0 {
		if err := m.liveness.Demonitor(ref, true); err != nil {
			logger.Debug("demonitor failed", "pid", pid.String(), "error", err)
		}
	}
}

// ============================================================================
//                              machine interface
// ============================================================================

func (m *registryMachine) localSnapshot() any {
	local := m.localNode()
	rows := m.table.EntriesForNode(local)
	out := make([]types.RegistrySnapshotRow, 0, len(rows))
	for _, e := range rows {
		out = append(out, types.RegistrySnapshotRow{Name: e.Name, Pid: e.Pid, Meta: e.Meta, Time: e.Time})
	}
	return out
}

func (m *registryMachine) applySnapshot(data any) {
	rows, _ := data.([]types.RegistrySnapshotRow)
	for _, row := range rows {
		m.applySyncRegister(row.Name, row.Pid, row.Meta, row.Time)
	}
}

func (m *registryMachine) handleMessage(from types.NodeID, msg any) (any, error) {
	switch req := msg.(type) {
	case types.RegisterRequest:
		prev, hadPrev, now, err := m.ownerRegister(req.Name, req.Pid, req.Meta, req.RequesterNode)
		reply := types.RegisterReply{Err: err, Time: now}
		if hadPrev {
			reply.PrevPid, reply.PrevMeta = prev.Pid, prev.Meta
		}
		return reply, nil

	case types.UnregisterRequest:
		pid, meta, err := m.ownerUnregister(req.Name, req.ExpectedPid, req.RequesterNode)
		return types.UnregisterReply{Err: err, Pid: pid, Meta: meta}, nil

	case types.SyncRegisterMsg:
		m.applySyncRegister(req.Name, req.Pid, req.Meta, req.Time)
		return nil, nil

	case types.SyncUnregisterMsg:
		m.applySyncUnregister(req.Name, req.Pid)
		return nil, nil

	default:
		logger.Debug("discarding unknown registry message", "from", from.ShortString(), "type", fmt.Sprintf("%T", msg))
		return nil, nil
	}
}

// applySyncRegister is the SYNC_REGISTER handler of spec.md §4.3, reused
// verbatim for snapshot replay.
func (m *registryMachine) applySyncRegister(name types.Name, pid types.Pid, meta types.Meta, tms int64) {
	existing, found := m.table.Get(name)

	switch {
	case !found:
		entry := types.RegistryEntry{Name: name, Pid: pid, Meta: meta, Time: tms, Node: pid.Node}
		entry.MonitorRef = m.monitorFor(pid)
		m.table.Put(entry)
		m.dispatcher.onRegistered(m.scope, name, types.Registration{}, types.Registration{Pid: pid, Meta: meta})

	case existing.Pid.Equal(pid):
		prev := existing
		entry := existing
		entry.Meta, entry.Time = meta, tms
		m.table.Put(entry)
		m.dispatcher.onRegistered(m.scope, name,
			types.Registration{Pid: prev.Pid, Meta: prev.Meta},
			types.Registration{Pid: pid, Meta: meta})

	case existing.Node.Equal(m.localNode()):
		m.resolveConflict(name, existing, types.RegistryEntry{Pid: pid, Meta: meta, Time: tms, Node: pid.Node})

	case existing.Time < tms:
		prev := existing
		m.table.Delete(name)
		m.dispatcher.onUnregistered(m.scope, name, prev.Pid, prev.Meta)

		entry := types.RegistryEntry{Name: name, Pid: pid, Meta: meta, Time: tms, Node: pid.Node}
		m.table.Put(entry)
		m.dispatcher.onRegistered(m.scope, name, types.Registration{}, types.Registration{Pid: pid, Meta: meta})

	default:
		// Our record is as-new or newer; drop the incoming update.
	}

	m.metrics.SetRegistryEntries(m.scope, m.table.Count())
}

// applySyncUnregister is the SYNC_UNREGISTER handler of spec.md §4.3:
// unconditional removal matched on both fields.
func (m *registryMachine) applySyncUnregister(name types.Name, pid types.Pid) {
	existing, found := m.table.Get(name)
	if !found || !existing.Pid.Equal(pid) {
		return
	}
	m.table.Delete(name)
	m.demonitorIfLast(existing.Pid, existing.MonitorRef)
	m.dispatcher.onUnregistered(m.scope, name, existing.Pid, existing.Meta)
	m.metrics.SetRegistryEntries(m.scope, m.table.Count())
}

// resolveConflict implements spec.md §4.3.1. tableEntry is this node's own
// (local) row; incoming describes the pid from the SYNC_REGISTER that
// collided with it.
func (m *registryMachine) resolveConflict(name types.Name, tableEntry, incoming types.RegistryEntry) {
	result := m.dispatcher.resolve(m.scope, name,
		interfaces.ConflictSide{Pid: incoming.Pid, Meta: incoming.Meta, Time: incoming.Time},
		interfaces.ConflictSide{Pid: tableEntry.Pid, Meta: tableEntry.Meta, Time: tableEntry.Time})

	switch {
	case result.Equal(incoming.Pid):
		m.table.Delete(name)
		m.demonitorIfLast(tableEntry.Pid, tableEntry.MonitorRef)
		m.table.Put(types.RegistryEntry{Name: name, Pid: incoming.Pid, Meta: incoming.Meta, Time: incoming.Time, Node: incoming.Pid.Node})

		m.dispatcher.onUnregistered(m.scope, name, tableEntry.Pid, tableEntry.Meta)
		m.dispatcher.onRegistered(m.scope, name, types.Registration{}, types.Registration{Pid: incoming.Pid, Meta: incoming.Meta})
		m.liveness.Kill(tableEntry.Pid, types.DownResolveKill, &types.ResolveKillInfo{Name: name, Meta: tableEntry.Meta})
		m.metrics.IncConflict(m.scope, metrics.ConflictKeptIncoming)

	case result.Equal(tableEntry.Pid):
		now := types.Now()
		entry := tableEntry
		entry.Time = now
		m.table.Put(entry)
		m.actor.broadcast(types.SyncRegisterMsg{
			Version: types.ProtocolVersion, Scope: m.scope, Name: name, Pid: tableEntry.Pid, Meta: tableEntry.Meta, Time: now,
		}, types.EmptyNodeID)
		m.metrics.IncConflict(m.scope, metrics.ConflictKeptLocal)

	default:
		m.table.Delete(name)
		m.demonitorIfLast(tableEntry.Pid, tableEntry.MonitorRef)
		m.dispatcher.onUnregistered(m.scope, name, tableEntry.Pid, tableEntry.Meta)
		m.liveness.Kill(tableEntry.Pid, types.DownResolveKill, &types.ResolveKillInfo{Name: name, Meta: tableEntry.Meta})
		m.metrics.IncConflict(m.scope, metrics.ConflictEvictedBoth)
	}
}

// onDown is the DOWN handler of spec.md §4.3: for every row monitored
// locally under evt.Pid, remove it, emit the unregister callback, and
// broadcast SYNC_UNREGISTER.
func (m *registryMachine) onDown(evt types.DownEvent) {
	rows := m.table.EntriesForPid(evt.Pid)
	for _, row := range rows {
		m.table.Delete(row.Name)
		m.dispatcher.onUnregistered(m.scope, row.Name, row.Pid, row.Meta)
		m.actor.broadcast(types.SyncUnregisterMsg{
			Version: types.ProtocolVersion, Scope: m.scope, Name: row.Name, Pid: row.Pid, Meta: row.Meta,
		}, types.EmptyNodeID)
	}
	if len(rows) > 0 {
		m.metrics.SetRegistryEntries(m.scope, m.table.Count())
	}
}

// purgeNode removes every entry owned by node, off the actor's hot path,
// per spec.md §4.3's "Purge on peer actor DOWN".
func (m *registryMachine) purgeNode(node types.NodeID) {
	removed := m.table.EntriesForNode(node)
	if len(removed) == 0 {
		return
	}
	for _, row := range removed {
		m.table.Delete(row.Name)
	}
	m.metrics.IncPurge(m.scope, len(removed))
	m.metrics.SetRegistryEntries(m.scope, m.table.Count())

	go func() {
		for _, row := range removed {
			m.dispatcher.onUnregistered(m.scope, row.Name, row.Pid, row.Meta)
		}
	}()
}

// rebuildMonitors re-establishes monitors for every locally-owned row at
// actor startup, dropping rows whose pid is no longer alive.
func (m *registryMachine) rebuildMonitors() {
	local := m.localNode()
	rows := m.table.EntriesForNode(local)

	seen := make(map[types.Pid]any, len(rows))
	for _, row := range rows {
		if !m.liveness.IsAlive(row.Pid) {
			m.table.Delete(row.Name)
			continue
		}

		ref, ok := seen[row.Pid]
		if !ok {
			var (
				err error
				ch  <-chan types.DownEvent
			)
			ref, ch, err = m.liveness.Monitor(row.Pid)
			if err != nil {
				logger.Warn("failed to rebuild monitor", "pid", row.Pid.String(), "error", err)
				ref = nil
			} else {
				go m.actor.watchPid(ch)
			}
			seen[row.Pid] = ref
		}

		row.MonitorRef = ref
		m.table.Put(row)
	}
}
