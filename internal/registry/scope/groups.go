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

// GroupsScope is the Groups Scope Actor (GSA) for one scope: the
// (groupname, pid) membership state machine described in spec.md §4.4.
type GroupsScope struct {
	a *actor
	m *groupsMachine
}

// NewGroupsScope creates a GroupsScope. Call Start before it accepts
// traffic.
func NewGroupsScope(
	scopeName types.Scope,
	transport interfaces.Transport,
	bus interfaces.EventBus,
	liveness interfaces.Liveness,
	reporter *metrics.Reporter,
	discoveryCfg config.DiscoveryConfig,
	peersCfg config.PeersConfig,
	groupsCfg config.GroupsConfig,
) *GroupsScope {
	a := newActor(scopeName, kindGroups, transport, bus, liveness, peersCfg.SnapshotCacheSize, discoveryCfg.ReannounceInterval.Duration())

	m := &groupsMachine{
		scope:          scopeName,
		table:          table.NewGroupTable(),
		liveness:       liveness,
		metrics:        reporter,
		actor:          a,
		symmetricLeave: groupsCfg.SymmetricLeave,
	}
	a.machine = m

	return &GroupsScope{a: a, m: m}
}

// Start brings up discovery and begins processing messages.
func (s *GroupsScope) Start(ctx context.Context) error { return s.a.start(ctx) }

// Stop halts the scope actor.
func (s *GroupsScope) Stop(ctx context.Context) error { return s.a.stop(ctx) }

// Scope returns the scope name this actor serves.
func (s *GroupsScope) Scope() types.Scope { return s.m.scope }

// Join implements the join operation of spec.md §4.4.
func (s *GroupsScope) Join(ctx context.Context, groupName types.GroupName, pid types.Pid, meta types.Meta) (int64, error) {
	local := s.a.transport.LocalNode()

	if pid.Node.Equal(local) {
		v, err := s.a.submit(func() (any, error) {
			now, err := s.m.ownerJoin(groupName, pid, meta, local)
			return now, err
		})
		if err != nil {
			return 0, err
		}
		return v.(int64), nil
	}

	handle := types.ActorHandle{Node: pid.Node, ProcessName: s.a.processName}
	req := types.JoinRequest{Version: types.ProtocolVersion, Scope: s.m.scope, GroupName: groupName, Pid: pid, Meta: meta, RequesterNode: local}
	raw, callErr := s.a.transport.Call(ctx, handle, req)
	if callErr != nil {
		return 0, callErr
	}
	reply, ok := raw.(types.JoinReply)
	if !ok {
		return 0, types.ErrUndefined
	}
	if reply.Err != nil {
		return 0, reply.Err
	}

	_, err := s.a.submit(func() (any, error) {
		s.m.applyRemoteJoin(groupName, pid, meta, reply.Time)
		return nil, nil
	})
	if err != nil {
		return 0, err
	}
	return reply.Time, nil
}

// GetMembers serves a read directly against the table, bypassing the
// actor's mailbox, per spec.md §5.
func (s *GroupsScope) GetMembers(groupName types.GroupName) []types.Member {
	rows := s.m.table.Members(groupName)
	out := make([]types.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, types.Member{Pid: row.Pid, Meta: row.Meta})
	}
	return out
}

// Count returns the number of distinct group names, optionally restricted
// to rows owned by node.
func (s *GroupsScope) Count(node *types.NodeID) int {
	return s.m.table.GroupCount(node)
}

// Dump returns a read-only snapshot of every membership row in the scope.
func (s *GroupsScope) Dump() []types.GroupEntry {
	return s.m.table.Snapshot()
}

// Monitors reports how many local rows currently share pid's monitor.
func (s *GroupsScope) Monitors(pid types.Pid) int {
	return len(s.m.table.EntriesForPid(pid))
}

// ============================================================================
//                              groupsMachine
// ============================================================================

// groupsMachine implements machine for the groups state machine
// (spec.md §4.4). Unlike the registry, (GroupName, Pid) has no uniqueness
// conflict to resolve, so there is no dispatcher/resolver here.
type groupsMachine struct {
	scope          types.Scope
	table          *table.GroupTable
	liveness       interfaces.Liveness
	metrics        *metrics.Reporter
	actor          *actor
	symmetricLeave bool
}

func (m *groupsMachine) localNode() types.NodeID {
	return m.actor.transport.LocalNode()
}

// ownerJoin executes join() on the node that owns pid.
func (m *groupsMachine) ownerJoin(groupName types.GroupName, pid types.Pid, meta types.Meta, requester types.NodeID) (int64, error) {
	if !m.liveness.IsAlive(pid) {
		return 0, types.ErrNotAlive
	}

	ref := m.monitorFor(pid)
	now := types.Now()
	m.table.Put(types.GroupEntry{GroupName: groupName, Pid: pid, Meta: meta, Time: now, MonitorRef: ref, Node: pid.Node})

	m.actor.broadcast(types.SyncJoinMsg{
		Version: types.ProtocolVersion, Scope: m.scope, GroupName: groupName, Pid: pid, Meta: meta, Time: now,
	}, requester)
	m.metrics.SetGroupEntries(m.scope, len(m.table.Snapshot()))

	return now, nil
}

// applyRemoteJoin mirrors a successful remote join locally without
// monitoring, for read-your-writes.
func (m *groupsMachine) applyRemoteJoin(groupName types.GroupName, pid types.Pid, meta types.Meta, now int64) {
	m.table.Put(types.GroupEntry{GroupName: groupName, Pid: pid, Meta: meta, Time: now, Node: pid.Node})
}

// monitorFor ensures a shared monitor exists for a locally-owned pid,
// reused across every group that pid joins (invariant I3's group
// analogue). Returns nil for a non-local pid or on monitor failure.
func (m *groupsMachine) monitorFor(pid types.Pid) any {
	if !pid.Node.Equal(m.localNode()) {
		return nil
	}
	if rows := m.entriesForPid(pid); len(rows) > 0 && rows[0].MonitorRef != nil {
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

// entriesForPid returns every row pid currently holds, across all groups.
func (m *groupsMachine) entriesForPid(pid types.Pid) []types.GroupEntry {
	return m.table.EntriesForPid(pid)
}

// demonitorIfLast releases ref once the last local row for pid is gone.
func (m *groupsMachine) demonitorIfLast(pid types.Pid, ref any) {
	if ref == nil {
		return
	}
	if len(m.entriesForPid(pid)) == 0 {
		if err := m.liveness.Demonitor(ref, true); err != nil {
			logger.Debug("demonitor failed", "pid", pid.String(), "error", err)
		}
	}
}

// ============================================================================
//                              machine interface
// ============================================================================

func (m *groupsMachine) localSnapshot() any {
	local := m.localNode()
	rows := m.table.EntriesForNode(local)
	out := make([]types.GroupSnapshotRow, 0, len(rows))
	for _, e := range rows {
		out = append(out, types.GroupSnapshotRow{GroupName: e.GroupName, Pid: e.Pid, Meta: e.Meta, Time: e.Time})
	}
	return out
}

func (m *groupsMachine) applySnapshot(data any) {
	rows, _ := data.([]types.GroupSnapshotRow)
	for _, row := range rows {
		m.applySyncJoin(row.GroupName, row.Pid, row.Meta, row.Time)
	}
}

func (m *groupsMachine) handleMessage(from types.NodeID, msg any) (any, error) {
	switch req := msg.(type) {
	case types.JoinRequest:
		now, err := m.ownerJoin(req.GroupName, req.Pid, req.Meta, req.RequesterNode)
		return types.JoinReply{Err: err, Time: now}, nil

	case types.SyncJoinMsg:
		m.applySyncJoin(req.GroupName, req.Pid, req.Meta, req.Time)
		return nil, nil

	case types.SyncLeaveMsg:
		m.applySyncLeave(req.GroupName, req.Pid)
		return nil, nil

	default:
		logger.Debug("discarding unknown groups message", "from", from.ShortString(), "type", fmt.Sprintf("%T", msg))
		return nil, nil
	}
}

// applySyncJoin is the SYNC_JOIN handler of spec.md §4.4, reused verbatim
// for snapshot replay: insert if absent, overwrite if the incoming row is
// newer, drop otherwise.
func (m *groupsMachine) applySyncJoin(groupName types.GroupName, pid types.Pid, meta types.Meta, tms int64) {
	existing, found := m.table.Get(groupName, pid)
	if found && existing.Time >= tms {
		return
	}
	m.table.Put(types.GroupEntry{GroupName: groupName, Pid: pid, Meta: meta, Time: tms, Node: pid.Node})
	m.metrics.SetGroupEntries(m.scope, len(m.table.Snapshot()))
}

// applySyncLeave removes a (groupName, pid) row unconditionally, mirroring
// the registry's SYNC_UNREGISTER (this module's symmetrization of the
// groups SYNC_LEAVE asymmetry noted in spec.md §9, gated by
// config.GroupsConfig.SymmetricLeave).
func (m *groupsMachine) applySyncLeave(groupName types.GroupName, pid types.Pid) {
	if _, ok := m.table.Delete(groupName, pid); ok {
		m.metrics.SetGroupEntries(m.scope, len(m.table.Snapshot()))
	}
}

// onDown is the DOWN handler of spec.md §4.4: remove every row for the
// departed pid. When symmetricLeave is enabled, also broadcast
// SYNC_LEAVE for each removed row so peers converge without waiting on
// purge_local_data_for_node.
func (m *groupsMachine) onDown(evt types.DownEvent) {
	removed := m.table.DeleteByPid(evt.Pid)
	if len(removed) == 0 {
		return
	}
	m.metrics.SetGroupEntries(m.scope, len(m.table.Snapshot()))

	if !m.symmetricLeave {
		return
	}
	for _, row := range removed {
		m.actor.broadcast(types.SyncLeaveMsg{
			Version: types.ProtocolVersion, Scope: m.scope, GroupName: row.GroupName, Pid: row.Pid, Meta: row.Meta,
		}, types.EmptyNodeID)
	}
}

// purgeNode removes every row owned by node, per spec.md §4.4's
// "Purge on peer actor DOWN".
func (m *groupsMachine) purgeNode(node types.NodeID) {
	removed := m.table.EntriesForNode(node)
	if len(removed) == 0 {
		return
	}
	for _, row := range removed {
		m.table.Delete(row.GroupName, row.Pid)
	}
	m.metrics.SetGroupEntries(m.scope, len(m.table.Snapshot()))
}

// rebuildMonitors re-establishes monitors for every locally-owned row at
// actor startup, dropping rows whose pid is no longer alive.
func (m *groupsMachine) rebuildMonitors() {
	local := m.localNode()
	rows := m.table.EntriesForNode(local)

	seen := make(map[types.Pid]any, len(rows))
	for _, row := range rows {
		if !m.liveness.IsAlive(row.Pid) {
			m.table.Delete(row.GroupName, row.Pid)
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
