package types

// ProtocolVersion tags every inter-node message this module sends.
const ProtocolVersion = "3.0"

// ActorHandle is how a scope actor is addressed from a remote node: the
// transport resolves (Node, ProcessName) to a concrete delivery endpoint.
// ProcessName is derived as "<handler>_<scope>" so the registry and groups
// actors for the same scope never collide on the same node.
type ActorHandle struct {
	Node        NodeID
	ProcessName string
}

// ============================================================================
//                              Discovery / anti-entropy
// ============================================================================

// DiscoverMsg is broadcast by a scope actor on startup and whenever a
// cluster node-up event fires, announcing the sender's handle.
type DiscoverMsg struct {
	Version string
	Sender  ActorHandle
}

// RegistrySnapshotRow is one row of a get_local_data snapshot exchanged
// during anti-entropy sync for the registry state machine.
type RegistrySnapshotRow struct {
	Name Name
	Pid  Pid
	Meta Meta
	Time int64
}

// GroupSnapshotRow is the groups state machine's analogue.
type GroupSnapshotRow struct {
	GroupName GroupName
	Pid       Pid
	Meta      Meta
	Time      int64
}

// AckSyncMsg is the point-to-point reply to a DiscoverMsg (or to another
// AckSyncMsg from a newly-discovered peer, so both sides converge even if
// the original DISCOVER was lost in one direction). Exactly one of
// RegistryRows/GroupRows is populated depending on which state machine
// sent it.
type AckSyncMsg struct {
	Version      string
	Sender       ActorHandle
	RegistryRows []RegistrySnapshotRow
	GroupRows    []GroupSnapshotRow
}

// ============================================================================
//                              Registry sync messages
// ============================================================================

// SyncRegisterMsg is broadcast by the owner node after a successful
// register. Snapshot replay applies each RegistrySnapshotRow through the
// same handler as this message.
type SyncRegisterMsg struct {
	Version string
	Scope   Scope
	Name    Name
	Pid     Pid
	Meta    Meta
	Time    int64
}

// SyncUnregisterMsg is broadcast by the owner node after a successful
// unregister or a DOWN eviction.
type SyncUnregisterMsg struct {
	Version string
	Scope   Scope
	Name    Name
	Pid     Pid
	Meta    Meta
}

// ============================================================================
//                              Group sync messages
// ============================================================================

// SyncJoinMsg is broadcast by the owner node after a successful join.
type SyncJoinMsg struct {
	Version   string
	Scope     Scope
	GroupName GroupName
	Pid       Pid
	Meta      Meta
	Time      int64
}

// SyncLeaveMsg is broadcast by the owner's DOWN handler when
// config.GroupsConfig.SymmetricLeave is enabled, mirroring the registry's
// SyncUnregisterMsg. Absent from the source system (see spec's groups
// SYNC_LEAVE design note); this module adds it to symmetrize by default.
type SyncLeaveMsg struct {
	Version   string
	Scope     Scope
	GroupName GroupName
	Pid       Pid
	Meta      Meta
}

// ============================================================================
//                              Owner-forwarding API calls
// ============================================================================
//
// When a local API call (register/unregister/join) targets a pid owned by
// a remote node, the caller's scope actor forwards the call to the
// owner's actor with a synchronous Transport.Call using one of the
// Request types below, and applies the owner's reply to its own tables
// (without monitoring) for read-your-write visibility, per spec.md §4.3's
// "Remote-result application on the requester node".

// RegisterRequest is sent by a non-owner node to pid's owner.
type RegisterRequest struct {
	Version       string
	Scope         Scope
	Name          Name
	Pid           Pid
	Meta          Meta
	RequesterNode NodeID
}

// RegisterReply answers a RegisterRequest. Err is nil on success; on a
// "same pid re-registers" outcome PrevPid/PrevMeta describe the entry as
// it was before the update (zero values when there was none).
type RegisterReply struct {
	Err      error
	PrevPid  Pid
	PrevMeta Meta
	Time     int64
}

// UnregisterRequest is sent by a non-owner node to the owner of the pid
// currently holding Name (as observed by the requester's local lookup).
type UnregisterRequest struct {
	Version       string
	Scope         Scope
	Name          Name
	ExpectedPid   Pid
	RequesterNode NodeID
}

// UnregisterReply answers an UnregisterRequest.
type UnregisterReply struct {
	Err  error
	Pid  Pid
	Meta Meta
}

// JoinRequest is sent by a non-owner node to pid's owner.
type JoinRequest struct {
	Version       string
	Scope         Scope
	GroupName     GroupName
	Pid           Pid
	Meta          Meta
	RequesterNode NodeID
}

// JoinReply answers a JoinRequest.
type JoinReply struct {
	Err  error
	Time int64
}
