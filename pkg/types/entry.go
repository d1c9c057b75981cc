package types

import (
	"sync/atomic"
	"time"
)

// ============================================================================
//                              Registry entry
// ============================================================================

// RegistryEntry is one row of a scope's registry tables: one per (Scope,
// Name). MonitorRef is non-nil iff Node equals the local node (invariant
// I2); it is carried as an opaque token rather than a concrete type
// because the registry state machine does not care what the Liveness
// implementation uses internally, only that it can be used to demonitor.
type RegistryEntry struct {
	Name       Name
	Pid        Pid
	Meta       Meta
	Time       int64 // nanosecond monotonic registration timestamp, owner's clock
	MonitorRef any
	Node       NodeID
}

// Clone returns a shallow copy of the entry. Callers that hand entries to
// user callbacks clone first so the callback cannot mutate table state
// through a pointer it was never given.
func (e RegistryEntry) Clone() RegistryEntry {
	return e
}

// ============================================================================
//                              Group entry
// ============================================================================

// GroupEntry is one row of a scope's group tables: one per (GroupName,
// Pid). Unlike RegistryEntry there is no uniqueness constraint across
// different Pids under the same GroupName — only the (GroupName, Pid) pair
// itself is unique.
type GroupEntry struct {
	GroupName  GroupName
	Pid        Pid
	Meta       Meta
	Time       int64
	MonitorRef any
	Node       NodeID
}

// Clone returns a shallow copy of the entry.
func (e GroupEntry) Clone() GroupEntry {
	return e
}

// Member is the public-facing projection of a GroupEntry returned by
// get_members: callers never see Time, MonitorRef or Node.
type Member struct {
	Pid  Pid
	Meta Meta
}

// Registration is the public-facing projection of a RegistryEntry returned
// by lookup.
type Registration struct {
	Pid  Pid
	Meta Meta
}

var lastStamp atomic.Int64

// Now returns a per-process strictly-increasing nanosecond timestamp used
// to stamp RegistryEntry.Time / GroupEntry.Time, approximating spec.md
// §4.3's per-node monotonic counter on top of the wall clock: two calls on
// the same node can never tie, even back-to-back, which a bare
// time.Now().UnixNano() occasionally would on a coarse clock.
func Now() int64 {
	for {
		prev := lastStamp.Load()
		next := time.Now().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if lastStamp.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// NowTime returns the current wall-clock time, used to stamp NodeEvent.At
// and DownEvent.At. Kept separate from Now because those fields carry
// time.Time, not a raw nanosecond counter.
func NowTime() time.Time {
	return time.Now()
}
