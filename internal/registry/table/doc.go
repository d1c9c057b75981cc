// Package table implements the dual-indexed storage a scope actor keeps
// for its registry and groups state. RegistryTable enforces name
// uniqueness (I1) and keeps its by-name/by-pid indexes consistent (I4).
// GroupTable does the analogous bookkeeping for (GroupName, Pid) pairs.
//
// Per spec.md §5, local reads (lookup/get_members/count) are served
// directly against these tables by the calling goroutine, bypassing the
// scope actor's mailbox entirely, while the actor's run loop remains the
// tables' single writer. Both table types hold an internal RWMutex to
// make that concurrent-read/single-writer pattern safe: writes (Put,
// Delete, DeleteByPid) take the write lock, reads take the read lock, and
// the write lock is never held across a user callback.
package table
