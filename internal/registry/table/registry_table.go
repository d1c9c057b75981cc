// Package table implements the by-name / by-pid indexed storage that backs
// one scope's registry and groups state machines.
package table

import (
	"sync"

	"github.com/dep2p/go-registry/pkg/types"
)

// RegistryTable holds one scope's registry entries, indexed both by Name
// (invariant I1: at most one entry per Name) and by Pid (invariant I4:
// the two indexes always agree on membership). Safe for concurrent use:
// reads take the read lock, the scope actor's mutations take the write
// lock.
type RegistryTable struct {
	mu     sync.RWMutex
	byName map[types.Name]*types.RegistryEntry
	byPid  map[types.Pid]map[types.Name]*types.RegistryEntry
}

// NewRegistryTable creates an empty RegistryTable.
func NewRegistryTable() *RegistryTable {
	return &RegistryTable{
		byName: make(map[types.Name]*types.RegistryEntry),
		byPid:  make(map[types.Pid]map[types.Name]*types.RegistryEntry),
	}
}

// Get returns the entry for name, if any.
func (t *RegistryTable) Get(name types.Name) (types.RegistryEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.byName[name]
	if !ok {
		return types.RegistryEntry{}, false
	}
	return *entry, true
}

// Put inserts or overwrites the entry for entry.Name. If name was already
// registered to a different pid, the old by-pid row is removed first so
// the two indexes stay in lockstep (I4).
func (t *RegistryTable) Put(entry types.RegistryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.byName[entry.Name]; ok && !old.Pid.Equal(entry.Pid) {
		t.removeFromByPid(old.Pid, old.Name)
	}

	stored := entry.Clone()
	t.byName[entry.Name] = &stored

	rows, ok := t.byPid[entry.Pid]
	if !ok {
		rows = make(map[types.Name]*types.RegistryEntry)
		t.byPid[entry.Pid] = rows
	}
	rows[entry.Name] = &stored
}

// Delete removes name's entry, if present, returning it.
func (t *RegistryTable) Delete(name types.Name) (types.RegistryEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.byName[name]
	if !ok {
		return types.RegistryEntry{}, false
	}

	delete(t.byName, name)
	t.removeFromByPid(entry.Pid, name)

	return *entry, true
}

// DeleteByPid removes every entry owned by pid, returning the removed
// entries. The registry state machine's DOWN handling and peer purge do
// not use it; they remove rows one name at a time with Delete.
func (t *RegistryTable) DeleteByPid(pid types.Pid) []types.RegistryEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, ok := t.byPid[pid]
	if !ok {
		return nil
	}

	removed := make([]types.RegistryEntry, 0, len(rows))
	for name, entry := range rows {
		removed = append(removed, *entry)
		delete(t.byName, name)
	}
	delete(t.byPid, pid)

	return removed
}

// EntriesForPid returns every entry currently held by pid.
func (t *RegistryTable) EntriesForPid(pid types.Pid) []types.RegistryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, ok := t.byPid[pid]
	if !ok {
		return nil
	}

	out := make([]types.RegistryEntry, 0, len(rows))
	for _, entry := range rows {
		out = append(out, *entry)
	}
	return out
}

// EntriesForNode returns every entry owned by node, used to purge a
// departed peer's contributions to the local table.
func (t *RegistryTable) EntriesForNode(node types.NodeID) []types.RegistryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.RegistryEntry, 0)
	for _, entry := range t.byName {
		if entry.Node.Equal(node) {
			out = append(out, *entry)
		}
	}
	return out
}

// Snapshot returns every entry in the table, for diagnostics (Dump).
// ACK_SYNC replies carry only locally-owned rows, from EntriesForNode.
func (t *RegistryTable) Snapshot() []types.RegistryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.RegistryEntry, 0, len(t.byName))
	for _, entry := range t.byName {
		out = append(out, *entry)
	}
	return out
}

// Count returns the number of distinct registered names.
func (t *RegistryTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byName)
}

// CountForNode returns the number of distinct registered names owned by
// node.
func (t *RegistryTable) CountForNode(node types.NodeID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, entry := range t.byName {
		if entry.Node.Equal(node) {
			n++
		}
	}
	return n
}

// removeFromByPid must be called with t.mu already held for writing.
func (t *RegistryTable) removeFromByPid(pid types.Pid, name types.Name) {
	rows, ok := t.byPid[pid]
	if !ok {
		return
	}
	delete(rows, name)
	if len(rows) == 0 {
		delete(t.byPid, pid)
	}
}
