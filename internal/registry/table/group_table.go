package table

import (
	"sync"

	"github.com/dep2p/go-registry/pkg/types"
)

type groupKey struct {
	group types.GroupName
	pid   types.Pid
}

// GroupTable holds one scope's group-membership entries, keyed uniquely by
// (GroupName, Pid) and indexed additionally by Pid and by GroupName for
// the access patterns groups join/leave/get_members/count need. Safe for
// concurrent use, on the same terms as RegistryTable.
type GroupTable struct {
	mu      sync.RWMutex
	byKey   map[groupKey]*types.GroupEntry
	byPid   map[types.Pid]map[types.GroupName]*types.GroupEntry
	byGroup map[types.GroupName]map[types.Pid]*types.GroupEntry
}

// NewGroupTable creates an empty GroupTable.
func NewGroupTable() *GroupTable {
	return &GroupTable{
		byKey:   make(map[groupKey]*types.GroupEntry),
		byPid:   make(map[types.Pid]map[types.GroupName]*types.GroupEntry),
		byGroup: make(map[types.GroupName]map[types.Pid]*types.GroupEntry),
	}
}

// Get returns the entry for (group, pid), if any.
func (t *GroupTable) Get(group types.GroupName, pid types.Pid) (types.GroupEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.byKey[groupKey{group, pid}]
	if !ok {
		return types.GroupEntry{}, false
	}
	return *entry, true
}

// Put inserts or overwrites the (GroupName, Pid) row.
func (t *GroupTable) Put(entry types.GroupEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := groupKey{entry.GroupName, entry.Pid}

	stored := entry.Clone()
	t.byKey[key] = &stored

	pidRows, ok := t.byPid[entry.Pid]
	if !ok {
		pidRows = make(map[types.GroupName]*types.GroupEntry)
		t.byPid[entry.Pid] = pidRows
	}
	pidRows[entry.GroupName] = &stored

	groupRows, ok := t.byGroup[entry.GroupName]
	if !ok {
		groupRows = make(map[types.Pid]*types.GroupEntry)
		t.byGroup[entry.GroupName] = groupRows
	}
	groupRows[entry.Pid] = &stored
}

// Delete removes the (group, pid) row, if present.
func (t *GroupTable) Delete(group types.GroupName, pid types.Pid) (types.GroupEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := groupKey{group, pid}
	entry, ok := t.byKey[key]
	if !ok {
		return types.GroupEntry{}, false
	}

	delete(t.byKey, key)
	t.removeFromByPid(pid, group)
	t.removeFromByGroup(group, pid)

	return *entry, true
}

// DeleteByPid removes every row for pid across all groups, returning them.
func (t *GroupTable) DeleteByPid(pid types.Pid) []types.GroupEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows, ok := t.byPid[pid]
	if !ok {
		return nil
	}

	removed := make([]types.GroupEntry, 0, len(rows))
	for group, entry := range rows {
		removed = append(removed, *entry)
		delete(t.byKey, groupKey{group, pid})
		t.removeFromByGroup(group, pid)
	}
	delete(t.byPid, pid)

	return removed
}

// EntriesForPid returns every row pid currently holds, across all groups.
func (t *GroupTable) EntriesForPid(pid types.Pid) []types.GroupEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, ok := t.byPid[pid]
	if !ok {
		return nil
	}

	out := make([]types.GroupEntry, 0, len(rows))
	for _, entry := range rows {
		out = append(out, *entry)
	}
	return out
}

// Members returns every entry for group.
func (t *GroupTable) Members(group types.GroupName) []types.GroupEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, ok := t.byGroup[group]
	if !ok {
		return nil
	}

	out := make([]types.GroupEntry, 0, len(rows))
	for _, entry := range rows {
		out = append(out, *entry)
	}
	return out
}

// Count returns the number of pids currently in group.
func (t *GroupTable) Count(group types.GroupName) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byGroup[group])
}

// GroupCount returns the number of distinct group names with at least one
// member, optionally restricted to rows owned by node.
func (t *GroupTable) GroupCount(node *types.NodeID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if node == nil {
		return len(t.byGroup)
	}

	n := 0
	for _, rows := range t.byGroup {
		for _, entry := range rows {
			if entry.Node.Equal(*node) {
				n++
				break
			}
		}
	}
	return n
}

// EntriesForNode returns every entry owned by node.
func (t *GroupTable) EntriesForNode(node types.NodeID) []types.GroupEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.GroupEntry, 0)
	for _, entry := range t.byKey {
		if entry.Node.Equal(node) {
			out = append(out, *entry)
		}
	}
	return out
}

// Snapshot returns every entry in the table, for diagnostics (Dump) and
// the entry-count metric. ACK_SYNC replies carry only locally-owned rows.
func (t *GroupTable) Snapshot() []types.GroupEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.GroupEntry, 0, len(t.byKey))
	for _, entry := range t.byKey {
		out = append(out, *entry)
	}
	return out
}

// removeFromByPid must be called with t.mu already held for writing.
func (t *GroupTable) removeFromByPid(pid types.Pid, group types.GroupName) {
	rows, ok := t.byPid[pid]
	if !ok {
		return
	}
	delete(rows, group)
	if len(rows) == 0 {
		delete(t.byPid, pid)
	}
}

// removeFromByGroup must be called with t.mu already held for writing.
func (t *GroupTable) removeFromByGroup(group types.GroupName, pid types.Pid) {
	rows, ok := t.byGroup[group]
	if !ok {
		return
	}
	delete(rows, pid)
	if len(rows) == 0 {
		delete(t.byGroup, group)
	}
}
