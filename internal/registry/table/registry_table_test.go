package table

import (
	"testing"

	"github.com/dep2p/go-registry/pkg/types"
)

func newEntry(name types.Name, pid types.Pid) types.RegistryEntry {
	return types.RegistryEntry{
		Name: name,
		Pid:  pid,
		Node: pid.Node,
		Time: types.Now(),
	}
}

func TestRegistryTable_PutGet(t *testing.T) {
	tbl := NewRegistryTable()
	pid := types.NewPid(types.NewNodeID())

	tbl.Put(newEntry("svc", pid))

	entry, ok := tbl.Get("svc")
	if !ok {
		t.Fatal("expected entry to exist")
	}
	if !entry.Pid.Equal(pid) {
		t.Errorf("Pid = %v, want %v", entry.Pid, pid)
	}
}

func TestRegistryTable_NameUniqueness(t *testing.T) {
	tbl := NewRegistryTable()
	pid1 := types.NewPid(types.NewNodeID())
	pid2 := types.NewPid(types.NewNodeID())

	tbl.Put(newEntry("svc", pid1))
	tbl.Put(newEntry("svc", pid2))

	if tbl.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", tbl.Count())
	}

	entry, _ := tbl.Get("svc")
	if !entry.Pid.Equal(pid2) {
		t.Error("re-registering a name should overwrite the previous pid")
	}

	if rows := tbl.EntriesForPid(pid1); len(rows) != 0 {
		t.Error("old pid's by-pid rows should have been cleaned up (I4)")
	}
}

func TestRegistryTable_Delete(t *testing.T) {
	tbl := NewRegistryTable()
	pid := types.NewPid(types.NewNodeID())
	tbl.Put(newEntry("svc", pid))

	removed, ok := tbl.Delete("svc")
	if !ok || !removed.Pid.Equal(pid) {
		t.Fatal("Delete() should return the removed entry")
	}

	if _, ok := tbl.Get("svc"); ok {
		t.Error("entry should be gone after Delete()")
	}
	if rows := tbl.EntriesForPid(pid); len(rows) != 0 {
		t.Error("by-pid index should be empty after Delete() (I4)")
	}
}

func TestRegistryTable_DeleteByPid(t *testing.T) {
	tbl := NewRegistryTable()
	pid := types.NewPid(types.NewNodeID())
	tbl.Put(newEntry("a", pid))
	tbl.Put(newEntry("b", pid))

	removed := tbl.DeleteByPid(pid)
	if len(removed) != 2 {
		t.Fatalf("DeleteByPid() removed %d entries, want 2", len(removed))
	}

	if tbl.Count() != 0 {
		t.Errorf("Count() = %d, want 0", tbl.Count())
	}
}

func TestRegistryTable_EntriesForNode(t *testing.T) {
	tbl := NewRegistryTable()
	node := types.NewNodeID()
	pid1 := types.NewPid(node)
	pid2 := types.NewPid(types.NewNodeID())

	tbl.Put(newEntry("a", pid1))
	tbl.Put(newEntry("b", pid2))

	entries := tbl.EntriesForNode(node)
	if len(entries) != 1 || entries[0].Name != "a" {
		t.Errorf("EntriesForNode() = %+v, want just entry a", entries)
	}
}

func TestRegistryTable_Snapshot(t *testing.T) {
	tbl := NewRegistryTable()
	tbl.Put(newEntry("a", types.NewPid(types.NewNodeID())))
	tbl.Put(newEntry("b", types.NewPid(types.NewNodeID())))

	snap := tbl.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() returned %d entries, want 2", len(snap))
	}
}

func TestRegistryTable_CloneIsolatesCaller(t *testing.T) {
	tbl := NewRegistryTable()
	pid := types.NewPid(types.NewNodeID())
	tbl.Put(newEntry("svc", pid))

	entry, _ := tbl.Get("svc")
	entry.Meta = "mutated"

	again, _ := tbl.Get("svc")
	if again.Meta == "mutated" {
		t.Error("mutating a returned entry should not affect the table")
	}
}
