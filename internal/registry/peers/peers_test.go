package peers

import (
	"testing"

	"github.com/dep2p/go-registry/pkg/types"
)

func TestMap_AddReturnsTrueForNewPeer(t *testing.T) {
	m := New(8)
	node := types.NewNodeID()

	if !m.Add(types.ActorHandle{Node: node, ProcessName: "registry_default"}) {
		t.Error("Add() should return true for a previously unknown peer")
	}
	if m.Add(types.ActorHandle{Node: node, ProcessName: "registry_default"}) {
		t.Error("Add() should return false for an already-known peer")
	}
}

func TestMap_RemoveAndHandle(t *testing.T) {
	m := New(8)
	node := types.NewNodeID()
	m.Add(types.ActorHandle{Node: node, ProcessName: "registry_default"})

	if _, ok := m.Handle(node); !ok {
		t.Fatal("expected handle to be present")
	}

	m.Remove(node)
	if _, ok := m.Handle(node); ok {
		t.Error("handle should be gone after Remove()")
	}
}

func TestMap_Nodes(t *testing.T) {
	m := New(8)
	n1, n2 := types.NewNodeID(), types.NewNodeID()
	m.Add(types.ActorHandle{Node: n1})
	m.Add(types.ActorHandle{Node: n2})

	nodes := m.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("Nodes() = %d, want 2", len(nodes))
	}
}

func TestMap_MarkSeenDedupes(t *testing.T) {
	m := New(8)

	if !m.MarkSeen("fp-1") {
		t.Error("first MarkSeen() for a fingerprint should return true")
	}
	if m.MarkSeen("fp-1") {
		t.Error("second MarkSeen() for the same fingerprint should return false")
	}
}

func TestMap_MarkSeenEvictsAtCapacity(t *testing.T) {
	m := New(2)

	m.MarkSeen("fp-1")
	m.MarkSeen("fp-2")
	m.MarkSeen("fp-3") // evicts fp-1

	if !m.MarkSeen("fp-1") {
		t.Error("fp-1 should have been evicted and treated as unseen again")
	}
}
