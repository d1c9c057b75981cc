package hashring

import (
	"testing"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/pkg/types"
)

func TestRing_HintDisabled(t *testing.T) {
	r := New(config.HashringConfig{Enabled: false})
	r.AddNode(types.NewNodeID())

	_, err := r.Hint(types.DefaultScope, "svc")
	if err != ErrDisabled {
		t.Errorf("Hint() on disabled ring = %v, want ErrDisabled", err)
	}
}

func TestRing_HintStableForSameKey(t *testing.T) {
	r := New(config.HashringConfig{Enabled: true})
	n1, n2, n3 := types.NewNodeID(), types.NewNodeID(), types.NewNodeID()
	r.AddNode(n1)
	r.AddNode(n2)
	r.AddNode(n3)

	first, err := r.Hint(types.DefaultScope, "svc")
	if err != nil {
		t.Fatalf("Hint() failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := r.Hint(types.DefaultScope, "svc")
		if err != nil {
			t.Fatalf("Hint() failed: %v", err)
		}
		if !again.Equal(first) {
			t.Errorf("Hint() for the same key returned different nodes across calls")
		}
	}
}

func TestRing_RemoveNode(t *testing.T) {
	r := New(config.HashringConfig{Enabled: true})
	node := types.NewNodeID()
	r.AddNode(node)

	if len(r.Nodes()) != 1 {
		t.Fatalf("Nodes() = %d, want 1", len(r.Nodes()))
	}

	r.RemoveNode(node)
	if len(r.Nodes()) != 0 {
		t.Errorf("Nodes() = %d, want 0 after RemoveNode()", len(r.Nodes()))
	}
}
