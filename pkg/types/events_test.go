package types

import "testing"

func TestNodeEventKindString(t *testing.T) {
	if NodeUp.String() != "node_up" {
		t.Fatalf("NodeUp.String() = %q", NodeUp.String())
	}
	if NodeDown.String() != "node_down" {
		t.Fatalf("NodeDown.String() = %q", NodeDown.String())
	}
}

func TestDownEventResolveRef(t *testing.T) {
	ev := DownEvent{
		Pid:    NewPid(NewNodeID()),
		Reason: DownResolveKill,
		ResolveRef: &ResolveKillInfo{
			Name: "alpha",
			Meta: map[string]string{"tag": "other"},
		},
	}
	if ev.Reason != DownResolveKill {
		t.Fatal("expected DownResolveKill reason")
	}
	if ev.ResolveRef == nil || ev.ResolveRef.Name != "alpha" {
		t.Fatal("ResolveRef not carried through")
	}
}
