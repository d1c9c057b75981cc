package scope

import (
	"context"
	"testing"
	"time"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/internal/core/eventbus"
	"github.com/dep2p/go-registry/internal/core/liveness"
	"github.com/dep2p/go-registry/internal/registry/metrics"
	"github.com/dep2p/go-registry/internal/transport"
	"github.com/dep2p/go-registry/pkg/types"
)

// testNode bundles one simulated node's collaborators: a Memory transport
// joined to a shared Network, its own event bus and Liveness service, and
// the RegistryScope/GroupsScope pair under test.
type testNode struct {
	t         *testing.T
	transport *transport.Memory
	bus       *eventbus.Bus
	liveness  *liveness.Service
	reporter  *metrics.Reporter
	registry  *RegistryScope
	groups    *GroupsScope
}

func newTestNode(t *testing.T, network *transport.Network, scopeName types.Scope) *testNode {
	t.Helper()

	tr := network.NewNode(types.NewNodeID())
	bus := eventbus.NewBus()
	live := liveness.NewService(config.DefaultLivenessConfig())
	if err := live.Start(context.Background()); err != nil {
		t.Fatalf("liveness Start() failed: %v", err)
	}
	reporter := metrics.New(config.MetricsConfig{Enabled: false}, nil)

	rs := NewRegistryScope(scopeName, tr, bus, live, nil, reporter,
		config.DefaultDiscoveryConfig(), config.DefaultPeersConfig(), config.DefaultConflictConfig())
	gs := NewGroupsScope(scopeName, tr, bus, live, reporter,
		config.DefaultDiscoveryConfig(), config.DefaultPeersConfig(), config.DefaultGroupsConfig())

	ctx := context.Background()
	if err := rs.Start(ctx); err != nil {
		t.Fatalf("RegistryScope.Start() failed: %v", err)
	}
	if err := gs.Start(ctx); err != nil {
		t.Fatalf("GroupsScope.Start() failed: %v", err)
	}

	n := &testNode{t: t, transport: tr, bus: bus, liveness: live, reporter: reporter, registry: rs, groups: gs}
	t.Cleanup(func() {
		_ = rs.Stop(context.Background())
		_ = gs.Stop(context.Background())
		_ = live.Stop(context.Background())
		_ = tr.Close()
	})
	return n
}

func (n *testNode) spawn() types.Pid {
	pid := types.NewPid(n.transport.LocalNode())
	n.liveness.Register(pid)
	return pid
}

func eventuallyTrue(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestRegistryScope_RegisterLocalAndLookup(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	pid := node.spawn()
	ctx := context.Background()

	if _, _, err := node.registry.Register(ctx, "svc", pid, "meta"); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	reg, ok := node.registry.Lookup("svc")
	if !ok || !reg.Pid.Equal(pid) {
		t.Fatalf("Lookup() = %+v, %v, want pid=%v", reg, ok, pid)
	}
}

func TestRegistryScope_RegisterNotAlive(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	pid := types.NewPid(node.transport.LocalNode()) // never registered with liveness

	if _, _, err := node.registry.Register(context.Background(), "svc", pid, nil); err != types.ErrNotAlive {
		t.Errorf("Register() on dead pid = %v, want ErrNotAlive", err)
	}
}

func TestRegistryScope_RegisterTakenAndUnregisterRace(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	ctx := context.Background()
	pid1, pid2 := node.spawn(), node.spawn()

	if _, _, err := node.registry.Register(ctx, "svc", pid1, nil); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if _, _, err := node.registry.Register(ctx, "svc", pid2, nil); err != types.ErrTaken {
		t.Errorf("Register() on taken name = %v, want ErrTaken", err)
	}
	if err := node.registry.Unregister(ctx, "svc", pid2); err != types.ErrRaceCondition {
		t.Errorf("Unregister() with wrong expected pid = %v, want ErrRaceCondition", err)
	}
	if err := node.registry.Unregister(ctx, "svc", pid1); err != nil {
		t.Errorf("Unregister() with correct expected pid failed: %v", err)
	}
}

func TestRegistryScope_KillRemovesEntry(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	ctx := context.Background()
	pid := node.spawn()

	if _, _, err := node.registry.Register(ctx, "svc", pid, nil); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	node.liveness.Kill(pid, types.DownNormal, nil)

	eventuallyTrue(t, time.Second, func() bool {
		_, ok := node.registry.Lookup("svc")
		return !ok
	})
}

func TestRegistryScope_MonitorsCoalescedAcrossNames(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	ctx := context.Background()
	pid := node.spawn()

	if _, _, err := node.registry.Register(ctx, "a", pid, nil); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if _, _, err := node.registry.Register(ctx, "b", pid, nil); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if got := node.registry.Monitors(pid); got != 2 {
		t.Errorf("Monitors() = %d, want 2", got)
	}
}

func TestGroupsScope_JoinAndGetMembers(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	ctx := context.Background()
	pid1, pid2 := node.spawn(), node.spawn()

	if _, err := node.groups.Join(ctx, "room", pid1, "a"); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}
	if _, err := node.groups.Join(ctx, "room", pid2, "b"); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}

	members := node.groups.GetMembers("room")
	if len(members) != 2 {
		t.Fatalf("GetMembers() returned %d members, want 2", len(members))
	}
}

func TestGroupsScope_KillRemovesMembership(t *testing.T) {
	node := newTestNode(t, transport.NewNetwork(), "scope-a")
	ctx := context.Background()
	pid := node.spawn()

	if _, err := node.groups.Join(ctx, "room", pid, nil); err != nil {
		t.Fatalf("Join() failed: %v", err)
	}
	node.liveness.Kill(pid, types.DownNormal, nil)

	eventuallyTrue(t, time.Second, func() bool {
		return len(node.groups.GetMembers("room")) == 0
	})
}

// TestTwoNodes_ProcessDeathPropagates is spec.md §8 scenario 3: a pid's
// death on its owning node must eventually clear the name on every other
// node in the scope via broadcast SYNC_UNREGISTER.
func TestTwoNodes_ProcessDeathPropagates(t *testing.T) {
	network := transport.NewNetwork()
	a := newTestNode(t, network, "scope-a")
	b := newTestNode(t, network, "scope-a")

	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	pid := a.spawn()
	if _, _, err := a.registry.Register(ctx, "alpha", pid, nil); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	eventuallyTrue(t, 2*time.Second, func() bool {
		reg, ok := b.registry.Lookup("alpha")
		return ok && reg.Pid.Equal(pid)
	})

	a.liveness.Kill(pid, types.DownNormal, nil)

	eventuallyTrue(t, 2*time.Second, func() bool {
		_, okA := a.registry.Lookup("alpha")
		_, okB := b.registry.Lookup("alpha")
		return !okA && !okB
	})
}

// TestTwoNodes_GroupLeaveOnDeath is spec.md §8 scenario 5 across two nodes:
// both sides see both members, then only the survivor once one is killed.
func TestTwoNodes_GroupLeaveOnDeath(t *testing.T) {
	network := transport.NewNetwork()
	a := newTestNode(t, network, "scope-a")
	b := newTestNode(t, network, "scope-a")

	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	pidA, pidB := a.spawn(), b.spawn()

	if _, err := a.groups.Join(ctx, "g", pidA, nil); err != nil {
		t.Fatalf("a Join() failed: %v", err)
	}
	if _, err := b.groups.Join(ctx, "g", pidB, nil); err != nil {
		t.Fatalf("b Join() failed: %v", err)
	}

	eventuallyTrue(t, 2*time.Second, func() bool {
		return len(a.groups.GetMembers("g")) == 2 && len(b.groups.GetMembers("g")) == 2
	})

	a.liveness.Kill(pidA, types.DownNormal, nil)

	eventuallyTrue(t, 2*time.Second, func() bool {
		membersA := a.groups.GetMembers("g")
		membersB := b.groups.GetMembers("g")
		return len(membersA) == 1 && membersA[0].Pid.Equal(pidB) &&
			len(membersB) == 1 && membersB[0].Pid.Equal(pidB)
	})
}

// TestTwoNodes_RemoteRegisterAndPeerPurge exercises register-via-remote-owner
// plus eventual purge when the owning peer's node disappears, across two
// nodes sharing one Network.
func TestTwoNodes_RemoteRegisterAndPeerPurge(t *testing.T) {
	network := transport.NewNetwork()
	a := newTestNode(t, network, "scope-a")
	b := newTestNode(t, network, "scope-a")

	time.Sleep(50 * time.Millisecond) // let DISCOVER/ACK_SYNC converge

	ctx := context.Background()
	pidOnB := b.spawn()

	if _, _, err := a.registry.Register(ctx, "remote-svc", pidOnB, nil); err != nil {
		t.Fatalf("remote Register() failed: %v", err)
	}

	eventuallyTrue(t, 2*time.Second, func() bool {
		reg, ok := a.registry.Lookup("remote-svc")
		return ok && reg.Pid.Equal(pidOnB)
	})

	if err := b.transport.Close(); err != nil {
		t.Fatalf("closing b's transport failed: %v", err)
	}

	eventuallyTrue(t, 2*time.Second, func() bool {
		_, ok := a.registry.Lookup("remote-svc")
		return !ok
	})
}
