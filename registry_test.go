package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-registry/internal/transport"
	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/types"
)

// spyHandler records every callback invocation for assertion, and lets a
// test override ResolveRegistryConflict's decision.
type spyHandler struct {
	mu           sync.Mutex
	registered   []types.Name
	unregistered []types.Name
	resolve      func(scope types.Scope, name types.Name, incoming, current interfaces.ConflictSide) types.Pid
}

func (h *spyHandler) OnProcessRegistered(_ types.Scope, name types.Name, _, _ types.Registration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registered = append(h.registered, name)
}

func (h *spyHandler) OnProcessUnregistered(_ types.Scope, name types.Name, _ types.Pid, _ types.Meta) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregistered = append(h.unregistered, name)
}

func (h *spyHandler) ResolveRegistryConflict(scope types.Scope, name types.Name, incoming, current interfaces.ConflictSide) types.Pid {
	if h.resolve != nil {
		return h.resolve(scope, name, incoming, current)
	}
	return interfaces.DefaultResolver(scope, name, incoming, current)
}

func (h *spyHandler) sawRegistered(name types.Name) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.registered {
		if n == name {
			return true
		}
	}
	return false
}

func (h *spyHandler) sawUnregistered(name types.Name) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.unregistered {
		if n == name {
			return true
		}
	}
	return false
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	mgr, err := New(opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

// spawnCluster builds n Managers sharing network and starts them
// concurrently through an errgroup, so bringing up a larger cluster in a
// test doesn't serialize on one Manager's Start at a time.
func spawnCluster(t *testing.T, network *transport.Network, n int) []*Manager {
	t.Helper()

	mgrs := make([]*Manager, n)
	g, gctx := errgroup.WithContext(context.Background())
	for i := range mgrs {
		i := i
		g.Go(func() error {
			mgr, err := New(WithNetwork(network))
			if err != nil {
				return err
			}
			if err := mgr.Start(gctx); err != nil {
				return err
			}
			mgrs[i] = mgr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("spawnCluster() failed: %v", err)
	}
	for _, mgr := range mgrs {
		t.Cleanup(func() { _ = mgr.Close() })
	}
	return mgrs
}

func TestManager_DefaultScopeExistsAfterStart(t *testing.T) {
	mgr := newTestManager(t)

	found := false
	for _, s := range mgr.Scopes() {
		if s == types.DefaultScope {
			found = true
		}
	}
	if !found {
		t.Fatal("default scope should exist after Start")
	}
}

func TestManager_NewScopeAndScopeExists(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.NewScope("rooms"); err != nil {
		t.Fatalf("NewScope() failed: %v", err)
	}
	if err := mgr.NewScope("rooms"); err != types.ErrScopeExists {
		t.Errorf("NewScope() on existing scope = %v, want ErrScopeExists", err)
	}
}

func TestManager_UnknownScopePanics(t *testing.T) {
	mgr := newTestManager(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for an unknown scope")
		}
	}()
	mgr.Lookup("no-such-scope", "name")
}

func TestManager_RegisterLookupUnregister(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	pid := mgr.Spawn()
	if _, _, err := mgr.RegisterDefault(ctx, "worker-1", pid, "meta"); err != nil {
		t.Fatalf("RegisterDefault() failed: %v", err)
	}

	reg, ok := mgr.LookupDefault("worker-1")
	if !ok || !reg.Pid.Equal(pid) {
		t.Fatalf("LookupDefault() = %+v, %v, want pid=%v", reg, ok, pid)
	}

	if err := mgr.UnregisterDefault(ctx, "worker-1"); err != nil {
		t.Fatalf("UnregisterDefault() failed: %v", err)
	}
	if _, ok := mgr.LookupDefault("worker-1"); ok {
		t.Error("name should be gone after Unregister")
	}
}

func TestManager_RegisterTakenName(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	pid1 := mgr.Spawn()
	pid2 := mgr.Spawn()

	if _, _, err := mgr.RegisterDefault(ctx, "singleton", pid1, nil); err != nil {
		t.Fatalf("first RegisterDefault() failed: %v", err)
	}
	if _, _, err := mgr.RegisterDefault(ctx, "singleton", pid2, nil); err != types.ErrTaken {
		t.Errorf("second RegisterDefault() = %v, want ErrTaken", err)
	}
}

func TestManager_KillRemovesRegistration(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	pid := mgr.Spawn()
	if _, _, err := mgr.RegisterDefault(ctx, "volatile", pid, nil); err != nil {
		t.Fatalf("RegisterDefault() failed: %v", err)
	}

	mgr.Kill(pid)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := mgr.LookupDefault("volatile"); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("registration should be removed after Kill")
}

func TestManager_UnregisterUndefined(t *testing.T) {
	mgr := newTestManager(t)

	if err := mgr.UnregisterDefault(context.Background(), "never-registered"); err != types.ErrUndefined {
		t.Errorf("UnregisterDefault() on an unregistered name = %v, want ErrUndefined", err)
	}
}

func TestManager_JoinAndGetMembers(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	pid1 := mgr.Spawn()
	pid2 := mgr.Spawn()

	if _, err := mgr.JoinDefault(ctx, "room", pid1, "a"); err != nil {
		t.Fatalf("JoinDefault() failed: %v", err)
	}
	if _, err := mgr.JoinDefault(ctx, "room", pid2, "b"); err != nil {
		t.Fatalf("JoinDefault() failed: %v", err)
	}

	members := mgr.GetMembersDefault("room")
	if len(members) != 2 {
		t.Fatalf("GetMembersDefault() returned %d members, want 2", len(members))
	}
}

func TestManager_MonitorsCoalescedAcrossNames(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	pid := mgr.Spawn()
	if _, _, err := mgr.RegisterDefault(ctx, "name-a", pid, nil); err != nil {
		t.Fatalf("RegisterDefault() failed: %v", err)
	}
	if _, _, err := mgr.RegisterDefault(ctx, "name-b", pid, nil); err != nil {
		t.Fatalf("RegisterDefault() failed: %v", err)
	}

	if got := mgr.Monitors(types.DefaultScope, pid); got != 2 {
		t.Errorf("Monitors() = %d, want 2 rows sharing one monitor", got)
	}
}

func TestManager_DumpReflectsState(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	pid := mgr.Spawn()
	if _, _, err := mgr.RegisterDefault(ctx, "dumped", pid, "m"); err != nil {
		t.Fatalf("RegisterDefault() failed: %v", err)
	}

	entries := mgr.Dump(types.DefaultScope)
	if len(entries) != 1 || !entries[0].Pid.Equal(pid) {
		t.Fatalf("Dump() = %+v, want one entry for %v", entries, pid)
	}
}

// TestManager_EventHandlerDispatch exercises WithEventHandler end to end:
// a registered callback must see both the register and the unregister it
// caused, through the public API rather than the scope machine directly.
func TestManager_EventHandlerDispatch(t *testing.T) {
	handler := &spyHandler{}
	mgr := newTestManager(t, WithEventHandler(handler))
	ctx := context.Background()

	pid := mgr.Spawn()
	if _, _, err := mgr.RegisterDefault(ctx, "watched", pid, nil); err != nil {
		t.Fatalf("RegisterDefault() failed: %v", err)
	}
	if !handler.sawRegistered("watched") {
		t.Error("OnProcessRegistered was not invoked for a successful register")
	}

	if err := mgr.UnregisterDefault(ctx, "watched"); err != nil {
		t.Fatalf("UnregisterDefault() failed: %v", err)
	}
	if !handler.sawUnregistered("watched") {
		t.Error("OnProcessUnregistered was not invoked for a successful unregister")
	}
}

// TestManager_EventHandlerResolvesConflictToIncoming drives the custom
// ResolveRegistryConflict path: a handler that always picks the incoming
// side should end up with the original local pid evicted, through the
// public API's replicated register path across two Managers.
func TestManager_EventHandlerResolvesConflictToIncoming(t *testing.T) {
	network := transport.NewNetwork()

	handler := &spyHandler{
		resolve: func(_ types.Scope, _ types.Name, incoming, _ interfaces.ConflictSide) types.Pid {
			return incoming.Pid
		},
	}
	a := newTestManager(t, WithNetwork(network), WithEventHandler(handler))
	b := newTestManager(t, WithNetwork(network))

	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	pidA := a.Spawn()
	pidB := b.Spawn()

	if _, _, err := a.RegisterDefault(ctx, "contested", pidA, nil); err != nil {
		t.Fatalf("a register failed: %v", err)
	}
	if _, _, err := b.RegisterDefault(ctx, "contested", pidB, nil); err != nil {
		t.Fatalf("b register failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if reg, ok := a.LookupDefault("contested"); ok && reg.Pid.Equal(pidB) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("a's resolver always favoring incoming should converge on b's pid")
}

// TestManager_TwoNodeCluster exercises register-on-remote-owner plus the
// eventual-convergence purge path end to end, across two Managers sharing
// a simulated Network (spec.md §8's multi-node scenarios).
func TestManager_TwoNodeCluster(t *testing.T) {
	network := transport.NewNetwork()

	a := newTestManager(t, WithNetwork(network))
	b := newTestManager(t, WithNetwork(network))

	// Give discovery/ACK_SYNC a moment to converge membership on both sides.
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	pidOnB := b.Spawn()

	if _, _, err := a.RegisterDefault(ctx, "remote-worker", pidOnB, "meta"); err != nil {
		t.Fatalf("register via remote owner failed: %v", err)
	}

	regOnB, ok := b.LookupDefault("remote-worker")
	if !ok || !regOnB.Pid.Equal(pidOnB) {
		t.Fatalf("owner node should see the registration locally, got %+v, %v", regOnB, ok)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if regOnA, ok := a.LookupDefault("remote-worker"); ok && regOnA.Pid.Equal(pidOnB) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("requester should observe its own remote registration (read-your-writes)")
}

// TestManager_MultiNodeClusterConverges brings up a cluster larger than two
// nodes via spawnCluster, registers one name per node concurrently, and
// checks every node's anti-entropy eventually converges on seeing all of
// them (spec.md §8's multi-node scenarios, generalized past the pairwise
// case the other tests in this file exercise).
func TestManager_MultiNodeClusterConverges(t *testing.T) {
	const clusterSize = 4

	network := transport.NewNetwork()
	mgrs := spawnCluster(t, network, clusterSize)

	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	names := make([]types.Name, clusterSize)
	g, gctx := errgroup.WithContext(ctx)
	for i, mgr := range mgrs {
		i, mgr := i, mgr
		name := fmt.Sprintf("node-%d-worker", i)
		names[i] = name
		g.Go(func() error {
			_, _, err := mgr.RegisterDefault(gctx, name, mgr.Spawn(), nil)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent RegisterDefault across the cluster failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		converged := true
		for _, mgr := range mgrs {
			for _, name := range names {
				if _, ok := mgr.LookupDefault(name); !ok {
					converged = false
				}
			}
		}
		if converged {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("every node should eventually see every other node's registration")
}

// TestManager_ConcurrentBidirectionalRegisterNoDeadlock drives both nodes'
// run loops into broadcasting a SyncRegisterMsg to each other at the same
// moment. A synchronous fire-and-forget Send would have each loop blocked
// delivering to the other's equally-blocked loop; run under -race this also
// exercises the per-peer send queues concurrently with Call traffic.
func TestManager_ConcurrentBidirectionalRegisterNoDeadlock(t *testing.T) {
	network := transport.NewNetwork()

	a := newTestManager(t, WithNetwork(network))
	b := newTestManager(t, WithNetwork(network))

	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	pidA := a.Spawn()
	pidB := b.Spawn()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, _, err := a.RegisterDefault(ctx, "on-a", pidA, nil); err != nil {
				t.Errorf("a's RegisterDefault() failed: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, _, err := b.RegisterDefault(ctx, "on-b", pidB, nil); err != nil {
				t.Errorf("b's RegisterDefault() failed: %v", err)
			}
		}()
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent bidirectional register deadlocked instead of returning")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, sawOnA := a.LookupDefault("on-b")
		_, sawOnB := b.LookupDefault("on-a")
		if sawOnA && sawOnB {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("each node should converge on seeing the other's registration")
}
