// Package scope implements the per-scope actors: the registry and groups
// state machines, and the discovery/peer-tracking/broadcast mesh they
// share, per spec.md §4.1-4.4.
package scope

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-registry/internal/registry/peers"
	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/lib/log"
	"github.com/dep2p/go-registry/pkg/types"
)

var logger = log.Logger("registry/scope")

// kind names which state machine an actor runs, used to derive its
// process name ("<handler>_<scope>" per spec.md §4.1).
type kind string

const (
	kindRegistry kind = "registry"
	kindGroups   kind = "groups"
)

// machine is the domain logic an actor delegates to. registryMachine and
// groupsMachine both implement it.
type machine interface {
	// localSnapshot returns this node's get_local_data projection, sent
	// as the payload of an ACK_SYNC.
	localSnapshot() any

	// applySnapshot treats every row of a received ACK_SYNC snapshot as
	// a SYNC_REGISTER/SYNC_JOIN.
	applySnapshot(data any)

	// handleMessage handles any inbound message besides DISCOVER/ACK_SYNC
	// (both API request/reply calls and SYNC_* broadcasts), returning a
	// reply for the former and nil for the latter.
	handleMessage(from types.NodeID, msg any) (any, error)

	// onDown handles a DownEvent for a locally-monitored pid.
	onDown(evt types.DownEvent)

	// purgeNode removes every row owned by node. The registry machine
	// fires the unregister callback for each removed row from a separate
	// goroutine, off the actor's loop; the groups machine fires none.
	purgeNode(node types.NodeID)

	// rebuildMonitors re-establishes monitors for every local row,
	// dropping rows whose pid is no longer alive. Run once at startup.
	rebuildMonitors()
}

// ============================================================================
//                              actor engine
// ============================================================================

type actorJob struct {
	fn    func() (any, error)
	reply chan actorResult
}

type actorResult struct {
	val any
	err error
}

// actor is the single-threaded event loop shared by the registry and
// groups state machines for one scope: it owns discovery, peer tracking
// and broadcast, and serializes every mutation through its mailbox.
type actor struct {
	scope       types.Scope
	kind        kind
	processName string

	transport interfaces.Transport
	bus       interfaces.EventBus
	liveness  interfaces.Liveness

	machine machine

	// peers is only ever touched from the run loop (directly, or via a
	// submitted job), so it needs no lock of its own.
	peers      *peers.Map
	peerDown   chan types.NodeID
	pidDown    chan types.DownEvent
	nodeEvents interfaces.Subscription

	reannounceInterval time.Duration

	mailbox chan actorJob
	done    chan struct{}
	wg      sync.WaitGroup
}

func newActor(scopeName types.Scope, k kind, transport interfaces.Transport, bus interfaces.EventBus, liveness interfaces.Liveness, peerCacheSize int, reannounceInterval time.Duration) *actor {
	return &actor{
		scope:              scopeName,
		kind:               k,
		processName:        fmt.Sprintf("%s_%s", k, scopeName),
		transport:          transport,
		bus:                bus,
		liveness:           liveness,
		peers:              peers.New(peerCacheSize),
		peerDown:           make(chan types.NodeID, 16),
		pidDown:            make(chan types.DownEvent, 16),
		reannounceInterval: reannounceInterval,
		mailbox:            make(chan actorJob),
		done:               make(chan struct{}),
	}
}

// selfHandle returns this actor's own ActorHandle.
func (a *actor) selfHandle() types.ActorHandle {
	return types.ActorHandle{Node: a.transport.LocalNode(), ProcessName: a.processName}
}

// submit enqueues fn to run inside the actor loop and blocks for its
// result. Used by every mutating API call (register/unregister/join) and
// by inbound message handlers.
func (a *actor) submit(fn func() (any, error)) (any, error) {
	reply := make(chan actorResult, 1)
	select {
	case a.mailbox <- actorJob{fn: fn, reply: reply}:
	case <-a.done:
		return nil, types.ErrActorStopped
	}
	select {
	case res := <-reply:
		return res.val, res.err
	case <-a.done:
		return nil, types.ErrActorStopped
	}
}

// start wires the transport handler, subscribes to membership events,
// rebuilds monitors, and launches the run loop.
func (a *actor) start(ctx context.Context) error {
	a.transport.Handle(a.processName, a.inboundHandler)

	sub, err := a.bus.Subscribe()
	if err != nil {
		return err
	}
	a.nodeEvents = sub

	a.machine.rebuildMonitors()

	a.wg.Add(1)
	go a.run()

	for _, node := range a.transport.Peers() {
		a.sendDiscover(node)
	}

	return nil
}

// stop halts the run loop and releases the membership subscription.
func (a *actor) stop(_ context.Context) error {
	close(a.done)
	a.wg.Wait()
	return a.nodeEvents.Close()
}

func (a *actor) run() {
	defer a.wg.Done()

	var tick <-chan time.Time
	if a.reannounceInterval > 0 {
		ticker := time.NewTicker(a.reannounceInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case job := <-a.mailbox:
			v, err := job.fn()
			job.reply <- actorResult{val: v, err: err}

		case evt := <-a.pidDown:
			a.machine.onDown(evt)

		case node := <-a.peerDown:
			a.handlePeerDown(node)

		case evt, ok := <-a.nodeEvents.Out():
			if !ok {
				return
			}
			a.handleNodeEvent(evt)

		case <-tick:
			for _, node := range a.transport.Peers() {
				a.sendDiscover(node)
			}

		case <-a.done:
			return
		}
	}
}

// ============================================================================
//                              discovery
// ============================================================================

func (a *actor) handleNodeEvent(evt types.NodeEvent) {
	if evt.Kind != types.NodeUp {
		// NodeDown is informational only; the authoritative signal is
		// the monitor DOWN on the peer's actor handle.
		return
	}
	a.sendDiscover(evt.Node)
}

func (a *actor) sendDiscover(node types.NodeID) {
	if node.Equal(a.transport.LocalNode()) {
		return
	}
	handle := types.ActorHandle{Node: node, ProcessName: a.processName}
	msg := types.DiscoverMsg{Version: types.ProtocolVersion, Sender: a.selfHandle()}
	if err := a.transport.Send(context.Background(), handle, msg); err != nil {
		logger.Debug("discover send failed", "node", node.ShortString(), "error", err)
	}
}

// inboundHandler is installed with Transport.Handle and routes every
// message addressed to this actor through the mailbox, so handling is
// always serialized with local API mutations.
func (a *actor) inboundHandler(ctx context.Context, from types.NodeID, msg any) (any, error) {
	return a.submit(func() (any, error) {
		return a.dispatch(ctx, from, msg)
	})
}

func (a *actor) dispatch(_ context.Context, from types.NodeID, msg any) (any, error) {
	switch m := msg.(type) {
	case types.DiscoverMsg:
		a.onDiscover(m)
		return nil, nil
	case types.AckSyncMsg:
		a.onAckSync(m)
		return nil, nil
	default:
		return a.machine.handleMessage(from, msg)
	}
}

func (a *actor) onDiscover(msg types.DiscoverMsg) {
	a.recordPeer(msg.Sender)
	ack := types.AckSyncMsg{Version: types.ProtocolVersion, Sender: a.selfHandle()}
	a.fillSnapshot(&ack)
	if err := a.transport.Send(context.Background(), msg.Sender, ack); err != nil {
		logger.Debug("ack_sync send failed", "node", msg.Sender.Node.ShortString(), "error", err)
	}
}

func (a *actor) onAckSync(msg types.AckSyncMsg) {
	isNew := a.recordPeer(msg.Sender)
	a.machine.applySnapshot(a.extractSnapshot(msg))

	if isNew {
		// Both sides converge even if the original DISCOVER was lost in
		// one direction.
		reply := types.AckSyncMsg{Version: types.ProtocolVersion, Sender: a.selfHandle()}
		a.fillSnapshot(&reply)
		if err := a.transport.Send(context.Background(), msg.Sender, reply); err != nil {
			logger.Debug("ack_sync reply failed", "node", msg.Sender.Node.ShortString(), "error", err)
		}
	}
}

// fillSnapshot and extractSnapshot switch on a.kind, since AckSyncMsg
// carries one of two payload shapes
// depending on which state machine owns this actor.
func (a *actor) fillSnapshot(msg *types.AckSyncMsg) {
	switch a.kind {
	case kindRegistry:
		msg.RegistryRows, _ = a.machine.localSnapshot().([]types.RegistrySnapshotRow)
	case kindGroups:
		msg.GroupRows, _ = a.machine.localSnapshot().([]types.GroupSnapshotRow)
	}
}

func (a *actor) extractSnapshot(msg types.AckSyncMsg) any {
	switch a.kind {
	case kindRegistry:
		return msg.RegistryRows
	case kindGroups:
		return msg.GroupRows
	default:
		return nil
	}
}

// recordPeer records handle as reachable, installing a liveness monitor
// on first sight, and returns whether it was newly discovered.
func (a *actor) recordPeer(handle types.ActorHandle) bool {
	isNew := a.peers.Add(handle)
	if !isNew {
		return false
	}

	ch, err := a.transport.MonitorActor(handle)
	if err != nil {
		logger.Warn("failed to monitor peer actor", "node", handle.Node.ShortString(), "error", err)
		return true
	}
	go a.watchPeer(handle.Node, ch)
	return true
}

func (a *actor) watchPeer(node types.NodeID, ch <-chan types.DownEvent) {
	select {
	case <-ch:
		select {
		case a.peerDown <- node:
		case <-a.done:
		}
	case <-a.done:
	}
}

// watchPid forwards the one DownEvent a pid monitor will ever deliver into
// the actor's own pidDown queue, so machine.onDown always runs on the
// actor's single-threaded loop regardless of how many actors monitor the
// same pid independently.
func (a *actor) watchPid(ch <-chan types.DownEvent) {
	select {
	case evt := <-ch:
		select {
		case a.pidDown <- evt:
		case <-a.done:
		}
	case <-a.done:
	}
}

func (a *actor) handlePeerDown(node types.NodeID) {
	a.peers.Remove(node)
	a.machine.purgeNode(node)
}

// broadcast fire-and-forgets msg to every known peer except excluded.
func (a *actor) broadcast(msg any, excluded types.NodeID) {
	for _, handle := range a.peers.Handles() {
		if handle.Node.Equal(excluded) {
			continue
		}
		if err := a.transport.Send(context.Background(), handle, msg); err != nil {
			logger.Debug("broadcast send failed", "node", handle.Node.ShortString(), "error", err)
		}
	}
}
