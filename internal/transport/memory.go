// Package transport implements an in-process Transport used to wire
// multiple simulated nodes together without a real network stack.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/lib/log"
	"github.com/dep2p/go-registry/pkg/types"
)

var logger = log.Logger("transport/memory")

// ErrHandlerNotFound is returned by Send/Call when the target node has no
// handler registered for the requested process name.
var ErrHandlerNotFound = errors.New("no handler registered for process")

// ============================================================================
//                              Network
// ============================================================================

// Network is the shared hub every Memory transport in a simulated cluster
// joins. It tracks which nodes are currently live and fans out NodeUp/
// NodeDown events and cross-node DOWN notifications.
type Network struct {
	mu    sync.RWMutex
	nodes map[types.NodeID]*Memory

	nodeSubs   map[types.NodeID]chan types.NodeEvent
	actorMon   map[types.NodeID][]chan types.DownEvent // handles monitored per owning node
	actorMonMu sync.Mutex
}

// NewNetwork creates an empty Network.
func NewNetwork() *Network {
	return &Network{
		nodes:    make(map[types.NodeID]*Memory),
		nodeSubs: make(map[types.NodeID]chan types.NodeEvent),
		actorMon: make(map[types.NodeID][]chan types.DownEvent),
	}
}

// NewNode creates a Memory transport for node and joins it to the network,
// broadcasting NodeUp to every other currently-live transport.
func (n *Network) NewNode(node types.NodeID) *Memory {
	m := &Memory{
		network:  n,
		node:     node,
		handlers: make(map[string]interfaces.MessageHandler),
		events:   make(chan types.NodeEvent, 64),
		queues:   make(map[types.NodeID]chan sendJob),
	}

	n.mu.Lock()
	n.nodes[node] = m
	n.nodeSubs[node] = m.events
	peers := n.peerSnapshotLocked(node)
	n.mu.Unlock()

	n.broadcast(types.NodeEvent{Kind: types.NodeUp, Node: node, At: types.NowTime()}, node)

	logger.Info("node joined network", "node", node.ShortString(), "peers", len(peers))
	return m
}

func (n *Network) peerSnapshotLocked(exclude types.NodeID) []types.NodeID {
	peers := make([]types.NodeID, 0, len(n.nodes))
	for id := range n.nodes {
		if !id.Equal(exclude) {
			peers = append(peers, id)
		}
	}
	return peers
}

// broadcast delivers evt to every subscriber except excluded.
func (n *Network) broadcast(evt types.NodeEvent, excluded types.NodeID) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for id, ch := range n.nodeSubs {
		if id.Equal(excluded) {
			continue
		}
		select {
		case ch <- evt:
		default:
			logger.Warn("dropping node event, subscriber buffer full", "node", id.ShortString())
		}
	}
}

func (n *Network) transportFor(node types.NodeID) (*Memory, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	m, ok := n.nodes[node]
	return m, ok
}

func (n *Network) removeNode(node types.NodeID) {
	n.mu.Lock()
	delete(n.nodes, node)
	if ch, ok := n.nodeSubs[node]; ok {
		delete(n.nodeSubs, node)
		close(ch)
	}
	n.mu.Unlock()

	n.broadcast(types.NodeEvent{Kind: types.NodeDown, Node: node, At: types.NowTime()}, node)

	n.actorMonMu.Lock()
	chans := n.actorMon[node]
	delete(n.actorMon, node)
	n.actorMonMu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- types.DownEvent{Reason: types.DownNodeLost, At: types.NowTime()}:
		default:
		}
		close(ch)
	}
}

func (n *Network) monitorNode(target types.NodeID) <-chan types.DownEvent {
	ch := make(chan types.DownEvent, 1)

	n.mu.RLock()
	_, live := n.nodes[target]
	n.mu.RUnlock()

	if !live {
		ch <- types.DownEvent{Reason: types.DownNodeLost, At: types.NowTime()}
		close(ch)
		return ch
	}

	n.actorMonMu.Lock()
	n.actorMon[target] = append(n.actorMon[target], ch)
	n.actorMonMu.Unlock()

	return ch
}

// ============================================================================
//                              Memory
// ============================================================================

// Memory implements interfaces.Transport over a shared Network, delivering
// Call by direct synchronous invocation and Send by queuing onto a
// per-destination worker, rather than over a wire.
type Memory struct {
	network *Network
	node    types.NodeID

	mu       sync.RWMutex
	handlers map[string]interfaces.MessageHandler

	events chan types.NodeEvent
	closed bool

	sendMu sync.Mutex
	queues map[types.NodeID]chan sendJob
	sendWg sync.WaitGroup
}

// sendJob is one queued fire-and-forget delivery.
type sendJob struct {
	ctx    context.Context
	handle types.ActorHandle
	msg    any
}

const sendQueueDepth = 256

var _ interfaces.Transport = (*Memory)(nil)

// LocalNode implements interfaces.Transport.
func (m *Memory) LocalNode() types.NodeID {
	return m.node
}

// Peers implements interfaces.Transport.
func (m *Memory) Peers() []types.NodeID {
	m.network.mu.RLock()
	defer m.network.mu.RUnlock()
	return m.network.peerSnapshotLocked(m.node)
}

// Handle implements interfaces.Transport.
func (m *Memory) Handle(processName string, handler interfaces.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[processName] = handler
}

// Send implements interfaces.Transport. Call runs the target's handler
// synchronously on the caller's goroutine, which would block a broadcasting
// actor's own run loop for a full round trip to its peer; two nodes
// broadcasting to each other at the same time would then deadlock, each
// loop blocked delivering to the other's equally-blocked loop. Send instead
// queues the delivery onto a worker dedicated to handle.Node and returns
// immediately, preserving the per-pair FIFO order interfaces.Transport
// documents without ever blocking the caller on the peer's run loop.
func (m *Memory) Send(ctx context.Context, handle types.ActorHandle, msg any) error {
	q := m.queueFor(handle.Node)
	if q == nil {
		return nil // closed; fire-and-forget has no one left to report to
	}
	select {
	case q <- sendJob{ctx: ctx, handle: handle, msg: msg}:
	default:
		logger.Warn("dropping fire-and-forget send, peer queue full", "node", handle.Node.ShortString())
	}
	return nil
}

// queueFor returns the worker queue dedicated to node, creating and
// starting its drain goroutine on first use. Returns nil once Close has
// been called.
func (m *Memory) queueFor(node types.NodeID) chan sendJob {
	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	if m.closed {
		return nil
	}
	if q, ok := m.queues[node]; ok {
		return q
	}
	q := make(chan sendJob, sendQueueDepth)
	m.queues[node] = q
	m.sendWg.Add(1)
	go m.drainQueue(q)
	return q
}

// drainQueue delivers every queued job to its destination in order,
// one at a time, until the queue is closed.
func (m *Memory) drainQueue(q chan sendJob) {
	defer m.sendWg.Done()
	for job := range q {
		if _, err := m.Call(job.ctx, job.handle, job.msg); err != nil {
			logger.Debug("async send failed", "node", job.handle.Node.ShortString(), "error", err)
		}
	}
}

// Call implements interfaces.Transport.
func (m *Memory) Call(ctx context.Context, handle types.ActorHandle, req any) (any, error) {
	target, ok := m.network.transportFor(handle.Node)
	if !ok {
		return nil, types.ErrPeerUnreachable
	}

	target.mu.RLock()
	handler, ok := target.handlers[handle.ProcessName]
	target.mu.RUnlock()
	if !ok {
		return nil, ErrHandlerNotFound
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return handler(ctx, m.node, req)
}

// MonitorActor implements interfaces.Transport. It monitors handle's owning
// node rather than the individual process: in this in-memory simulation a
// node going down is the only death a remote observer can detect.
func (m *Memory) MonitorActor(handle types.ActorHandle) (<-chan types.DownEvent, error) {
	if handle.Node.IsEmpty() {
		return nil, types.ErrProcessNotFound
	}
	return m.network.monitorNode(handle.Node), nil
}

// Subscribe implements interfaces.Transport.
func (m *Memory) Subscribe() <-chan types.NodeEvent {
	return m.events
}

// Close implements interfaces.Transport.
func (m *Memory) Close() error {
	m.sendMu.Lock()
	if m.closed {
		m.sendMu.Unlock()
		return nil
	}
	m.closed = true
	queues := m.queues
	m.queues = make(map[types.NodeID]chan sendJob)
	m.sendMu.Unlock()

	for _, q := range queues {
		close(q)
	}

	m.network.removeNode(m.node)
	m.sendWg.Wait()
	logger.Info("node left network", "node", m.node.ShortString())
	return nil
}
