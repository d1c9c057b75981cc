// Package interfaces - Transport defines the inter-node messaging
// collaborator the scope actor depends on but does not implement.
package interfaces

import (
	"context"

	"github.com/dep2p/go-registry/pkg/types"
)

// Transport carries messages between scope actors on different nodes. Per
// spec it is assumed location-transparent (callers address a handle, not a
// socket), per-pair FIFO, best-effort, and reliable only while the two
// endpoints remain connected — it is explicitly not this module's job to
// implement a real network; Memory (internal/transport) is the
// in-memory implementation that satisfies this contract for tests and for
// single-process simulated clusters.
type Transport interface {
	// LocalNode returns the NodeID this transport instance represents.
	LocalNode() types.NodeID

	// Peers returns every other node this transport currently considers
	// visible (i.e. has an open or openable channel to). The scope actor
	// uses this on startup to DISCOVER every visible peer.
	Peers() []types.NodeID

	// Send delivers msg to handle.Node's actor named handle.ProcessName,
	// fire-and-forget, with no acknowledgement and no retry. Used for
	// DISCOVER and every SYNC_* broadcast.
	Send(ctx context.Context, handle types.ActorHandle, msg any) error

	// Call performs a synchronous request/reply to handle, blocking until
	// a reply arrives or the remote is unreachable. Used for register/
	// unregister/join API calls that target a remote owner node.
	Call(ctx context.Context, handle types.ActorHandle, req any) (reply any, err error)

	// Handle installs the handler invoked for every inbound message
	// (Send or Call) addressed to processName on this node. Registering
	// a second handler under the same name replaces the first.
	Handle(processName string, handler MessageHandler)

	// MonitorActor installs a liveness monitor on a remote scope actor
	// handle, delivering exactly one DownEvent (reason DownNodeLost) if
	// that node becomes unreachable. Mirrors the source's "remote
	// monitoring is a subscription on the transport" design note.
	MonitorActor(handle types.ActorHandle) (<-chan types.DownEvent, error)

	// Subscribe returns the channel NodeEvents (node-up/node-down) are
	// delivered on.
	Subscribe() <-chan types.NodeEvent

	// Close shuts the transport down, releasing every monitor and
	// subscription.
	Close() error
}

// MessageHandler processes one inbound message for a named local actor.
// For fire-and-forget Sends the returned value and error are discarded;
// for Calls they become the reply.
type MessageHandler func(ctx context.Context, from types.NodeID, msg any) (reply any, err error)
