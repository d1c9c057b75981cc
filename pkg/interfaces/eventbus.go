// Package interfaces - EventBus defines the node-up/node-down
// notification surface a scope actor subscribes to instead of depending
// directly on Transport (spec.md §4.1).
package interfaces

import "github.com/dep2p/go-registry/pkg/types"

// EventBus fans membership's single NodeEvent emitter out to any number
// of subscribers, one per scope actor on this node.
type EventBus interface {
	// Subscribe returns a new subscription to every NodeEvent emitted
	// from this point on.
	Subscribe() (Subscription, error)

	// Emitter returns the bus's NodeEvent emitter.
	Emitter() (Emitter, error)
}

// Subscription is a live subscription to NodeEvents.
type Subscription interface {
	// Out returns the channel NodeEvents are delivered on.
	Out() <-chan types.NodeEvent

	// Close cancels the subscription.
	Close() error
}

// Emitter publishes NodeEvents to every current subscriber.
type Emitter interface {
	// Emit publishes event to every current subscriber.
	Emit(event types.NodeEvent) error

	// Close releases the emitter.
	Close() error
}
