// Package eventbus - Subscription and Emitter.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-registry/pkg/types"
)

// ============================================================================
//                              Subscription
// ============================================================================

// Subscription is a live subscription to NodeEvents.
type Subscription struct {
	bus       *Bus
	out       chan types.NodeEvent
	closeOnce sync.Once
}

// Out returns the channel NodeEvents are delivered on.
func (s *Subscription) Out() <-chan types.NodeEvent {
	return s.out
}

// Close cancels the subscription. Safe to call more than once: the
// subscription is removed from the bus before its channel is closed, so
// no send can race the close.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}

// ============================================================================
//                              Emitter
// ============================================================================

// Emitter publishes NodeEvents to every current subscriber.
type Emitter struct {
	bus    *Bus
	closed atomic.Bool
}

// Emit publishes event to every current subscriber.
func (e *Emitter) Emit(event types.NodeEvent) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.bus.emit(event)
	return nil
}

// Close marks the emitter closed. The bus itself lives and dies with its
// owning Manager rather than per-emitter, since a bus has exactly one
// NodeEvent publisher for its whole lifetime.
func (e *Emitter) Close() error {
	e.closed.Store(true)
	return nil
}
