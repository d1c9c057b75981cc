// Package eventbus is an in-process fan-out of cluster membership
// NodeEvents: membership.Service holds the bus's one Emitter, and each
// scope actor holds its own Subscribe call, so neither depends on the
// other directly (spec.md §4.1).
package eventbus

import (
	"errors"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/lib/log"
	"github.com/dep2p/go-registry/pkg/types"
)

var logger = log.Logger("core/eventbus")

// ErrClosed is returned by Emit once the emitter has been closed.
var ErrClosed = errors.New("eventbus: emitter closed")

// subscriberBuffer bounds how many NodeEvents a slow subscriber may fall
// behind before further events are dropped for it rather than blocking
// the emitter.
const subscriberBuffer = 16

// Bus fans out NodeEvents to any number of subscribers.
type Bus struct {
	mu        sync.Mutex
	subs      []*Subscription
	dropCount atomic.Int64
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe implements interfaces.EventBus.
func (b *Bus) Subscribe() (pkgif.Subscription, error) {
	sub := &Subscription{bus: b, out: make(chan types.NodeEvent, subscriberBuffer)}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return sub, nil
}

// Emitter implements interfaces.EventBus. There is exactly one NodeEvent
// publisher per bus (membership.Service), so this needs no emitter
// refcounting: Emitter just hands back a handle onto the bus.
func (b *Bus) Emitter() (pkgif.Emitter, error) {
	return &Emitter{bus: b}, nil
}

func (b *Bus) emit(event types.NodeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.out <- event:
		default:
			dropped := b.dropCount.Add(1)
			if dropped%100 == 1 {
				logger.Warn("slow consumer detected", "dropped", dropped, "reason", "subscriber buffer full")
			}
		}
	}
}

func (b *Bus) removeSub(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
