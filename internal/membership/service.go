package membership

import (
	"context"
	"sync"

	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/lib/log"
	"github.com/dep2p/go-registry/pkg/types"
)

var logger = log.Logger("membership")

// Service republishes a Transport's raw node-up/node-down channel onto
// the event bus as typed types.NodeEvent values, and keeps a snapshot of
// which nodes are currently considered up. A scope actor subscribes to
// the bus rather than depending on Transport directly, per spec.md §4.1.
type Service struct {
	transport interfaces.Transport
	emitter   interfaces.Emitter

	mu   sync.RWMutex
	live map[types.NodeID]struct{}

	done chan struct{}
	wg   sync.WaitGroup
}

// NewService creates a Service. It does not start consuming events until
// Start is called.
func NewService(transport interfaces.Transport, bus interfaces.EventBus) (*Service, error) {
	emitter, err := bus.Emitter()
	if err != nil {
		return nil, err
	}

	return &Service{
		transport: transport,
		emitter:   emitter,
		live:      make(map[types.NodeID]struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start subscribes to the transport's membership channel and begins
// republishing events on the bus.
func (s *Service) Start(_ context.Context) error {
	events := s.transport.Subscribe()
	for _, node := range s.transport.Peers() {
		s.live[node] = struct{}{}
	}

	s.wg.Add(1)
	go s.run(events)
	return nil
}

// Stop stops consuming transport events and releases the emitter.
func (s *Service) Stop(_ context.Context) error {
	close(s.done)
	s.wg.Wait()
	return s.emitter.Close()
}

func (s *Service) run(events <-chan types.NodeEvent) {
	defer s.wg.Done()
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			s.apply(evt)
			if err := s.emitter.Emit(evt); err != nil {
				logger.Warn("failed to emit node event", "node", evt.Node, "kind", evt.Kind, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

func (s *Service) apply(evt types.NodeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch evt.Kind {
	case types.NodeUp:
		s.live[evt.Node] = struct{}{}
	case types.NodeDown:
		delete(s.live, evt.Node)
	}
}

// Peers returns every node currently considered up.
func (s *Service) Peers() []types.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.NodeID, 0, len(s.live))
	for node := range s.live {
		out = append(out, node)
	}
	return out
}

// IsUp reports whether node is currently considered up.
func (s *Service) IsUp(node types.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live[node]
	return ok
}
