// Package liveness tracks which locally-hosted pids are alive and fans out
// DownEvent notifications to their monitors.
package liveness

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/pkg/lib/log"
	"github.com/dep2p/go-registry/pkg/types"
)

var logger = log.Logger("core/liveness")

// ErrServiceClosed is returned once the service has been stopped.
var ErrServiceClosed = errors.New("liveness service closed")

// processState tracks one locally-registered pid.
type processState struct {
	alive bool
}

// monitorRef is the opaque handle returned by Monitor. Each call to Monitor
// gets a distinct ref and a distinct delivery channel, even for the same
// pid, so two unrelated watchers never share one notification.
type monitorRef struct {
	pid types.Pid
	id  uint64
	ch  chan types.DownEvent
}

// Service implements interfaces.Liveness.
type Service struct {
	cfg config.LivenessConfig

	mu        sync.Mutex
	processes map[types.Pid]*processState
	watchers  map[types.Pid]map[*monitorRef]chan types.DownEvent
	nextID    uint64

	running int32
	closed  int32
}

// NewService creates a Service from cfg.
func NewService(cfg config.LivenessConfig) *Service {
	return &Service{
		cfg:       cfg,
		processes: make(map[types.Pid]*processState),
		watchers:  make(map[types.Pid]map[*monitorRef]chan types.DownEvent),
	}
}

// Start implements interfaces.Liveness.
func (s *Service) Start(_ context.Context) error {
	atomic.StoreInt32(&s.running, 1)
	logger.Info("liveness service started")
	return nil
}

// Stop implements interfaces.Liveness.
func (s *Service) Stop(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		return nil
	}

	s.mu.Lock()
	s.processes = make(map[types.Pid]*processState)
	s.watchers = make(map[types.Pid]map[*monitorRef]chan types.DownEvent)
	s.mu.Unlock()

	logger.Info("liveness service stopped")
	return nil
}

// Register implements interfaces.Liveness.
func (s *Service) Register(pid types.Pid) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processes[pid]; exists {
		return
	}
	s.processes[pid] = &processState{alive: true}
}

// IsAlive implements interfaces.Liveness.
func (s *Service) IsAlive(pid types.Pid) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.processes[pid]
	return exists && state.alive
}

// Monitor implements interfaces.Liveness.
func (s *Service) Monitor(pid types.Pid) (any, <-chan types.DownEvent, error) {
	if atomic.LoadInt32(&s.closed) == 1 {
		return nil, nil, ErrServiceClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.processes[pid]
	if !exists {
		return nil, nil, types.ErrProcessNotFound
	}
	if !state.alive {
		return nil, nil, types.ErrNotAlive
	}

	s.nextID++
	ch := make(chan types.DownEvent, 1)
	ref := &monitorRef{pid: pid, id: s.nextID, ch: ch}

	set, ok := s.watchers[pid]
	if !ok {
		set = make(map[*monitorRef]chan types.DownEvent)
		s.watchers[pid] = set
	}
	set[ref] = ch

	return ref, ch, nil
}

// Demonitor implements interfaces.Liveness.
func (s *Service) Demonitor(ref any, flush bool) error {
	mref, ok := ref.(*monitorRef)
	if !ok {
		return types.ErrUndefined
	}

	s.mu.Lock()
	var ch chan types.DownEvent
	if set, exists := s.watchers[mref.pid]; exists {
		ch = set[mref]
		delete(set, mref)
		if len(set) == 0 {
			delete(s.watchers, mref.pid)
		}
	}
	s.mu.Unlock()

	if ch == nil {
		// Kill removes the watcher set before delivering, so the ref's own
		// channel may still hold the DOWN it sent.
		ch = mref.ch
	}
	if flush && ch != nil {
		select {
		case <-ch:
		default:
		}
	}
	return nil
}

// Kill implements interfaces.Liveness.
func (s *Service) Kill(pid types.Pid, reason types.DownReason, resolveRef *types.ResolveKillInfo) {
	s.mu.Lock()
	state, exists := s.processes[pid]
	if !exists || !state.alive {
		s.mu.Unlock()
		return
	}
	state.alive = false

	watchers := s.watchers[pid]
	delete(s.watchers, pid)
	s.mu.Unlock()

	if len(watchers) == 0 {
		return
	}

	evt := types.DownEvent{
		Pid:        pid,
		Reason:     reason,
		ResolveRef: resolveRef,
		At:         types.NowTime(),
	}

	for ref, ch := range watchers {
		select {
		case ch <- evt:
		default:
			logger.Warn("dropping DOWN event, watcher channel full",
				"pid", pid.String(),
				"monitor", ref.id,
				"reason", reason)
		}
	}
}
