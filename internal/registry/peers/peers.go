// Package peers tracks a scope actor's view of remote peer actors: which
// nodes are currently reachable, plus a bounded cache of snapshot
// fingerprints (MarkSeen) for recognising a duplicate ACK_SYNC. The scope
// actor does not call MarkSeen; it applies every ACK_SYNC it receives.
package peers

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-registry/pkg/types"
)

// Map holds one scope actor's peers: map<Node, RemoteActorHandle> plus a
// bounded cache of recently-applied snapshot fingerprints.
type Map struct {
	live map[types.NodeID]types.ActorHandle

	// seen bounds how many (peer, snapshot generation) fingerprints are
	// remembered, so a restarted peer's ACK_SYNC is never silently
	// swallowed by an unbounded cache.
	seen *lru.Cache[string, struct{}]
}

// New creates a Map whose snapshot cache holds at most size fingerprints.
func New(size int) *Map {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		// size is validated by config.PeersConfig.Validate before this
		// constructor ever runs.
		panic(err)
	}

	return &Map{
		live: make(map[types.NodeID]types.ActorHandle),
		seen: cache,
	}
}

// Add records handle as reachable, returning whether it was not already
// known (the scope actor installs a liveness monitor only for new peers).
func (m *Map) Add(handle types.ActorHandle) bool {
	_, existed := m.live[handle.Node]
	m.live[handle.Node] = handle
	return !existed
}

// Remove drops node from the live set.
func (m *Map) Remove(node types.NodeID) {
	delete(m.live, node)
}

// Handle returns the registered handle for node, if known.
func (m *Map) Handle(node types.NodeID) (types.ActorHandle, bool) {
	h, ok := m.live[node]
	return h, ok
}

// Nodes returns every currently-live peer node.
func (m *Map) Nodes() []types.NodeID {
	out := make([]types.NodeID, 0, len(m.live))
	for node := range m.live {
		out = append(out, node)
	}
	return out
}

// Handles returns every currently-live peer handle.
func (m *Map) Handles() []types.ActorHandle {
	out := make([]types.ActorHandle, 0, len(m.live))
	for _, h := range m.live {
		out = append(out, h)
	}
	return out
}

// MarkSeen records fingerprint as applied, evicting the least-recently-used
// fingerprint if the cache is at capacity. Returns true if fingerprint was
// not already present.
func (m *Map) MarkSeen(fingerprint string) bool {
	if _, ok := m.seen.Get(fingerprint); ok {
		return false
	}
	m.seen.Add(fingerprint, struct{}{})
	return true
}
