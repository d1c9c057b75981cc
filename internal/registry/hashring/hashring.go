// Package hashring provides a best-effort consistent-hashing hint for
// which node should own a given (scope, name) pair.
//
// The hint is advisory only: the registry's actual ownership rule is
// "the node the pid runs on" (types.Pid.Node), not hash-based placement, so
// nothing in the core state machine depends on Hint's answer. It exists
// for callers that want to pick a preferred node before calling register
// (e.g. to spread load), matching the optional placement-hint role
// consistent hashing plays in sharded systems, without becoming a source
// of truth the registry itself must agree on.
package hashring

import (
	"fmt"

	"github.com/lafikl/consistent"

	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/pkg/types"
)

// Ring wraps a consistent-hashing ring keyed by node ID string.
type Ring struct {
	enabled bool
	nodes   *consistent.Consistent
}

// New creates a Ring. If cfg disables hashring hints, Hint always returns
// ErrDisabled rather than doing any hashing work.
func New(cfg config.HashringConfig) *Ring {
	return &Ring{
		enabled: cfg.Enabled,
		nodes:   consistent.New(),
	}
}

// ErrDisabled is returned by Hint when the ring is configured off.
var ErrDisabled = fmt.Errorf("hashring disabled")

// AddNode adds node to the ring.
func (r *Ring) AddNode(node types.NodeID) {
	if !r.enabled {
		return
	}
	r.nodes.Add(node.String())
}

// RemoveNode removes node from the ring.
func (r *Ring) RemoveNode(node types.NodeID) {
	if !r.enabled {
		return
	}
	r.nodes.Remove(node.String())
}

// Hint returns the node the ring would place (scope, name) on.
func (r *Ring) Hint(scope types.Scope, name types.Name) (types.NodeID, error) {
	if !r.enabled {
		return types.EmptyNodeID, ErrDisabled
	}

	key := fmt.Sprintf("%s/%v", scope, name)
	nodeStr, err := r.nodes.Get(key)
	if err != nil {
		return types.EmptyNodeID, err
	}

	return types.ParseNodeID(nodeStr)
}

// Nodes returns the set of node IDs currently on the ring.
func (r *Ring) Nodes() []string {
	if !r.enabled {
		return nil
	}
	return r.nodes.Hosts()
}
