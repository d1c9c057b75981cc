package registry

import (
	"github.com/dep2p/go-registry/config"
	"github.com/dep2p/go-registry/internal/transport"
	"github.com/dep2p/go-registry/pkg/interfaces"
	"github.com/dep2p/go-registry/pkg/types"
)

// managerConfig collects every option a Manager can be built with before
// the fx.App is assembled. Mirrors the teacher's functional-options +
// private nodeConfig pattern (dep2p-go-dep2p's node.go).
type managerConfig struct {
	config   *config.Config
	handler  interfaces.EventHandler
	network  *transport.Network
	nodeID   types.NodeID
	fxLogger bool
}

func defaultManagerConfig() *managerConfig {
	return &managerConfig{
		config: config.NewConfig(),
		nodeID: types.NewNodeID(),
	}
}

// Option configures a Manager at construction time.
type Option func(*managerConfig)

// WithConfig overrides the default configuration tree.
func WithConfig(cfg *config.Config) Option {
	return func(mc *managerConfig) { mc.config = cfg }
}

// WithEventHandler installs the user callbacks (on_process_registered,
// on_process_unregistered, resolve_registry_conflict) every scope this
// Manager creates will dispatch to.
func WithEventHandler(handler interfaces.EventHandler) Option {
	return func(mc *managerConfig) { mc.handler = handler }
}

// WithNetwork joins this Manager onto an existing simulated Network rather
// than a fresh, single-node one. Multiple Managers sharing a Network form
// a simulated cluster, per cmd/registryd.
func WithNetwork(network *transport.Network) Option {
	return func(mc *managerConfig) { mc.network = network }
}

// WithNodeID fixes the NodeID a Manager identifies itself as, instead of
// generating a random one. Mainly useful for reproducible tests and logs.
func WithNodeID(id types.NodeID) Option {
	return func(mc *managerConfig) { mc.nodeID = id }
}

// WithFxLogger enables fx's own startup/shutdown logging, which is silenced
// by default (fx events go to an fxevent.ZapLogger wrapping zap.NewNop();
// see buildFxApp).
func WithFxLogger() Option {
	return func(mc *managerConfig) { mc.fxLogger = true }
}
