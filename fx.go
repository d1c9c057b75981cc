package registry

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-registry/internal/core/eventbus"
	"github.com/dep2p/go-registry/internal/core/liveness"
	"github.com/dep2p/go-registry/internal/membership"
	"github.com/dep2p/go-registry/internal/registry/hashring"
	"github.com/dep2p/go-registry/internal/registry/metrics"
	"github.com/dep2p/go-registry/internal/transport"
	"github.com/dep2p/go-registry/pkg/interfaces"
)

// buildFxApp assembles every injectable component a Manager needs, following
// dep2p-go-dep2p's fx.go: fx.Supply the resolved config/identity, append one
// Module() per concern, then fx.Invoke(injectManagerComponents) to pull the
// resolved instances back into mgr.
func buildFxApp(mc *managerConfig, mgr *Manager) *fx.App {
	opts := []fx.Option{
		fx.Supply(mc.config),
		fx.Supply(mc.network),
		fx.Supply(mc.nodeID),

		transport.Module(),
		eventbus.Module(),
		liveness.Module(),
		membership.Module(),
		metrics.Module(),
		hashring.Module(),

		fx.Invoke(injectManagerComponents(mgr)),
	}

	// fx's own startup/shutdown event log is routed through zap, exactly as
	// dep2p-go-dep2p's fx.go does, rather than fx's plain NopLogger: silent
	// by default (zap.NewNop()), upgraded to a real development logger when
	// WithFxLogger is set.
	zapLogger := zap.NewNop()
	if mc.fxLogger {
		var err error
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewNop()
		}
	}
	opts = append(opts, fx.WithLogger(func() fxevent.Logger {
		return &fxevent.ZapLogger{Logger: zapLogger}
	}))

	return fx.New(opts...)
}

// managerInjectParams is populated by fx after every module has run; its
// fields become Manager's own fields via injectManagerComponents. optional
// tags mirror the teacher's nodeInjectParams so a module left out of opts
// (there are none today, but future ones may be conditional) doesn't fail
// the whole graph.
type managerInjectParams struct {
	fx.In

	Transport  interfaces.Transport `optional:"true"`
	EventBus   interfaces.EventBus  `optional:"true"`
	Liveness   interfaces.Liveness  `optional:"true"`
	Membership *membership.Service  `optional:"true"`
	Reporter   *metrics.Reporter    `optional:"true"`
	Ring       *hashring.Ring       `optional:"true"`
}

func injectManagerComponents(mgr *Manager) func(managerInjectParams) {
	return func(p managerInjectParams) {
		mgr.transport = p.Transport
		mgr.bus = p.EventBus
		mgr.liveness = p.Liveness
		mgr.membership = p.Membership
		mgr.reporter = p.Reporter
		mgr.ring = p.Ring
	}
}
