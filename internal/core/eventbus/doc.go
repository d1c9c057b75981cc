// Package eventbus fans cluster membership NodeEvents out to the scope
// actors of a Manager.
//
// There is exactly one publisher per bus (membership.Service, holding the
// bus's single Emitter) and any number of subscribers (one per scope
// actor). A subscriber that falls behind has events dropped for it rather
// than blocking the emitter.
//
// # Quick start
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe()
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        // evt is a types.NodeEvent
//	    }
//	}()
//
//	em, _ := bus.Emitter()
//	defer em.Close()
//	em.Emit(types.NodeEvent{Node: node, Kind: types.NodeUp})
//
// # Fx module
//
//	import "go.uber.org/fx"
//
//	app := fx.New(
//	    eventbus.Module(),
//	    fx.Invoke(func(bus pkgif.EventBus) {
//	        sub, _ := bus.Subscribe()
//	        // ...
//	    }),
//	)
//
// # Concurrency
//
// Subscribe, emit and subscription removal share one mutex; Emitter takes
// no lock. Channel close is idempotent via sync.Once.
package eventbus
